package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the domain types that cross a
// persistence boundary. Field order is the wire format; changing it
// breaks existing snapshots and databases.

// IDMUS serializes IDs.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// ChunkMUS serializes Chunks for corpus metadata snapshots.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.ChunkID, bs)
	n += ord.String.Marshal(c.Content, bs[n:])
	n += ord.String.Marshal(string(c.ContentHash), bs[n:])
	n += ord.String.Marshal(c.Source.URL, bs[n:])
	n += ord.String.Marshal(c.Source.Document, bs[n:])
	n += varint.Int.Marshal(c.Source.Page, bs[n:])
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += varint.Int.Marshal(c.TotalChunks, bs[n:])
	n += varint.Int64.Marshal(c.CreatedAt.UnixMicro(), bs[n:])
	n += ord.String.Marshal(c.SessionID, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var (
		n1  int
		s   string
		i   int
		i64 int64
	)
	if c.ChunkID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.ContentHash = Fingerprint(s)
	n += n1
	if c.Source.URL, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Source.Document, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if i, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.Source.Page = i
	n += n1
	if c.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.TotalChunks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if i64, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.CreatedAt = time.UnixMicro(i64).UTC()
	n += n1
	if c.SessionID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = ord.String.Size(c.ChunkID)
	size += ord.String.Size(c.Content)
	size += ord.String.Size(string(c.ContentHash))
	size += ord.String.Size(c.Source.URL)
	size += ord.String.Size(c.Source.Document)
	size += varint.Int.Size(c.Source.Page)
	size += varint.Int.Size(c.Index)
	size += varint.Int.Size(c.TotalChunks)
	size += varint.Int64.Size(c.CreatedAt.UnixMicro())
	size += ord.String.Size(c.SessionID)
	return size
}

// ArticleMUS serializes Articles for the structured store.
var ArticleMUS = articleMUS{}

type articleMUS struct{}

func (articleMUS) Marshal(a Article, bs []byte) (n int) {
	n = IDMUS.Marshal(a.Id, bs)
	n += ord.String.Marshal(a.Title, bs[n:])
	n += ord.String.Marshal(a.Body, bs[n:])
	n += ord.String.Marshal(a.Label, bs[n:])
	n += varint.Int64.Marshal(a.InsertedAt.UnixMicro(), bs[n:])
	return n
}

func (articleMUS) Unmarshal(bs []byte) (a Article, n int, err error) {
	var (
		n1  int
		i64 int64
	)
	if a.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if a.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if a.Body, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if a.Label, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if i64, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	a.InsertedAt = time.UnixMicro(i64).UTC()
	n += n1
	return
}

func (articleMUS) Size(a Article) (size int) {
	size = IDMUS.Size(a.Id)
	size += ord.String.Size(a.Title)
	size += ord.String.Size(a.Body)
	size += ord.String.Size(a.Label)
	size += varint.Int64.Size(a.InsertedAt.UnixMicro())
	return size
}

// SessionActivityMUS serializes SessionActivity upserts.
var SessionActivityMUS = sessionActivityMUS{}

type sessionActivityMUS struct{}

func (sessionActivityMUS) Marshal(a SessionActivity, bs []byte) (n int) {
	n = ord.String.Marshal(a.SessionID, bs)
	n += varint.Int.Marshal(a.Requests, bs[n:])
	n += varint.Int64.Marshal(a.LastActive.UnixMicro(), bs[n:])
	return n
}

func (sessionActivityMUS) Unmarshal(bs []byte) (a SessionActivity, n int, err error) {
	var (
		n1  int
		i64 int64
	)
	if a.SessionID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if a.Requests, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if i64, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	a.LastActive = time.UnixMicro(i64).UTC()
	n += n1
	return
}

func (sessionActivityMUS) Size(a SessionActivity) (size int) {
	size = ord.String.Size(a.SessionID)
	size += varint.Int.Size(a.Requests)
	size += varint.Int64.Size(a.LastActive.UnixMicro())
	return size
}

// HistoryRecordMUS serializes HistoryRecords for the history log.
var HistoryRecordMUS = historyRecordMUS{}

type historyRecordMUS struct{}

func (historyRecordMUS) Marshal(r HistoryRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(r.Id, bs)
	n += ord.String.Marshal(r.SessionID, bs[n:])
	n += ord.String.Marshal(r.Question, bs[n:])
	n += ord.String.Marshal(r.Answer, bs[n:])
	n += ord.String.Marshal(string(r.SourceType), bs[n:])
	n += ord.String.Marshal(string(r.Verdict), bs[n:])
	n += varint.Int.Marshal(r.Confidence, bs[n:])
	n += varint.Int64.Marshal(r.Timestamp.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(r.InsertedAt.UnixMicro(), bs[n:])
	return n
}

func (historyRecordMUS) Unmarshal(bs []byte) (r HistoryRecord, n int, err error) {
	var (
		n1  int
		s   string
		i64 int64
	)
	if r.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if r.SessionID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if r.Question, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if r.Answer, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	r.SourceType = SourceType(s)
	n += n1
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	r.Verdict = Verdict(s)
	n += n1
	if r.Confidence, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if i64, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	r.Timestamp = time.UnixMicro(i64).UTC()
	n += n1
	if i64, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	r.InsertedAt = time.UnixMicro(i64).UTC()
	n += n1
	return
}

func (historyRecordMUS) Size(r HistoryRecord) (size int) {
	size = IDMUS.Size(r.Id)
	size += ord.String.Size(r.SessionID)
	size += ord.String.Size(r.Question)
	size += ord.String.Size(r.Answer)
	size += ord.String.Size(string(r.SourceType))
	size += ord.String.Size(string(r.Verdict))
	size += varint.Int.Size(r.Confidence)
	size += varint.Int64.Size(r.Timestamp.UnixMicro())
	size += varint.Int64.Size(r.InsertedAt.UnixMicro())
	return size
}

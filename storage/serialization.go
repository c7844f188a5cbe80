package storage

import (
	"github.com/nocaplabs/claimcheck/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalArticle serializes an Article to bytes.
func MarshalArticle(article *core.Article) []byte {
	buf := make([]byte, core.ArticleMUS.Size(*article))
	core.ArticleMUS.Marshal(*article, buf)
	return buf
}

// UnmarshalArticle deserializes an Article from bytes.
func UnmarshalArticle(data []byte) (*core.Article, error) {
	article, _, err := core.ArticleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// MarshalHistoryRecord serializes a HistoryRecord to bytes.
func MarshalHistoryRecord(record *core.HistoryRecord) []byte {
	buf := make([]byte, core.HistoryRecordMUS.Size(*record))
	core.HistoryRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalHistoryRecord deserializes a HistoryRecord from bytes.
func UnmarshalHistoryRecord(data []byte) (*core.HistoryRecord, error) {
	record, _, err := core.HistoryRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalSessionActivity serializes a SessionActivity to bytes.
func MarshalSessionActivity(activity *core.SessionActivity) []byte {
	buf := make([]byte, core.SessionActivityMUS.Size(*activity))
	core.SessionActivityMUS.Marshal(*activity, buf)
	return buf
}

// UnmarshalSessionActivity deserializes a SessionActivity from bytes.
func UnmarshalSessionActivity(data []byte) (*core.SessionActivity, error) {
	activity, _, err := core.SessionActivityMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

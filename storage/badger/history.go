package badger

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/storage"
)

// trendingWindow is how many recent records the trending aggregation
// considers.
const trendingWindow = 200

// HistoryRepository implements storage.HistoryRepository for BadgerDB.
type HistoryRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(backend *Backend) (*HistoryRepository, error) {
	idSeq, err := backend.GetSequence(historyIDSeq)
	if err != nil {
		return nil, err
	}

	return &HistoryRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *HistoryRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *HistoryRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddRecord appends a completed verification to the log, maintaining the
// date index, the session index and the session activity upsert in the
// same transaction.
func (r *HistoryRepository) AddRecord(ctx context.Context, record *core.HistoryRecord) (*core.HistoryRecord, error) {
	if record != nil && record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if err := core.ValidateHistoryRecord(record); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		record.Id = core.ID(nextID)
		record.InsertedAt = time.Now().UTC()

		if err := tx.Set(makeHistoryKey(record.Id), storage.MarshalHistoryRecord(record)); err != nil {
			return err
		}

		dateKey := makeHistoryDateKey(record.Timestamp, record.Id)
		if err := tx.Set(dateKey, storage.MarshalID(record.Id)); err != nil {
			return err
		}

		if record.SessionID != "" {
			sessionKey := makeHistorySessionKey(record.SessionID, record.Timestamp, record.Id)
			if err := tx.Set(sessionKey, storage.MarshalID(record.Id)); err != nil {
				return err
			}
			if err := r.touchSession(tx, record.SessionID, record.Timestamp); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// touchSession upserts the session activity record inside tx.
func (r *HistoryRepository) touchSession(tx *badger.Txn, sessionID string, at time.Time) error {
	activity := &core.SessionActivity{SessionID: sessionID}

	item, err := tx.Get(makeSessionKey(sessionID))
	if err == nil {
		err = item.Value(func(val []byte) error {
			existing, err := storage.UnmarshalSessionActivity(val)
			if err != nil {
				return err
			}
			activity = existing
			return nil
		})
		if err != nil {
			return err
		}
	} else if err != badger.ErrKeyNotFound {
		return err
	}

	activity.Requests++
	if at.After(activity.LastActive) {
		activity.LastActive = at
	}
	return tx.Set(makeSessionKey(sessionID), storage.MarshalSessionActivity(activity))
}

// RecentRecords retrieves the N most recent records, newest first.
func (r *HistoryRepository) RecentRecords(ctx context.Context, limit int) ([]*core.HistoryRecord, error) {
	var results []*core.HistoryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the highest possible date key and walk backwards.
		startKey := makePartialHistoryDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(historyDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			record, err := r.resolveIndexEntry(tx, iter.Item())
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
				count++
			}
		}
		return nil
	}, false)
	return results, err
}

// RecordsBySession retrieves a session's records, newest first.
func (r *HistoryRepository) RecordsBySession(ctx context.Context, sessionID string, limit int) ([]*core.HistoryRecord, error) {
	if sessionID == "" {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.HistoryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeHistorySessionPrefix(sessionID)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to just past the session's key range.
		startKey := append(slices.Clone(prefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			record, err := r.resolveIndexEntry(tx, iter.Item())
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
				count++
			}
		}
		return nil
	}, false)
	return results, err
}

// RecordsByDateRange retrieves records where start <= Timestamp < end,
// ordered by timestamp ascending.
func (r *HistoryRepository) RecordsByDateRange(ctx context.Context, start, end time.Time) ([]*core.HistoryRecord, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.HistoryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialHistoryDateKey(start)
		endKey := makePartialHistoryDateKey(end)

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			record, err := r.resolveIndexEntry(tx, iter.Item())
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	return results, err
}

// Trending aggregates recent records into recurring non-credible topics,
// most recurrent first.
func (r *HistoryRepository) Trending(ctx context.Context, limit int) ([]storage.TrendingTopic, error) {
	if limit < 1 {
		return nil, nil
	}

	records, err := r.RecentRecords(ctx, trendingWindow)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[string]*storage.TrendingTopic)
	for _, record := range records {
		switch record.Verdict {
		case core.VerdictFake, core.VerdictMisleading, core.VerdictMixed:
		default:
			continue
		}

		normalized := core.NormalizeQuestion(record.Question)
		topic, ok := byQuestion[normalized]
		if !ok {
			topic = &storage.TrendingTopic{
				Question: record.Question,
				Verdict:  record.Verdict,
			}
			byQuestion[normalized] = topic
		}
		topic.Count++
		if record.Timestamp.After(topic.LastSeen) {
			topic.LastSeen = record.Timestamp
			topic.Verdict = record.Verdict
		}
	}

	topics := make([]storage.TrendingTopic, 0, len(byQuestion))
	for _, topic := range byQuestion {
		topics = append(topics, *topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].LastSeen.After(topics[j].LastSeen)
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

// Sessions lists the session activity summaries, most recently active first.
func (r *HistoryRepository) Sessions(ctx context.Context) ([]*core.SessionActivity, error) {
	var sessions []*core.SessionActivity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				activity, err := storage.UnmarshalSessionActivity(val)
				if err != nil {
					return err
				}
				sessions = append(sessions, activity)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
	return sessions, nil
}

// resolveIndexEntry reads the record ID stored in an index entry and
// fetches the full record. Missing records resolve to nil, not an error.
func (r *HistoryRepository) resolveIndexEntry(tx *badger.Txn, item *badger.Item) (*core.HistoryRecord, error) {
	var recordID core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		recordID, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}

	recordItem, err := tx.Get(makeHistoryKey(recordID))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record *core.HistoryRecord
	err = recordItem.Value(func(val []byte) error {
		record, err = storage.UnmarshalHistoryRecord(val)
		return err
	})
	return record, err
}

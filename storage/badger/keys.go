package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/nocaplabs/claimcheck/core"
)

// Key prefixes for different data types
const (
	articlePrefix        = "artrec"
	historyPrefix        = "hisrec"
	historyDatePrefix    = "hisrecd"
	historySessionPrefix = "hisrecs"
	historyIDSeq         = "hisrecseq"
	sessionPrefix        = "sessact"
)

// makeArticleKey generates a key for an article by ID.
func makeArticleKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", articlePrefix, id))
}

// makeHistoryKey generates a key for a history record by ID.
func makeHistoryKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", historyPrefix, id))
}

// makeHistoryDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeHistoryDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := historyDatePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialHistoryDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialHistoryDateKey(timestamp time.Time) []byte {
	prefix := historyDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeHistorySessionKey generates a composite key for the session index.
// Format: prefix:sessionID:timestamp:id
func makeHistorySessionKey(sessionID string, timestamp time.Time, id core.ID) []byte {
	prefix := historySessionPrefix + ":" + sessionID + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeHistorySessionPrefix generates the iteration prefix for one session.
func makeHistorySessionPrefix(sessionID string) []byte {
	return []byte(historySessionPrefix + ":" + sessionID + ":")
}

// makeSessionKey generates a key for a session activity record.
func makeSessionKey(sessionID string) []byte {
	return []byte(sessionPrefix + ":" + sessionID)
}

package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/storage"
)

func setupHistoryRepo(t *testing.T) storage.HistoryRepository {
	t.Helper()
	articleRepo, historyRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		articleRepo.Close()
		historyRepo.Close()
		backend.Close()
	})
	return historyRepo
}

func historyRecord(session, question string, verdict core.Verdict, at time.Time) *core.HistoryRecord {
	return &core.HistoryRecord{
		SessionID:  session,
		Question:   question,
		Answer:     "VERDICT: " + string(verdict),
		SourceType: core.SourceTypeRAG,
		Verdict:    verdict,
		Confidence: 70,
		Timestamp:  at,
	}
}

func TestHistoryRepository_AddRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns sequence ID and inserted timestamp", func(t *testing.T) {
		repo := setupHistoryRepo(t)

		added, err := repo.AddRecord(ctx, historyRecord("s1", "q1", core.VerdictFake, time.Now().Add(-time.Minute)))
		require.NoError(t, err)
		assert.NotZero(t, added.Id)
		assert.False(t, added.InsertedAt.IsZero())
	})

	t.Run("ids are distinct", func(t *testing.T) {
		repo := setupHistoryRepo(t)

		r1, err := repo.AddRecord(ctx, historyRecord("s1", "q1", core.VerdictFake, time.Now().Add(-2*time.Minute)))
		require.NoError(t, err)
		r2, err := repo.AddRecord(ctx, historyRecord("s1", "q2", core.VerdictMixed, time.Now().Add(-time.Minute)))
		require.NoError(t, err)
		assert.NotEqual(t, r1.Id, r2.Id)
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		repo := setupHistoryRepo(t)
		_, err := repo.AddRecord(ctx, &core.HistoryRecord{Timestamp: time.Now()})
		assert.ErrorIs(t, err, core.ErrInvalidHistoryRecord)
	})
}

func TestHistoryRepository_RecentRecords(t *testing.T) {
	ctx := context.Background()
	repo := setupHistoryRepo(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := repo.AddRecord(ctx, historyRecord("s1", fmt.Sprintf("q%d", i), core.VerdictCredible, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	records, err := repo.RecentRecords(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "q4", records[0].Question, "newest record not first")
	assert.Equal(t, "q3", records[1].Question)
	assert.Equal(t, "q2", records[2].Question)
}

func TestHistoryRepository_RecordsBySession(t *testing.T) {
	ctx := context.Background()
	repo := setupHistoryRepo(t)

	base := time.Now().Add(-time.Hour)
	_, err := repo.AddRecord(ctx, historyRecord("s1", "s1 first", core.VerdictFake, base))
	require.NoError(t, err)
	_, err = repo.AddRecord(ctx, historyRecord("s2", "s2 only", core.VerdictCredible, base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.AddRecord(ctx, historyRecord("s1", "s1 second", core.VerdictMixed, base.Add(2*time.Minute)))
	require.NoError(t, err)

	records, err := repo.RecordsBySession(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s1 second", records[0].Question)
	assert.Equal(t, "s1 first", records[1].Question)

	records, err = repo.RecordsBySession(ctx, "s2", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = repo.RecordsBySession(ctx, "", 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestHistoryRepository_RecordsByDateRange(t *testing.T) {
	ctx := context.Background()
	repo := setupHistoryRepo(t)

	base := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	for i := 0; i < 4; i++ {
		_, err := repo.AddRecord(ctx, historyRecord("s1", fmt.Sprintf("q%d", i), core.VerdictCredible, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	records, err := repo.RecordsByDateRange(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "q1", records[0].Question, "ascending order expected")
}

func TestHistoryRepository_Trending(t *testing.T) {
	ctx := context.Background()
	repo := setupHistoryRepo(t)

	base := time.Now().Add(-time.Hour)
	add := func(question string, verdict core.Verdict, times int) {
		for i := 0; i < times; i++ {
			_, err := repo.AddRecord(ctx, historyRecord("s1", question, verdict, base.Add(time.Duration(i)*time.Second)))
			require.NoError(t, err)
		}
	}

	add("is the moon landing fake?", core.VerdictFake, 3)
	add("are microchips in vaccines?", core.VerdictMisleading, 2)
	add("did temperatures rise?", core.VerdictCredible, 5) // credible never trends

	topics, err := repo.Trending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "is the moon landing fake?", topics[0].Question)
	assert.Equal(t, 3, topics[0].Count)
	assert.Equal(t, core.VerdictFake, topics[0].Verdict)
	assert.Equal(t, "are microchips in vaccines?", topics[1].Question)
}

func TestHistoryRepository_Sessions(t *testing.T) {
	ctx := context.Background()
	repo := setupHistoryRepo(t)

	base := time.Now().Add(-time.Hour)
	_, err := repo.AddRecord(ctx, historyRecord("s1", "q", core.VerdictFake, base))
	require.NoError(t, err)
	_, err = repo.AddRecord(ctx, historyRecord("s1", "q2", core.VerdictFake, base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.AddRecord(ctx, historyRecord("s2", "q3", core.VerdictCredible, base.Add(2*time.Minute)))
	require.NoError(t, err)

	sessions, err := repo.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Most recently active first.
	assert.Equal(t, "s2", sessions[0].SessionID)
	assert.Equal(t, 1, sessions[0].Requests)
	assert.Equal(t, "s1", sessions[1].SessionID)
	assert.Equal(t, 2, sessions[1].Requests)
}

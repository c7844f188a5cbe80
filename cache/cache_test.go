package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocaplabs/claimcheck/core"
)

func testResult(answer string) core.VerificationResult {
	return core.VerificationResult{
		Answer:     answer,
		Confidence: 90,
		SourceType: core.SourceTypeDB,
		Verdict:    core.VerdictFake,
	}
}

func TestResponseCache_GetPut(t *testing.T) {
	t.Run("hit after put", func(t *testing.T) {
		c := New()
		c.Put("is the claim true?", testResult("VERDICT: FAKE"))

		got, ok := c.Get("is the claim true?")
		require.True(t, ok)
		assert.Equal(t, "VERDICT: FAKE", got.Answer)
	})

	t.Run("miss for unknown question", func(t *testing.T) {
		c := New()
		_, ok := c.Get("never asked")
		assert.False(t, ok)
	})

	t.Run("normalized restatements share an entry", func(t *testing.T) {
		c := New()
		c.Put("Is The Claim TRUE?", testResult("VERDICT: FAKE"))

		_, ok := c.Get("  is the claim true?  ")
		assert.True(t, ok)
	})

	t.Run("distinct questions have distinct entries", func(t *testing.T) {
		c := New()
		c.Put("question one", testResult("a1"))
		c.Put("question two", testResult("a2"))

		got, ok := c.Get("question one")
		require.True(t, ok)
		assert.Equal(t, "a1", got.Answer)
		assert.Equal(t, 2, c.Len())
	})
}

func TestResponseCache_TTL(t *testing.T) {
	c := New(WithTTL(20 * time.Millisecond))
	c.Put("short lived", testResult("a"))

	_, ok := c.Get("short lived")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.Get("short lived")
	assert.False(t, ok, "entry survived past its TTL")
}

func TestResponseCache_CapacityBound(t *testing.T) {
	c := New(WithCapacity(2))

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("question %d", i), testResult("a"))
	}

	assert.LessOrEqual(t, c.Len(), 2)

	// The most recent entry survives.
	_, ok := c.Get("question 4")
	assert.True(t, ok)
}

func TestResponseCache_Purge(t *testing.T) {
	c := New()
	c.Put("q", testResult("a"))
	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("q")
	assert.False(t, ok)
}

// Package session keeps the bounded conversational context used to
// blend follow-up questions with what was asked before.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nocaplabs/claimcheck/core"
)

// MaxExchanges bounds the number of exchanges kept per session. Older
// exchanges are evicted first-in first-out.
const MaxExchanges = 5

// Tracker holds per-session exchange history in memory. All methods are
// safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string][]core.Exchange
	logger   *slog.Logger
}

// Option is a functional option for configuring a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used by the tracker.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker creates an empty session tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		sessions: make(map[string][]core.Exchange),
		logger:   slog.Default().With("component", "session-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends a completed exchange to the session, evicting the
// oldest exchange once the session holds MaxExchanges.
func (t *Tracker) Record(sessionID, question, answer string) {
	if sessionID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	exchanges := append(t.sessions[sessionID], core.Exchange{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	})
	if len(exchanges) > MaxExchanges {
		exchanges = exchanges[len(exchanges)-MaxExchanges:]
	}
	t.sessions[sessionID] = exchanges
	t.logger.Debug("exchange recorded", "session", sessionID, "exchanges", len(exchanges))
}

// Recent returns a copy of the session's exchanges, oldest first.
// Unknown sessions return an empty slice.
func (t *Tracker) Recent(sessionID string) []core.Exchange {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exchanges := t.sessions[sessionID]
	out := make([]core.Exchange, len(exchanges))
	copy(out, exchanges)
	return out
}

// Blend enriches a question with the session's most recent previous
// question, so follow-ups like "and what about last year?" retrieve
// against the topic under discussion. Sessions without history return
// the question unchanged.
func (t *Tracker) Blend(sessionID, question string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exchanges := t.sessions[sessionID]
	if len(exchanges) == 0 {
		return question
	}
	return exchanges[len(exchanges)-1].Question + "\n" + question
}

// Clear removes all exchanges for the session.
func (t *Tracker) Clear(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// ActiveSessions returns the number of sessions with recorded exchanges.
func (t *Tracker) ActiveSessions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

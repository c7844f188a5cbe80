package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxQuestionLength bounds sanitized question length in bytes.
const MaxQuestionLength = 2000

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// SanitizeQuestion strips HTML tags, truncates to MaxQuestionLength on a
// rune boundary and trims whitespace. Returns ErrInvalidQuestion if
// nothing remains. Malformed input is rejected here, before the cascade
// runs.
func SanitizeQuestion(question string) (string, error) {
	question = htmlTagPattern.ReplaceAllString(question, "")
	if len(question) > MaxQuestionLength {
		cut := MaxQuestionLength
		for cut > 0 && !utf8.RuneStart(question[cut]) {
			cut--
		}
		question = question[:cut]
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidQuestion, ErrEmptyContent)
	}
	return question, nil
}

// NormalizeQuestion produces the canonical form used for cache keying:
// lowercased and whitespace-trimmed, so trivially restated queries hit
// the same cache entry.
func NormalizeQuestion(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// ValidateArticle validates an Article according to domain rules.
//
// Validation rules:
//   - Body must not be empty
//
// NOT validated:
//   - Label (datasets without labels are still searchable)
//   - Id (0 is replaced by a content-based ID on insert)
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}
	if strings.TrimSpace(article.Body) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrEmptyContent)
	}
	return nil
}

// ValidateHistoryRecord validates a HistoryRecord according to domain rules.
//
// Validation rules:
//   - Question must not be empty
//   - Timestamp must not be in the future
//
// NOT validated:
//   - Id (0 is valid from database sequences)
//   - Answer (an empty answer is a degraded but legal outcome)
func ValidateHistoryRecord(record *HistoryRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidHistoryRecord)
	}
	if record.Question == "" {
		return fmt.Errorf("%w: %w", ErrInvalidHistoryRecord, ErrEmptyContent)
	}
	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidHistoryRecord, ErrInvalidTimestamp)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}

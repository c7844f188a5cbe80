package core

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestSanitizeQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain question",
			question: "is the moon landing real?",
			want:     "is the moon landing real?",
		},
		{
			name:     "strips html tags",
			question: "<script>alert(1)</script>is this <b>true</b>?",
			want:     "alert(1)is this true?",
		},
		{
			name:     "trims whitespace",
			question: "   padded question   ",
			want:     "padded question",
		},
		{
			name:     "empty after sanitization",
			question: "  <br/>  ",
			wantErr:  true,
		},
		{
			name:     "empty input",
			question: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeQuestion(tt.question)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuestion) {
					t.Fatalf("SanitizeQuestion() error = %v, want ErrInvalidQuestion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeQuestion() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizeQuestion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeQuestion_Truncates(t *testing.T) {
	long := strings.Repeat("a", MaxQuestionLength+500)

	got, err := SanitizeQuestion(long)
	if err != nil {
		t.Fatalf("SanitizeQuestion() error = %v", err)
	}
	if len(got) != MaxQuestionLength {
		t.Errorf("SanitizeQuestion() length = %d, want %d", len(got), MaxQuestionLength)
	}
}

func TestSanitizeQuestion_TruncatesOnRuneBoundary(t *testing.T) {
	// The leading byte misaligns every two-byte rune, so a blind byte
	// cut would land mid-rune.
	long := "a" + strings.Repeat("ü", MaxQuestionLength)

	got, err := SanitizeQuestion(long)
	if err != nil {
		t.Fatalf("SanitizeQuestion() error = %v", err)
	}
	if !utf8.ValidString(got) {
		t.Error("SanitizeQuestion() produced invalid UTF-8")
	}
	if len(got) > MaxQuestionLength {
		t.Errorf("SanitizeQuestion() length = %d, want <= %d", len(got), MaxQuestionLength)
	}
}

func TestNormalizeQuestion(t *testing.T) {
	q1 := NormalizeQuestion("  Is The Moon Landing REAL?  ")
	q2 := NormalizeQuestion("is the moon landing real?")

	if q1 != q2 {
		t.Errorf("NormalizeQuestion() not canonical: %q vs %q", q1, q2)
	}
}

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name    string
		article *Article
		wantErr bool
	}{
		{
			name:    "valid article",
			article: &Article{Title: "headline", Body: "body text", Label: "Fake"},
			wantErr: false,
		},
		{
			name:    "unlabeled article is valid",
			article: &Article{Body: "body text"},
			wantErr: false,
		},
		{
			name:    "empty body",
			article: &Article{Title: "headline", Body: "   "},
			wantErr: true,
		},
		{
			name:    "nil article",
			article: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArticle(tt.article)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArticle) {
					t.Errorf("ValidateArticle() error = %v, want ErrInvalidArticle", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateArticle() error = %v", err)
			}
		})
	}
}

func TestValidateHistoryRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *HistoryRecord
		wantErr bool
	}{
		{
			name: "valid record",
			record: &HistoryRecord{
				Question:  "is it true?",
				Answer:    "VERDICT: CREDIBLE",
				Timestamp: time.Now().Add(-time.Minute),
			},
			wantErr: false,
		},
		{
			name: "empty answer is valid",
			record: &HistoryRecord{
				Question:  "is it true?",
				Timestamp: time.Now().Add(-time.Minute),
			},
			wantErr: false,
		},
		{
			name: "empty question",
			record: &HistoryRecord{
				Timestamp: time.Now().Add(-time.Minute),
			},
			wantErr: true,
		},
		{
			name: "future timestamp",
			record: &HistoryRecord{
				Question:  "is it true?",
				Timestamp: time.Now().Add(time.Hour),
			},
			wantErr: true,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHistoryRecord(tt.record)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHistoryRecord) {
					t.Errorf("ValidateHistoryRecord() error = %v, want ErrInvalidHistoryRecord", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateHistoryRecord() error = %v", err)
			}
		})
	}
}

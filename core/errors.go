package core

import "errors"

var (
	// ErrInvalidQuestion is returned when a question fails validation.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrEmptyContent is returned when content is empty after sanitization.
	ErrEmptyContent = errors.New("empty content")

	// ErrInvalidArticle is returned when an article fails validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrInvalidHistoryRecord is returned when a history record fails validation.
	ErrInvalidHistoryRecord = errors.New("invalid history record")

	// ErrInvalidTimestamp is returned when a timestamp lies in the future.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

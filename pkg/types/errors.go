package types

import "errors"

// Domain errors
var (
	// ErrInvalidInput is returned when the text to parse is not valid UTF-8
	ErrInvalidInput = errors.New("input must be valid UTF-8 text")

	// ErrUnknownDocument is returned when a session refers to a document that is not open
	ErrUnknownDocument = errors.New("unknown document")

	ErrEmptyText = errors.New("text cannot be empty")
)

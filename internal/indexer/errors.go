package indexer

import "errors"

// ErrEmptyDescription is returned when the description step yields no text.
var ErrEmptyDescription = errors.New("description is empty")

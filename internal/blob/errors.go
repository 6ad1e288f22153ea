package blob

import "errors"

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	ErrNotAnImage   = errors.New("file is not an image")
)

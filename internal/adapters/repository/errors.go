package repository

import "errors"

// Sentinel kinds for comment index errors.
var (
	ErrNotFound      = errors.New("thread not indexed")
	ErrInvalidThread = errors.New("invalid thread number")
)

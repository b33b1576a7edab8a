package service

import "errors"

var (
	// ErrNotStarted is returned when Handle is called before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrNoGitHub is returned by Start when no GitHub client was given.
	ErrNoGitHub = errors.New("github client is required")

	// ErrBackpressure is returned when the scoring queue cannot take more jobs.
	ErrBackpressure = errors.New("scoring queue is full")
)

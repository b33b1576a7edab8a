// Package repository remembers which comment carries each thread's summary.
package repository

import "context"

// Store maps a thread (issue or pull request number) to the ID of the bot's
// summary comment on it, and serializes writers per thread.
type Store interface {
	// Get returns the remembered comment ID. Returns ErrNotFound if unknown.
	Get(ctx context.Context, thread int) (int64, error)

	// Put remembers commentID for thread.
	Put(ctx context.Context, thread int, commentID int64) error

	// Forget drops the entry for thread, e.g. after the comment was deleted.
	Forget(ctx context.Context, thread int)

	// Lock blocks until the caller owns thread or ctx is done.
	// The returned function releases the lock and is safe to call twice.
	Lock(ctx context.Context, thread int) (func(), error)

	// Count returns the number of remembered threads.
	Count(ctx context.Context) int
}

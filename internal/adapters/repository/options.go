package repository

// Option applies a configuration option to the CommentIndex.
type Option func(*CommentIndex)

// WithMaxEntries bounds the index; the least recently used thread is evicted.
// Values <= 0 mean unbounded.
func WithMaxEntries(n int) Option {
	return func(s *CommentIndex) {
		s.maxEntries = n
	}
}

package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

const defaultMaxEntries = 50_000

type entry struct {
	thread    int
	commentID int64
}

type threadLock struct {
	ch   chan struct{}
	refs int
}

// CommentIndex is an in-memory Store. Entries are lost on restart; the
// publisher then falls back to scanning the thread for its marker.
type CommentIndex struct {
	mu         sync.Mutex
	entries    map[int]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int

	locksMu sync.Mutex
	locks   map[int]*threadLock
}

// NewCommentIndex creates an empty index.
func NewCommentIndex(opts ...Option) *CommentIndex {
	s := &CommentIndex{
		entries:    make(map[int]*list.Element),
		lru:        list.New(),
		maxEntries: defaultMaxEntries,
		locks:      make(map[int]*threadLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *CommentIndex) Get(_ context.Context, thread int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[thread]
	if !ok {
		return 0, fmt.Errorf("%w: #%d", ErrNotFound, thread)
	}
	s.lru.MoveToFront(el)
	return el.Value.(*entry).commentID, nil
}

// Put implements Store.
func (s *CommentIndex) Put(_ context.Context, thread int, commentID int64) error {
	if thread <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThread, thread)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[thread]; ok {
		el.Value.(*entry).commentID = commentID
		s.lru.MoveToFront(el)
		return nil
	}
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if tail := s.lru.Back(); tail != nil {
			s.lru.Remove(tail)
			delete(s.entries, tail.Value.(*entry).thread)
		}
	}
	s.entries[thread] = s.lru.PushFront(&entry{thread: thread, commentID: commentID})
	return nil
}

// Forget implements Store.
func (s *CommentIndex) Forget(_ context.Context, thread int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[thread]; ok {
		s.lru.Remove(el)
		delete(s.entries, thread)
	}
}

// Count implements Store.
func (s *CommentIndex) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Lock implements Store. Locks are reference counted and dropped once no
// goroutine holds or waits for them.
func (s *CommentIndex) Lock(ctx context.Context, thread int) (func(), error) {
	s.locksMu.Lock()
	l, ok := s.locks[thread]
	if !ok {
		l = &threadLock{ch: make(chan struct{}, 1)}
		s.locks[thread] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				s.release(thread, l)
			})
		}, nil
	case <-ctx.Done():
		s.release(thread, l)
		return nil, ctx.Err()
	}
}

func (s *CommentIndex) release(thread int, l *threadLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, thread)
	}
}

// heldLocks reports how many thread locks are live. Used by tests.
func (s *CommentIndex) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

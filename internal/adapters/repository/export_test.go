package repository

// HeldLocks exposes heldLocks to the external test package.
func HeldLocks(s *CommentIndex) int { return s.heldLocks() }

package lock

import "errors"

// ErrLockTimeout is returned by WithLockContext when the user's lock is
// still held by another operation after the timeout.
var ErrLockTimeout = errors.New("lock acquisition timeout")

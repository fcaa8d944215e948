// Package lock provides per-user locking for point and wallet updates.
package lock

import (
	"context"
	"sync"
	"time"
)

// UserLock serialises read-modify-write sequences on a single user's
// record within one process. Cross-process writers are caught by the
// store's version check instead.
type UserLock struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{}
}

// getLock retrieves or creates the mutex for the given user ID.
func (ul *UserLock) getLock(userID string) *sync.Mutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := ul.locks.LoadOrStore(userID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for a user.
func (ul *UserLock) Lock(userID string) {
	ul.getLock(userID).Lock()
}

// Unlock releases the lock for a user.
func (ul *UserLock) Unlock(userID string) {
	if v, ok := ul.locks.Load(userID); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID string) bool {
	return ul.getLock(userID).TryLock()
}

// LockWithTimeout attempts to acquire the lock until timeout or ctx expires.
// Returns true if the lock was acquired.
func (ul *UserLock) LockWithTimeout(ctx context.Context, userID string, timeout time.Duration) bool {
	mu := ul.getLock(userID)

	done := make(chan struct{})
	go func() {
		mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still acquires eventually; hand the lock straight back.
		go func() {
			<-done
			mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID string, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the user's lock, giving up with
// ErrLockTimeout if the lock is not acquired within timeout.
func (ul *UserLock) WithLockContext(ctx context.Context, userID string, timeout time.Duration, fn func() error) error {
	if !ul.LockWithTimeout(ctx, userID, timeout) {
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// IsLocked reports whether a user's lock is currently held.
// This is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(userID string) bool {
	v, ok := ul.locks.Load(userID)
	if !ok {
		return false
	}
	mu := v.(*sync.Mutex)
	if mu.TryLock() {
		mu.Unlock()
		return false
	}
	return true
}

package core

// commit_limiter.go bounds how many bulk creates hit the store at once.
//
// A weighted semaphore holds one unit per running commit. A commit that finds
// every slot taken waits up to maxWait, then fails with ErrTooManyCommits.
// WaitForDrain takes every unit at once, so it returns only when no commit is
// running; graceful shutdown relies on it.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyCommits is returned when all commit slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyCommits = errors.New("too many concurrent commits, please try again later")

// DefaultMaxConcurrentCommits is the default limit for parallel commits.
const DefaultMaxConcurrentCommits = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// CommitLimiter caps concurrent commits.
type CommitLimiter struct {
	slots   *semaphore.Weighted
	size    int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewCommitLimiter allows at most maxConcurrent commits at once. Zero or
// negative arguments select the defaults.
func NewCommitLimiter(maxConcurrent int, maxWait time.Duration) *CommitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCommits
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &CommitLimiter{
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		size:    int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. A canceled ctx returns the
// context error; running out of time returns ErrTooManyCommits. Every
// successful Acquire must be paired with Release.
func (l *CommitLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.slots.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyCommits
	}
	l.active.Add(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (l *CommitLimiter) Release() {
	l.active.Add(-1)
	l.slots.Release(1)
}

// ActiveCount returns the number of commits in progress.
func (l *CommitLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no commit is running or ctx is done. New commits
// queue behind it while it waits.
func (l *CommitLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.slots.Acquire(ctx, l.size); err != nil {
		return err
	}
	l.slots.Release(l.size)
	return nil
}

// CommitLimiterStatus is a snapshot of the limiter.
type CommitLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *CommitLimiter) Status() CommitLimiterStatus {
	active := l.ActiveCount()
	return CommitLimiterStatus{
		Active:        active,
		Available:     int(l.size) - active,
		MaxConcurrent: int(l.size),
	}
}

package crypto

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrent hash computations.
// Callers waiting for a slot give up when their context is done.
type Pool struct {
	h   *Hasher
	sem *semaphore.Weighted
}

// NewPool wraps h with at most workers concurrent computations (GOMAXPROCS when workers <= 0).
func NewPool(h *Hasher, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{h: h, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash computes a new hash once a slot is free.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.h.Hash(password)
}

// Verify checks password against hash once a slot is free.
// The error is non-nil only when ctx ended before the check ran.
func (p *Pool) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.h.Verify(password, hash), nil
}

// NeedsRehash reports whether hash should be replaced with one using current params.
func (p *Pool) NeedsRehash(hash string) bool { return p.h.NeedsRehash(hash) }

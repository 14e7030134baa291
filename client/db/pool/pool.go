// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package pool bounds concurrent access to the ledger. A caller acquires a
// connection for one storage step and releases it before talking to a mint.
package pool

import (
	"context"
	"fmt"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/db"
	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when no connection frees up within the acquisition
// timeout.
const ErrTimeout = cashu.ErrorKind("timed out waiting for a database connection")

const (
	DefaultSize    = 16
	DefaultTimeout = 5 * time.Second
)

// Pool hands out ledger connections, at most Size at a time.
type Pool struct {
	db      db.DB
	sem     *semaphore.Weighted
	size    int64
	timeout time.Duration
}

// New creates a Pool over the ledger. Non-positive size and timeout values
// select the defaults.
func New(ledger db.DB, size int, timeout time.Duration) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pool{
		db:      ledger,
		sem:     semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		timeout: timeout,
	}
}

// Acquire waits for a free connection. The returned release func must be
// called exactly once when the caller is done with the connection.
func (p *Pool) Acquire(ctx context.Context) (db.DB, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("%w after %s: %v", ErrTimeout, p.timeout, err)
	}
	var released bool
	return p.db, func() {
		if released {
			log.Errorf("connection released twice")
			return
		}
		released = true
		p.sem.Release(1)
	}, nil
}

// With runs f with an acquired connection, releasing it when f returns.
// Acquisition failures are returned wrapped with ErrTimeout. Errors from f are
// returned unchanged.
func (p *Pool) With(ctx context.Context, f func(db.DB) error) error {
	conn, release, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return f(conn)
}

// Size is the pool's capacity.
func (p *Pool) Size() int {
	return int(p.size)
}

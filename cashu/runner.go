// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"context"
	"errors"
	"sync"
)

// Runner is satisfied by types that run until their context is canceled.
type Runner interface {
	Run(ctx context.Context)
}

// StartStopWaiter runs a Runner in a goroutine and allows the caller to stop
// it and wait for it to return.
type StartStopWaiter struct {
	runner Runner
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewStartStopWaiter is the constructor for a StartStopWaiter.
func NewStartStopWaiter(runner Runner) *StartStopWaiter {
	return &StartStopWaiter{runner: runner}
}

// Start runs the Runner in a goroutine. The Runner is stopped when the parent
// context is canceled or Stop is called.
func (ssw *StartStopWaiter) Start(ctx context.Context) {
	ctx, ssw.cancel = context.WithCancel(ctx)
	ssw.wg.Add(1)
	go func() {
		defer ssw.wg.Done()
		ssw.runner.Run(ctx)
	}()
}

// WaitForShutdown blocks until the Runner has returned.
func (ssw *StartStopWaiter) WaitForShutdown() {
	ssw.wg.Wait()
}

// Stop cancels the Runner's context.
func (ssw *StartStopWaiter) Stop() {
	ssw.cancel()
}

// Connector is any type that implements the Connect method, which will return
// a connection error, and a WaitGroup that can be waited on at Disconnection.
type Connector interface {
	Connect(ctx context.Context) (*sync.WaitGroup, error)
}

// ConnectionMaster manages a Connector.
type ConnectionMaster struct {
	connector Connector

	mtx    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConnectionMaster is the constructor for a new ConnectionMaster.
func NewConnectionMaster(c Connector) *ConnectionMaster {
	return &ConnectionMaster{connector: c}
}

// Connect connects the Connector, and returns any initial connection error.
// Use Disconnect to shut down the Connector.
func (c *ConnectionMaster) Connect(ctx context.Context) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.cancel != nil {
		return errors.New("already connected")
	}
	ctx, cancel := context.WithCancel(ctx)
	wg, err := c.connector.Connect(ctx)
	if err != nil {
		cancel()
		return err
	}
	c.cancel = cancel
	c.done = make(chan struct{})
	go func(done chan struct{}) {
		wg.Wait()
		close(done)
	}(c.done)
	return nil
}

// Done returns a channel that is closed when the Connector has shut down. It
// is nil before Connect.
func (c *ConnectionMaster) Done() <-chan struct{} {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.done
}

// Disconnect closes the connection and waits for shutdown.
func (c *ConnectionMaster) Disconnect() {
	c.mtx.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mtx.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

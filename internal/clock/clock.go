// Package clock supplies the unix-seconds "now" used by transfer rules and
// vesting.
package clock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"solana-security-token/internal/solana"
)

// Clock returns the current unix time in seconds.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// System reads the host clock.
type System struct{}

// Now implements Clock.
func (System) Now(context.Context) (uint64, error) {
	return uint64(time.Now().Unix()), nil
}

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	now atomic.Uint64
}

// NewFixed creates a clock stopped at ts.
func NewFixed(ts uint64) *Fixed {
	f := &Fixed{}
	f.now.Store(ts)
	return f
}

// Now implements Clock.
func (f *Fixed) Now(context.Context) (uint64, error) {
	return f.now.Load(), nil
}

// Set moves the clock to ts.
func (f *Fixed) Set(ts uint64) {
	f.now.Store(ts)
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.now.Add(uint64(d / time.Second))
}

// Cluster reads the block time of the latest slot. Readings are reused for
// maxAge to keep RPC traffic bounded.
type Cluster struct {
	client solana.ClusterClient
	maxAge time.Duration

	mu      sync.Mutex
	last    uint64
	fetched time.Time
}

// NewCluster creates a cluster clock over client.
func NewCluster(client solana.ClusterClient, maxAge time.Duration) *Cluster {
	return &Cluster{client: client, maxAge: maxAge}
}

// Now implements Clock.
func (c *Cluster) Now(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetched.IsZero() && time.Since(c.fetched) < c.maxAge {
		return c.last, nil
	}

	slot, err := c.client.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}
	ts, err := c.client.GetBlockTime(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("get block time of slot %d: %w", slot, err)
	}
	if ts < 0 {
		return 0, fmt.Errorf("negative block time %d for slot %d", ts, slot)
	}

	// Block time estimates may step back slightly between slots.
	if uint64(ts) > c.last {
		c.last = uint64(ts)
	}
	c.fetched = time.Now()
	return c.last, nil
}

var (
	_ Clock = System{}
	_ Clock = (*Fixed)(nil)
	_ Clock = (*Cluster)(nil)
)

package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed(t *testing.T) {
	c := NewFixed(100)
	ctx := context.Background()

	now, err := c.Now(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), now)

	c.Advance(90 * time.Second)
	now, _ = c.Now(ctx)
	assert.Equal(t, uint64(190), now)

	c.Set(5)
	now, _ = c.Now(ctx)
	assert.Equal(t, uint64(5), now)
}

type fakeCluster struct {
	slot    uint64
	times   map[uint64]int64
	calls   int
	slotErr error
}

func (f *fakeCluster) GetSlot(context.Context) (uint64, error) {
	f.calls++
	return f.slot, f.slotErr
}

func (f *fakeCluster) GetBlockTime(_ context.Context, slot uint64) (int64, error) {
	return f.times[slot], nil
}

func TestCluster_CachesAndNeverStepsBack(t *testing.T) {
	rpc := &fakeCluster{slot: 10, times: map[uint64]int64{10: 1000, 11: 990}}
	ctx := context.Background()

	c := NewCluster(rpc, time.Hour)
	now, err := c.Now(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), now)

	_, _ = c.Now(ctx)
	assert.Equal(t, 1, rpc.calls, "second reading must come from the cache")

	uncached := NewCluster(rpc, 0)
	uncached.last = 1000
	rpc.slot = 11
	now, err = uncached.Now(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), now)
}

func TestCluster_PropagatesErrors(t *testing.T) {
	rpc := &fakeCluster{slotErr: errors.New("node unreachable")}
	_, err := NewCluster(rpc, time.Second).Now(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node unreachable")
}

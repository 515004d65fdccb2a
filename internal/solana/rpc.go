package solana

import "context"

// ClusterClient is the subset of Solana JSON-RPC the service uses to read
// the cluster clock.
type ClusterClient interface {
	// GetSlot returns the current slot at the configured commitment.
	GetSlot(ctx context.Context) (uint64, error)

	// GetBlockTime returns the estimated production time of a slot in unix
	// seconds. Returns ErrBlockTimeUnavailable when the node has no estimate.
	GetBlockTime(ctx context.Context, slot uint64) (int64, error)
}

package enforcement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-security-token/internal/clock"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
	"solana-security-token/internal/storage/memory"
)

const (
	mint    = "mint"
	alice   = "alice"
	bob     = "bob"
	escrow  = "escrow"
	escrow2 = "escrow2"
)

func u64(v uint64) *uint64 { return &v }

// seed creates a registry with groups 0..2, alice and escrow in group 1,
// bob and escrow2 in group 2.
func seed(t *testing.T, paused bool) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	escrowWallet := escrow
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Registries().Insert(ctx, &domain.RestrictionRegistry{
			Mint: mint, MaxHolders: 10, Paused: paused, LockupEscrowAccount: &escrowWallet,
		}); err != nil {
			return err
		}
		for id := uint64(0); id < 3; id++ {
			if err := tx.Groups().Insert(ctx, &domain.Group{Mint: mint, ID: id}); err != nil {
				return err
			}
		}
		bindings := []*domain.WalletBinding{
			{Mint: mint, Wallet: alice, Group: 1, Holder: u64(0)},
			{Mint: mint, Wallet: escrow, Group: 1},
			{Mint: mint, Wallet: bob, Group: 2, Holder: u64(1)},
			{Mint: mint, Wallet: escrow2, Group: 2},
		}
		for _, b := range bindings {
			if err := tx.Wallets().Insert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return store
}

func addRule(t *testing.T, store *memory.Store, from, to, lockedUntil uint64) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.TransferRules().Insert(ctx, &domain.TransferRule{Mint: mint, GroupFrom: from, GroupTo: to, LockedUntil: lockedUntil})
	})
	require.NoError(t, err)
}

func decide(t *testing.T, store *memory.Store, now uint64, req domain.MovementRequest) domain.Decision {
	t.Helper()
	var d domain.Decision
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		d, err = Evaluate(ctx, tx, now, req)
		return err
	})
	require.NoError(t, err)
	return d
}

func transfer(from, to string) domain.MovementRequest {
	return domain.MovementRequest{Mint: mint, From: from, To: to, Amount: 1, Kind: domain.MovementTransfer}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		req  domain.MovementRequest
		now  uint64
		want error
	}{
		{"rule unlocked", transfer(alice, bob), 100, nil},
		{"rule unlocked at boundary", transfer(alice, bob), 50, nil},
		{"rule locked", transfer(alice, bob), 49, domain.ErrTransferRuleNotAllowedUntilLater},
		{"no reverse rule", transfer(bob, alice), 100, domain.ErrTransferGroupNotApproved},
		{"same group needs rule", transfer(alice, escrow), 100, domain.ErrTransferGroupNotApproved},
		{"unbound source", transfer("carol", bob), 100, domain.ErrInvalidPda},
		{"unbound destination", transfer(alice, "carol"), 100, domain.ErrInvalidPda},
		{"unknown mint", domain.MovementRequest{Mint: "other", From: alice, To: bob, Kind: domain.MovementTransfer}, 100, domain.ErrRegistryNotFound},
		{"withdrawal uses same rules", domain.MovementRequest{Mint: mint, From: escrow, To: bob, Kind: domain.MovementWithdrawal}, 100, nil},
		{"cancellation uses same rules", domain.MovementRequest{Mint: mint, From: escrow, To: bob, Kind: domain.MovementCancellation}, 10, domain.ErrTransferRuleNotAllowedUntilLater},
	}

	store := seed(t, false)
	addRule(t, store, 1, 2, 50)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decide(t, store, tt.now, tt.req)
			if tt.want == nil {
				assert.True(t, d.Allowed)
				assert.NoError(t, d.Err())
				return
			}
			assert.False(t, d.Allowed)
			assert.ErrorIs(t, d.Err(), tt.want)
		})
	}
}

func TestEvaluate_PausedDeniesEverything(t *testing.T) {
	store := seed(t, true)
	addRule(t, store, 1, 2, 0)

	for _, kind := range []domain.MovementKind{domain.MovementTransfer, domain.MovementWithdrawal, domain.MovementCancellation} {
		d := decide(t, store, 1000, domain.MovementRequest{Mint: mint, From: alice, To: bob, Kind: kind})
		assert.ErrorIs(t, d.Err(), domain.ErrAllTransfersPaused, kind)
	}

	// The reserve exemption skips only the pause check.
	d := decide(t, store, 1000, domain.MovementRequest{Mint: mint, From: alice, To: bob, Kind: domain.MovementForcedTransfer, BypassPause: true})
	assert.True(t, d.Allowed)
	d = decide(t, store, 1000, domain.MovementRequest{Mint: mint, From: bob, To: alice, Kind: domain.MovementForcedTransfer, BypassPause: true})
	assert.ErrorIs(t, d.Err(), domain.ErrTransferGroupNotApproved)
}

func TestEvaluate_ForcedTransferBetweenEscrows(t *testing.T) {
	const escrow3 = "escrow3"
	store := seed(t, false)
	addRule(t, store, 1, 2, 0)
	addRule(t, store, 2, 1, 0)
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		// escrow2 and escrow3 belong to deployments the registry does not name.
		deployments := []*domain.VestingDeployment{
			{Address: "dep-a", Mint: mint, EscrowWallet: escrow2},
			{Address: "dep-b", Mint: mint, Nonce: 1, EscrowWallet: escrow3},
			{Address: "dep-other", Mint: "other", EscrowWallet: alice},
		}
		for _, d := range deployments {
			if err := tx.Deployments().Insert(ctx, d); err != nil {
				return err
			}
		}
		return tx.Wallets().Insert(ctx, &domain.WalletBinding{Mint: mint, Wallet: escrow3, Group: 1})
	})
	require.NoError(t, err)

	forced := func(from, to string) domain.MovementRequest {
		return domain.MovementRequest{Mint: mint, From: from, To: to, Amount: 1, Kind: domain.MovementForcedTransfer, BypassPause: true}
	}

	denied := []domain.MovementRequest{
		forced(escrow3, escrow2),
		forced(escrow2, escrow3),
		forced(escrow, escrow2),
		forced(escrow2, escrow),
	}
	for _, req := range denied {
		d := decide(t, store, 0, req)
		assert.ErrorIs(t, d.Err(), domain.ErrForceTransferBetweenEscrows, "%s -> %s", req.From, req.To)
	}

	// One escrow side is an ordinary forced transfer. An escrow of another
	// mint does not count.
	assert.True(t, decide(t, store, 0, forced(escrow2, alice)).Allowed)
	assert.True(t, decide(t, store, 0, forced(alice, escrow2)).Allowed)

	// An ordinary transfer is judged by the rules alone.
	assert.True(t, decide(t, store, 0, transfer(escrow3, escrow2)).Allowed)
}

func TestEvaluate_CompletenessGrid(t *testing.T) {
	store := seed(t, false)
	rules := map[[2]uint64]uint64{{1, 2}: 100, {2, 1}: 0}
	for k, v := range rules {
		addRule(t, store, k[0], k[1], v)
	}
	wallets := map[uint64]string{1: alice, 2: bob}

	for _, from := range []uint64{1, 2} {
		for _, to := range []uint64{1, 2} {
			for _, now := range []uint64{0, 99, 100, 101} {
				d := decide(t, store, now, transfer(wallets[from], wallets[to]))
				lockedUntil, ok := rules[[2]uint64{from, to}]
				want := ok && lockedUntil <= now
				assert.Equal(t, want, d.Allowed, "from=%d to=%d now=%d", from, to, now)
			}
		}
	}
}

func TestHook_Enforce(t *testing.T) {
	store := seed(t, false)
	addRule(t, store, 1, 2, 500)
	clk := clock.NewFixed(499)
	hook := NewHook(store, clk)

	err := hook.Enforce(context.Background(), mint, alice, bob)
	assert.ErrorIs(t, err, domain.ErrTransferRuleNotAllowedUntilLater)

	clk.Set(500)
	assert.NoError(t, hook.Enforce(context.Background(), mint, alice, bob))
	assert.ErrorIs(t, hook.Enforce(context.Background(), mint, bob, alice), domain.ErrTransferGroupNotApproved)
}

package memory

import (
	"context"
	"errors"
	"testing"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

var errAbort = errors.New("abort")

func TestStore_RunInTx_CommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Registries().Insert(ctx, &domain.RestrictionRegistry{Mint: "mint1", MaxHolders: 5})
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}

	err = store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.Registries().Get(ctx, "mint1")
		if err != nil {
			return err
		}
		if got.MaxHolders != 5 {
			t.Errorf("MaxHolders mismatch: got %d, want 5", got.MaxHolders)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestStore_RunInTx_RollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Registries().Insert(ctx, &domain.RestrictionRegistry{Mint: "mint1"}); err != nil {
			return err
		}
		if err := tx.Balances().Set(ctx, "mint1", "wallet1", 100); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Expected errAbort, got %v", err)
	}

	_ = store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Registries().Get(ctx, "mint1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after rollback, got %v", err)
		}
		bal, _ := tx.Balances().Get(ctx, "mint1", "wallet1")
		if bal != 0 {
			t.Errorf("Balance mismatch after rollback: got %d, want 0", bal)
		}
		return nil
	})
}

func TestStore_RollbackKeepsPriorUpdates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		return tx.Groups().Insert(ctx, &domain.Group{Mint: "mint1", ID: 1, MaxHolders: 3})
	})

	err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		g, err := tx.Groups().Get(ctx, "mint1", 1)
		if err != nil {
			return err
		}
		g.CurrentHoldersCount = 3
		if err := tx.Groups().Update(ctx, g); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Expected errAbort, got %v", err)
	}

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		g, err := tx.Groups().Get(ctx, "mint1", 1)
		if err != nil {
			return err
		}
		if g.CurrentHoldersCount != 0 {
			t.Errorf("CurrentHoldersCount mismatch: got %d, want 0", g.CurrentHoldersCount)
		}
		return nil
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	escrow := "escrow1"

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		return tx.Registries().Insert(ctx, &domain.RestrictionRegistry{Mint: "mint1", LockupEscrowAccount: &escrow})
	})

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.Registries().Get(ctx, "mint1")
		if err != nil {
			return err
		}
		*got.LockupEscrowAccount = "mutated"
		got.Paused = true
		return nil
	})

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.Registries().Get(ctx, "mint1")
		if err != nil {
			return err
		}
		if *got.LockupEscrowAccount != "escrow1" || got.Paused {
			t.Errorf("Stored registry was mutated through a returned copy: %+v", got)
		}
		return nil
	})
}

func TestStore_DuplicateKeys(t *testing.T) {
	store := NewStore()
	holder := uint64(0)

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Holders().Insert(ctx, &domain.Holder{Mint: "mint1", ID: 0, Active: true}); err != nil {
			return err
		}
		if err := tx.Holders().Insert(ctx, &domain.Holder{Mint: "mint1", ID: 0}); !errors.Is(err, storage.ErrDuplicateKey) {
			t.Errorf("Expected ErrDuplicateKey for holder, got %v", err)
		}

		if err := tx.HolderGroups().Insert(ctx, &domain.HolderGroup{Mint: "mint1", Group: 1, Holder: 0}); err != nil {
			return err
		}
		if err := tx.HolderGroups().Insert(ctx, &domain.HolderGroup{Mint: "mint1", Group: 1, Holder: 0}); !errors.Is(err, storage.ErrDuplicateKey) {
			t.Errorf("Expected ErrDuplicateKey for holder group, got %v", err)
		}

		if err := tx.Wallets().Insert(ctx, &domain.WalletBinding{Mint: "mint1", Wallet: "w1", Holder: &holder}); err != nil {
			return err
		}
		if err := tx.Wallets().Insert(ctx, &domain.WalletBinding{Mint: "mint1", Wallet: "w1"}); !errors.Is(err, storage.ErrDuplicateKey) {
			t.Errorf("Expected ErrDuplicateKey for wallet, got %v", err)
		}

		if err := tx.TransferRules().Insert(ctx, &domain.TransferRule{Mint: "mint1", GroupFrom: 1, GroupTo: 2}); err != nil {
			return err
		}
		if err := tx.TransferRules().Insert(ctx, &domain.TransferRule{Mint: "mint1", GroupFrom: 1, GroupTo: 2}); !errors.Is(err, storage.ErrDuplicateKey) {
			t.Errorf("Expected ErrDuplicateKey for rule, got %v", err)
		}
		return nil
	})
}

func TestStore_DeleteMissing(t *testing.T) {
	store := NewStore()

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Holders().Delete(ctx, "mint1", 7); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for holder, got %v", err)
		}
		if err := tx.HolderGroups().Delete(ctx, "mint1", 1, 7); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for holder group, got %v", err)
		}
		if err := tx.Wallets().Delete(ctx, "mint1", "w1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for wallet, got %v", err)
		}
		return nil
	})
}

func TestTimelockStore_OrderAndCount(t *testing.T) {
	store := NewStore()

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		for _, id := range []uint64{2, 0, 1} {
			tl := &domain.Timelock{Deployment: "dep1", Recipient: "alice", ID: id, TotalAmount: 100 * (id + 1)}
			if err := tx.Timelocks().Insert(ctx, tl); err != nil {
				return err
			}
		}
		return tx.Timelocks().Insert(ctx, &domain.Timelock{Deployment: "dep1", Recipient: "bob", ID: 0})
	})

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.Timelocks().ListByRecipient(ctx, "dep1", "alice")
		if err != nil {
			return err
		}
		if len(list) != 3 {
			t.Fatalf("Expected 3 timelocks, got %d", len(list))
		}
		for i, tl := range list {
			if tl.ID != uint64(i) {
				t.Errorf("Timelock %d: got id %d", i, tl.ID)
			}
		}

		count, err := tx.Timelocks().CountByRecipient(ctx, "dep1", "alice")
		if err != nil {
			return err
		}
		if count != 3 {
			t.Errorf("CountByRecipient mismatch: got %d, want 3", count)
		}
		return nil
	})
}

func TestDeploymentStore_GetByEscrow(t *testing.T) {
	store := NewStore()

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Deployments().Insert(ctx, &domain.VestingDeployment{Address: "dep0", Mint: "mint", EscrowWallet: "escrow0"}); err != nil {
			return err
		}
		return tx.Deployments().Insert(ctx, &domain.VestingDeployment{Address: "dep1", Mint: "mint", Nonce: 1, EscrowWallet: "escrow1"})
	})

	mustRun(t, store, func(ctx context.Context, tx storage.Tx) error {
		d, err := tx.Deployments().GetByEscrow(ctx, "mint", "escrow1")
		if err != nil {
			return err
		}
		if d.Address != "dep1" {
			t.Errorf("GetByEscrow: got %s, want dep1", d.Address)
		}
		if _, err := tx.Deployments().GetByEscrow(ctx, "other", "escrow1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for another mint, got %v", err)
		}
		if _, err := tx.Deployments().GetByEscrow(ctx, "mint", "alice"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for a plain wallet, got %v", err)
		}
		return nil
	})
}

func TestAuditEventStore_ListByMint(t *testing.T) {
	store := NewAuditEventStore()
	ctx := context.Background()

	events := []*domain.AuditEvent{
		{ID: "e1", Mint: "mint1", Operation: "create_holder"},
		{ID: "e2", Mint: "mint2", Operation: "create_holder"},
		{ID: "e3", Mint: "mint1", Operation: "bind_wallet"},
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.ListByMint(ctx, "mint1", 10)
	if err != nil {
		t.Fatalf("ListByMint failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e3" || got[1].ID != "e1" {
		t.Errorf("Unexpected events: %+v", got)
	}

	err = store.InsertBulk(ctx, []*domain.AuditEvent{{ID: "e1", Mint: "mint1"}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func mustRun(t *testing.T, store *Store, fn func(ctx context.Context, tx storage.Tx) error) {
	t.Helper()
	if err := store.RunInTx(context.Background(), fn); err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

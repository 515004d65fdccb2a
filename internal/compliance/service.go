// Package compliance maintains the transfer restriction registry of a token:
// groups, holders, holder groups, wallet bindings and transfer rules, together
// with their capacity counters.
package compliance

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"solana-security-token/internal/access"
	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/operation"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
)

const scope = "registry"

var (
	contractAdmin     = []domain.Role{domain.RoleContractAdmin}
	transferAdmin     = []domain.Role{domain.RoleTransferAdmin}
	walletsOrTransfer = []domain.Role{domain.RoleWalletsAdmin, domain.RoleTransferAdmin}
)

// Service implements the registry mutators. Every exported mutator is one
// atomic operation: on error nothing it touched is persisted.
type Service struct {
	runner  *operation.Runner
	checker access.Checker
	deriver *solana.Deriver
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	publisher *audit.Publisher
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPublisher sets the audit publisher.
func WithPublisher(p *audit.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New creates a registry service.
func New(store storage.Store, checker access.Checker, deriver *solana.Deriver, opts ...Option) *Service {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		runner:  operation.NewRunner(store, o.publisher, o.logger.With("component", "compliance")),
		checker: checker,
		deriver: deriver,
	}
}

func (s *Service) run(ctx context.Context, name, caller, mint string, roles []domain.Role, attrs map[string]string, fn operation.Func) error {
	meta := operation.Meta{Name: name, Mint: mint, Scope: scope, Caller: caller, Attrs: attrs}
	return s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		if err := access.Require(ctx, s.checker, mint, caller, roles...); err != nil {
			return err
		}
		return fn(ctx, tx, rec)
	})
}

func (s *Service) read(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.runner.Read(ctx, fn)
}

// notFound maps a store miss to the business error missing.
func notFound(err, missing error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return missing
	}
	return err
}

// duplicate maps a store key collision to the business error exists.
func duplicate(err, exists error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return exists
	}
	return err
}

func attrs(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }

func registry(ctx context.Context, tx storage.Tx, mint string) (*domain.RestrictionRegistry, error) {
	r, err := tx.Registries().Get(ctx, mint)
	if err != nil {
		return nil, notFound(err, domain.ErrRegistryNotFound)
	}
	return r, nil
}

func group(ctx context.Context, tx storage.Tx, mint string, id uint64) (*domain.Group, error) {
	g, err := tx.Groups().Get(ctx, mint, id)
	if err != nil {
		return nil, notFound(err, domain.ErrGroupNotFound)
	}
	return g, nil
}

func holder(ctx context.Context, tx storage.Tx, mint string, id uint64) (*domain.Holder, error) {
	h, err := tx.Holders().Get(ctx, mint, id)
	if err != nil {
		return nil, notFound(err, domain.ErrHolderNotFound)
	}
	return h, nil
}

func holderGroup(ctx context.Context, tx storage.Tx, mint string, groupID, holderID uint64) (*domain.HolderGroup, error) {
	hg, err := tx.HolderGroups().Get(ctx, mint, groupID, holderID)
	if err != nil {
		return nil, notFound(err, domain.ErrHolderGroupNotFound)
	}
	return hg, nil
}

func wallet(ctx context.Context, tx storage.Tx, mint, addr string) (*domain.WalletBinding, error) {
	w, err := tx.Wallets().Get(ctx, mint, addr)
	if err != nil {
		return nil, notFound(err, domain.ErrWalletNotFound)
	}
	return w, nil
}

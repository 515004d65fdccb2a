package token

import (
	"context"
	"log/slog"
	"strconv"

	"solana-security-token/internal/access"
	"solana-security-token/internal/audit"
	"solana-security-token/internal/clock"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/enforcement"
	"solana-security-token/internal/operation"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
)

const scope = "token"

// Service exposes direct token operations.
type Service struct {
	runner  *operation.Runner
	checker access.Checker
	clock   clock.Clock
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	publisher *audit.Publisher
	clock     clock.Clock
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPublisher sets the audit publisher.
func WithPublisher(p *audit.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithClock sets the time source used by enforcement.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates a token service.
func New(store storage.Store, checker access.Checker, opts ...Option) *Service {
	o := options{logger: slog.Default(), clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		runner:  operation.NewRunner(store, o.publisher, o.logger),
		checker: checker,
		clock:   o.clock,
	}
}

// Mint credits amount to wallet. Requires ReserveAdmin.
func (s *Service) Mint(ctx context.Context, caller, mint, wallet string, amount uint64) error {
	meta := s.meta("mint", caller, mint, wallet, wallet, amount)
	return s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
		if err := access.Require(ctx, s.checker, mint, caller, domain.RoleReserveAdmin); err != nil {
			return err
		}
		if !solana.IsValidAddress(wallet) {
			return domain.ErrInvalidAddress
		}
		return MintTo(ctx, tx, mint, wallet, amount)
	})
}

// Transfer moves amount from the caller's wallet to to.
func (s *Service) Transfer(ctx context.Context, caller, mint, to string, amount uint64) error {
	req := domain.MovementRequest{Mint: mint, From: caller, To: to, Amount: amount, Kind: domain.MovementTransfer}
	return s.move(ctx, "transfer", caller, req, nil)
}

// ForceTransfer moves amount between any two wallets, ignoring the pause.
// Requires ReserveAdmin.
func (s *Service) ForceTransfer(ctx context.Context, caller, mint, from, to string, amount uint64) error {
	req := domain.MovementRequest{
		Mint:        mint,
		From:        from,
		To:          to,
		Amount:      amount,
		Kind:        domain.MovementForcedTransfer,
		BypassPause: true,
	}
	return s.move(ctx, "force_transfer", caller, req, func(ctx context.Context) error {
		return access.Require(ctx, s.checker, mint, caller, domain.RoleReserveAdmin)
	})
}

func (s *Service) move(ctx context.Context, name, caller string, req domain.MovementRequest, authorize func(context.Context) error) error {
	meta := s.meta(name, caller, req.Mint, req.From, req.To, req.Amount)
	return s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		if authorize != nil {
			if err := authorize(ctx); err != nil {
				return err
			}
		}
		if !solana.IsValidAddress(req.To) {
			return domain.ErrInvalidAddress
		}
		if req.Amount == 0 {
			return domain.ErrAmountMustBePositive
		}
		now, err := s.clock.Now(ctx)
		if err != nil {
			return err
		}
		d, err := enforcement.Evaluate(ctx, tx, now, req)
		if err != nil {
			return err
		}
		if !d.Allowed {
			return d.Reason
		}
		rec.Record(audit.NewDecisionEvent(req, d, caller))
		return Move(ctx, tx, req.Mint, req.From, req.To, req.Amount)
	})
}

// BalanceOf returns the balance of wallet.
func (s *Service) BalanceOf(ctx context.Context, mint, wallet string) (uint64, error) {
	var bal uint64
	err := s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		bal, err = tx.Balances().Get(ctx, mint, wallet)
		return err
	})
	return bal, err
}

func (s *Service) meta(name, caller, mint, from, to string, amount uint64) operation.Meta {
	return operation.Meta{
		Name:   name,
		Mint:   mint,
		Scope:  scope,
		Caller: caller,
		Attrs: map[string]string{
			"from":   from,
			"to":     to,
			"amount": strconv.FormatUint(amount, 10),
		},
	}
}

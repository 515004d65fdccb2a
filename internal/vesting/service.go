package vesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"solana-security-token/internal/access"
	"solana-security-token/internal/audit"
	"solana-security-token/internal/clock"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/idhash"
	"solana-security-token/internal/observability"
	"solana-security-token/internal/operation"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
)

const scope = "vesting"

// Service manages vesting deployments, their release schedules and the
// timelocks minted against them.
type Service struct {
	runner  *operation.Runner
	checker access.Checker
	deriver *solana.Deriver
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

// WithClock sets the time source. Defaults to the system clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates a vesting service.
func New(store storage.Store, checker access.Checker, deriver *solana.Deriver, opts ...Option) *Service {
	o := options{logger: slog.Default(), clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		runner:  operation.NewRunner(store, o.publisher, o.logger.With("component", "vesting")),
		checker: checker,
		deriver: deriver,
		clock:   o.clock,
	}
}

// InitializeDeployment creates the vesting deployment of mint identified by
// nonce. Its escrow wallet is derived from the deployment address.
func (s *Service) InitializeDeployment(ctx context.Context, caller, mint string, nonce, maxReleaseDelay, minTimelockAmount uint64) (*domain.VestingDeployment, error) {
	meta := operation.Meta{
		Name:   "initialize_deployment",
		Mint:   mint,
		Scope:  scope,
		Caller: caller,
		Attrs: map[string]string{
			"nonce":               itoa(nonce),
			"max_release_delay":   itoa(maxReleaseDelay),
			"min_timelock_amount": itoa(minTimelockAmount),
		},
	}
	var out *domain.VestingDeployment
	err := s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		if err := access.Require(ctx, s.checker, mint, caller, domain.RoleContractAdmin); err != nil {
			return err
		}
		if _, err := tx.Registries().Get(ctx, mint); err != nil {
			return notFound(err, domain.ErrRegistryNotFound)
		}
		addr, err := s.deriver.DeploymentAddress(mint, nonce)
		if err != nil {
			return fmt.Errorf("derive deployment address: %w", err)
		}
		escrow, err := s.deriver.EscrowAddress(addr)
		if err != nil {
			return fmt.Errorf("derive escrow address: %w", err)
		}
		d := &domain.VestingDeployment{
			Address:           addr,
			Mint:              mint,
			Nonce:             nonce,
			EscrowWallet:      escrow,
			MaxReleaseDelay:   maxReleaseDelay,
			MinTimelockAmount: minTimelockAmount,
		}
		if err := tx.Deployments().Insert(ctx, d); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return domain.ErrDeploymentAlreadyExists
			}
			return err
		}
		rec.Annotate("deployment", addr)
		rec.Annotate("escrow", escrow)
		out = d
		return nil
	})
	return out, err
}

// CreateSchedule validates p and appends it to the deployment. Returns the
// schedule id.
func (s *Service) CreateSchedule(ctx context.Context, caller, deployment string, p ScheduleParams) (uint64, error) {
	meta := s.meta("create_schedule", caller, deployment, map[string]string{
		"release_count": itoa(p.ReleaseCount),
		"delay":         itoa(p.DelayUntilFirstReleaseSeconds),
		"initial_bips":  itoa(p.InitialReleaseBips),
		"period":        itoa(p.PeriodBetweenReleasesSeconds),
	})
	var id uint64
	err := s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		d, err := loadDeployment(ctx, tx, rec, deployment)
		if err != nil {
			return err
		}
		if err := access.Require(ctx, s.checker, d.Mint, caller, domain.RoleContractAdmin, domain.RoleReserveAdmin); err != nil {
			return err
		}
		if err := ValidateSchedule(p, d.MaxReleaseDelay); err != nil {
			return err
		}

		id = d.ScheduleCount
		sched := &domain.ReleaseSchedule{
			Deployment:                    deployment,
			ID:                            id,
			ReleaseCount:                  p.ReleaseCount,
			DelayUntilFirstReleaseSeconds: p.DelayUntilFirstReleaseSeconds,
			InitialReleaseBips:            p.InitialReleaseBips,
			PeriodBetweenReleasesSeconds:  p.PeriodBetweenReleasesSeconds,
			SignerHash:                    idhash.ComputeSignerHash(caller, id),
		}
		if err := tx.Schedules().Insert(ctx, sched); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		d.ScheduleCount++
		if err := tx.Deployments().Update(ctx, d); err != nil {
			return fmt.Errorf("update deployment: %w", err)
		}
		rec.Annotate("schedule_id", itoa(id))
		return nil
	})
	if err != nil {
		return 0, err
	}
	observability.RecordScheduleCreated()
	return id, nil
}

func (s *Service) meta(name, caller, deployment string, attrs map[string]string) operation.Meta {
	if attrs == nil {
		attrs = make(map[string]string, 1)
	}
	attrs["deployment"] = deployment
	return operation.Meta{Name: name, Scope: scope, Caller: caller, Attrs: attrs}
}

func (s *Service) now(ctx context.Context) (uint64, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("read clock: %w", err)
	}
	return now, nil
}

// loadDeployment fetches the deployment and names its mint on rec.
func loadDeployment(ctx context.Context, tx storage.Tx, rec *audit.Recorder, addr string) (*domain.VestingDeployment, error) {
	d, err := tx.Deployments().Get(ctx, addr)
	if err != nil {
		return nil, notFound(err, domain.ErrDeploymentNotFound)
	}
	if rec != nil {
		rec.SetMint(d.Mint)
	}
	return d, nil
}

func loadSchedule(ctx context.Context, tx storage.Tx, deployment string, id uint64) (*domain.ReleaseSchedule, error) {
	sched, err := tx.Schedules().Get(ctx, deployment, id)
	if err != nil {
		return nil, notFound(err, domain.ErrInvalidScheduleID)
	}
	return sched, nil
}

func loadTimelock(ctx context.Context, tx storage.Tx, deployment, recipient string, id uint64) (*domain.Timelock, error) {
	t, err := tx.Timelocks().Get(ctx, deployment, recipient, id)
	if err != nil {
		return nil, notFound(err, domain.ErrInvalidTimelockID)
	}
	return t, nil
}

func notFound(err, missing error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return missing
	}
	return err
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }

package reporting

import (
	"context"
	"math"
	"time"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/vesting"
)

// ScheduleSource loads stored release schedules.
type ScheduleSource interface {
	Schedule(ctx context.Context, deployment string, id uint64) (*domain.ReleaseSchedule, error)
}

// Generator produces unlock timeline reports.
type Generator struct {
	source ScheduleSource
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. source may be nil when only
// ad hoc schedules are rendered.
func NewGenerator(source ScheduleSource) *Generator {
	return &Generator{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate renders the timeline of a stored schedule.
func (g *Generator) Generate(ctx context.Context, deployment string, id, commencement, amount uint64) (*Report, error) {
	if g.source == nil {
		return nil, domain.ErrInvalidScheduleID
	}
	sched, err := g.source.Schedule(ctx, deployment, id)
	if err != nil {
		return nil, err
	}
	r := g.build(sched, commencement, amount)
	r.Deployment = deployment
	r.ScheduleID = &id
	return r, nil
}

// GenerateAdHoc validates p like schedule creation does and renders its
// timeline without touching storage.
func (g *Generator) GenerateAdHoc(p vesting.ScheduleParams, commencement, amount uint64) (*Report, error) {
	// No deployment bounds the first release delay here
	if err := vesting.ValidateSchedule(p, math.MaxUint64); err != nil {
		return nil, err
	}
	sched := &domain.ReleaseSchedule{
		ReleaseCount:                  p.ReleaseCount,
		DelayUntilFirstReleaseSeconds: p.DelayUntilFirstReleaseSeconds,
		InitialReleaseBips:            p.InitialReleaseBips,
		PeriodBetweenReleasesSeconds:  p.PeriodBetweenReleasesSeconds,
	}
	return g.build(sched, commencement, amount), nil
}

func (g *Generator) build(s *domain.ReleaseSchedule, commencement, amount uint64) *Report {
	points := vesting.Timeline(s, commencement, amount)

	vestedAt := uint64(math.MaxUint64)
	if offset := vesting.FullVestingOffset(s); offset <= math.MaxUint64-commencement {
		vestedAt = commencement + offset
	}

	return &Report{
		GeneratedAt: g.now(),
		Schedule: ScheduleSummary{
			ReleaseCount:       s.ReleaseCount,
			FirstReleaseDelay:  s.DelayUntilFirstReleaseSeconds,
			InitialReleaseBips: s.InitialReleaseBips,
			ReleasePeriod:      s.PeriodBetweenReleasesSeconds,
		},
		Commencement:  commencement,
		Amount:        amount,
		Points:        points,
		FullyVestedAt: vestedAt,
		Truncated:     uint64(len(points)) < s.ReleaseCount,
	}
}

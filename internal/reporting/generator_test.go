package reporting

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/vesting"
)

type stubSource map[uint64]*domain.ReleaseSchedule

func (s stubSource) Schedule(_ context.Context, _ string, id uint64) (*domain.ReleaseSchedule, error) {
	sched, ok := s[id]
	if !ok {
		return nil, domain.ErrInvalidScheduleID
	}
	return sched, nil
}

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func quarterly() *domain.ReleaseSchedule {
	return &domain.ReleaseSchedule{
		Deployment:                   "dep",
		ID:                           0,
		ReleaseCount:                 4,
		InitialReleaseBips:           2500,
		PeriodBetweenReleasesSeconds: 100,
	}
}

func TestGenerator_Generate(t *testing.T) {
	gen := NewGenerator(stubSource{0: quarterly()}).WithClock(func() time.Time { return fixedTime })

	r, err := gen.Generate(context.Background(), "dep", 0, 1000, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.Deployment != "dep" || r.ScheduleID == nil || *r.ScheduleID != 0 {
		t.Errorf("unexpected identity: %q %v", r.Deployment, r.ScheduleID)
	}
	if !r.GeneratedAt.Equal(fixedTime) {
		t.Errorf("GeneratedAt = %v, want %v", r.GeneratedAt, fixedTime)
	}
	if r.FullyVestedAt != 1300 {
		t.Errorf("FullyVestedAt = %d, want 1300", r.FullyVestedAt)
	}
	if r.Truncated {
		t.Error("expected complete timeline")
	}

	wantUnlocked := []uint64{250, 500, 750, 1000}
	if len(r.Points) != len(wantUnlocked) {
		t.Fatalf("expected %d points, got %d", len(wantUnlocked), len(r.Points))
	}
	for i, p := range r.Points {
		if p.Unlocked != wantUnlocked[i] {
			t.Errorf("point %d: unlocked = %d, want %d", i, p.Unlocked, wantUnlocked[i])
		}
		if p.Timestamp != 1000+uint64(i)*100 {
			t.Errorf("point %d: timestamp = %d", i, p.Timestamp)
		}
		if p.Released != 250 || p.Locked != 1000-p.Unlocked {
			t.Errorf("point %d: released = %d, locked = %d", i, p.Released, p.Locked)
		}
	}
}

func TestGenerator_GenerateUnknownSchedule(t *testing.T) {
	gen := NewGenerator(stubSource{})
	if _, err := gen.Generate(context.Background(), "dep", 3, 0, 1); !errors.Is(err, domain.ErrInvalidScheduleID) {
		t.Errorf("expected ErrInvalidScheduleID, got %v", err)
	}

	if _, err := NewGenerator(nil).Generate(context.Background(), "dep", 0, 0, 1); !errors.Is(err, domain.ErrInvalidScheduleID) {
		t.Errorf("expected ErrInvalidScheduleID without source, got %v", err)
	}
}

func TestGenerator_GenerateAdHoc(t *testing.T) {
	gen := NewGenerator(nil).WithClock(func() time.Time { return fixedTime })

	_, err := gen.GenerateAdHoc(vesting.ScheduleParams{ReleaseCount: 1, InitialReleaseBips: 5000}, 0, 10)
	if !errors.Is(err, domain.ErrInitReleasePortionMustBe100Pct) {
		t.Errorf("expected ErrInitReleasePortionMustBe100Pct, got %v", err)
	}

	// Releases past the end of the uint64 clock are dropped
	r, err := gen.GenerateAdHoc(vesting.ScheduleParams{
		ReleaseCount:                 3,
		InitialReleaseBips:           0,
		PeriodBetweenReleasesSeconds: math.MaxUint64 / 2,
	}, 10, 9)
	if err != nil {
		t.Fatalf("GenerateAdHoc failed: %v", err)
	}
	if !r.Truncated || len(r.Points) != 2 {
		t.Errorf("expected 2 points and truncation, got %d points truncated=%v", len(r.Points), r.Truncated)
	}
	if r.FullyVestedAt != math.MaxUint64 {
		t.Errorf("FullyVestedAt = %d, want saturation", r.FullyVestedAt)
	}
	if r.ScheduleID != nil || r.Deployment != "" {
		t.Error("ad hoc report should carry no schedule identity")
	}
}

func TestRenderCSV(t *testing.T) {
	gen := NewGenerator(stubSource{0: quarterly()})
	r, err := gen.Generate(context.Background(), "dep", 0, 0, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(r.Points)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	if lines[0] != "index,timestamp,released,unlocked,locked" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[2] != "1,100,250,500,500" {
		t.Errorf("unexpected row: %s", lines[2])
	}
}

func TestRenderMarkdown(t *testing.T) {
	gen := NewGenerator(stubSource{0: quarterly()}).WithClock(func() time.Time { return fixedTime })
	r, err := gen.Generate(context.Background(), "dep", 0, 0, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)
	expectedSections := []string{
		"# Unlock Timeline",
		"Generated: 2026-01-02T03:04:05Z",
		"Deployment: dep",
		"## Schedule",
		"| Initial Release (bips) | 2500 |",
		"## Grant",
		"| Fully Vested | 1970-01-01T00:05:00Z |",
		"## Releases",
		"| 3 | 1970-01-01T00:05:00Z | 250 | 1000 | 0 |",
	}
	for _, section := range expectedSections {
		if !strings.Contains(md, section) {
			t.Errorf("missing section: %s", section)
		}
	}
	if strings.Contains(md, "truncated") {
		t.Error("complete timeline should not be marked truncated")
	}
}

func TestFormatUnix(t *testing.T) {
	if got := formatUnix(0); got != "1970-01-01T00:00:00Z" {
		t.Errorf("formatUnix(0) = %s", got)
	}
	if got := formatUnix(math.MaxUint64); got != "18446744073709551615" {
		t.Errorf("formatUnix(max) = %s", got)
	}
}

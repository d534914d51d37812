package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/coverage"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/recurrence"
)

// dashboardConcurrency bounds the churches analyzed at once.
const dashboardConcurrency = 4

// DashboardService computes coverage snapshots from saved schedules.
type DashboardService struct {
	churches  persistence.ChurchRepository
	services  persistence.ServiceRepository
	schedules persistence.ScheduleRepository
	analyzer  *coverage.Analyzer
	location  *time.Location
	cache     *snapshotCache
	now       func() time.Time
	logger    *slog.Logger
}

// NewDashboardService wires dependencies for coverage dashboards. A
// non-positive cacheTTL falls back to 30 seconds.
func NewDashboardService(churches persistence.ChurchRepository, services persistence.ServiceRepository, schedules persistence.ScheduleRepository, expander *recurrence.Expander, cacheTTL time.Duration, now func() time.Time, logger *slog.Logger) *DashboardService {
	if expander == nil {
		expander = recurrence.NewExpander(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		churches:  churches,
		services:  services,
		schedules: schedules,
		analyzer:  coverage.NewAnalyzer(expander),
		location:  expander.Location(),
		cache:     newSnapshotCache(cacheTTL, 256, now),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// Invalidate drops the cached snapshots of a church.
func (s *DashboardService) Invalidate(churchID string) {
	s.cache.InvalidateChurch(churchID)
}

// Dashboard returns the coverage snapshot of one church.
func (s *DashboardService) Dashboard(ctx context.Context, params DashboardParams) (coverage.Snapshot, error) {
	logger := serviceLogger(ctx, s.logger, "DashboardService", "Dashboard", "church_id", params.ChurchID)

	if vErr := validateParams(params); vErr != nil {
		return coverage.Snapshot{}, vErr
	}
	start, end, err := s.period(params.Start, params.End)
	if err != nil {
		return coverage.Snapshot{}, err
	}
	church, err := s.churches.GetChurch(ctx, params.ChurchID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return coverage.Snapshot{}, newValidationError("church_id", "church not found")
		}
		return coverage.Snapshot{}, err
	}

	now := s.now()
	key := snapshotCacheKey(params.ChurchID, start, end, calendar.Day(now, s.location))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	services, err := s.services.ListServices(ctx, params.ChurchID)
	if err != nil {
		return coverage.Snapshot{}, fmt.Errorf("list services: %w", err)
	}
	items, err := s.schedules.ListItems(ctx, persistence.ItemFilter{ChurchID: params.ChurchID, From: &start, To: &end})
	if err != nil {
		return coverage.Snapshot{}, fmt.Errorf("list saved items: %w", err)
	}

	snapshot := s.analyzer.Analyze(coverage.Input{
		Assignments: items,
		Services:    services,
		PeriodStart: start,
		PeriodEnd:   end,
		Now:         now,

		SameMusicianBothRoles: church.SameMusicianBothRoles,
	})
	s.cache.Store(key, snapshot)
	logger.DebugContext(ctx, "coverage computed",
		"expected", snapshot.ExpectedSlotCount, "covered", snapshot.CoveredSlotCount, "conflicts", snapshot.ConflictCount)
	return snapshot, nil
}

// Dashboards computes the snapshots of several churches concurrently. The
// first failure cancels the remaining work.
func (s *DashboardService) Dashboards(ctx context.Context, churchIDs []string, start, end time.Time) (map[string]coverage.Snapshot, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(dashboardConcurrency)

	var mu sync.Mutex
	out := make(map[string]coverage.Snapshot, len(churchIDs))
	for _, churchID := range churchIDs {
		group.Go(func() error {
			snapshot, err := s.Dashboard(groupCtx, DashboardParams{ChurchID: churchID, Start: start, End: end})
			if err != nil {
				return fmt.Errorf("church %s: %w", churchID, err)
			}
			mu.Lock()
			out[churchID] = snapshot
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// period defaults to the current month and rejects inverted ranges.
func (s *DashboardService) period(start, end time.Time) (time.Time, time.Time, error) {
	today := calendar.Day(s.now(), s.location)
	if start.IsZero() {
		start = calendar.StartOfMonth(today)
	}
	if end.IsZero() {
		end = calendar.EndOfMonth(calendar.Day(start, s.location))
	}
	start, end = calendar.Day(start, s.location), calendar.Day(end, s.location)
	if end.Before(start) {
		return time.Time{}, time.Time{}, newValidationError("end", "end date must not be before start date")
	}
	return start, end, nil
}

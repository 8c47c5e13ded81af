// Package worker runs the scheduled report pipeline: a Scheduler that
// publishes one report job per active owner at the end of each period,
// and a Reporter that turns consumed jobs into export artifacts.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"riel/internal/amqp"
	"riel/internal/core"
)

// JobPublisher posts report jobs onto the queue.
type JobPublisher interface {
	PublishReportJob(ctx context.Context, job *amqp.ReportJob) error
}

// OwnerLister reports which owners recorded entries inside a window.
type OwnerLister interface {
	ActiveOwners(ctx context.Context, w core.PeriodWindow) ([]string, error)
}

type Scheduler struct {
	owners    OwnerLister
	publisher JobPublisher
	loc       *time.Location
}

func NewScheduler(owners OwnerLister, publisher JobPublisher, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{owners: owners, publisher: publisher, loc: loc}
}

// NextRun returns the first run time for kind strictly after the given
// instant. Daily reports fire at 23:55, weekly on Monday at 23:59,
// monthly on the 1st at 00:05, all in loc.
func NextRun(kind core.PeriodKind, after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)

	switch kind {
	case Daily:
		run := time.Date(local.Year(), local.Month(), local.Day(), 23, 55, 0, 0, loc)
		if !run.After(after) {
			run = run.AddDate(0, 0, 1)
		}
		return run

	case Weekly:
		daysSinceMonday := (int(local.Weekday()) + 6) % 7
		run := time.Date(local.Year(), local.Month(), local.Day()-daysSinceMonday, 23, 59, 0, 0, loc)
		if !run.After(after) {
			run = run.AddDate(0, 0, 7)
		}
		return run

	case Monthly:
		run := time.Date(local.Year(), local.Month(), 1, 0, 5, 0, 0, loc)
		if !run.After(after) {
			run = run.AddDate(0, 1, 0)
		}
		return run
	}
	return time.Time{}
}

// Daily, Weekly, Monthly re-exported for call sites that range over kinds.
const (
	Daily   = core.Daily
	Weekly  = core.Weekly
	Monthly = core.Monthly
)

// Run fires jobs for every period kind until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range []core.PeriodKind{Daily, Weekly, Monthly} {
		kind := kind
		g.Go(func() error {
			return s.runKind(ctx, kind)
		})
	}
	return g.Wait()
}

func (s *Scheduler) runKind(ctx context.Context, kind core.PeriodKind) error {
	for {
		next := NextRun(kind, time.Now(), s.loc)
		slog.InfoContext(ctx, "Scheduled next report run",
			"period", kind,
			"at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.fire(ctx, kind, next); err != nil {
			slog.ErrorContext(ctx, "Report run failed",
				"period", kind,
				"error", err)
		}
	}
}

// fire publishes one job per owner that was active inside the window
// the run reports on.
func (s *Scheduler) fire(ctx context.Context, kind core.PeriodKind, at time.Time) error {
	window, err := core.Resolve(kind, reportReference(kind, at), s.loc)
	if err != nil {
		return fmt.Errorf("resolve window: %w", err)
	}

	owners, err := s.owners.ActiveOwners(ctx, window)
	if err != nil {
		return fmt.Errorf("list active owners: %w", err)
	}

	slog.InfoContext(ctx, "Publishing report jobs",
		"period", kind,
		"window", window.Label,
		"owners", len(owners))

	for _, owner := range owners {
		job := amqp.NewReportJob(owner, kind)
		job.IssuedAt = at
		if err := s.publisher.PublishReportJob(ctx, job); err != nil {
			return fmt.Errorf("publish job for %s: %w", owner, err)
		}
	}
	return nil
}

// reportReference maps a run time to an instant inside the window the
// run reports on. The daily run fires before its day ends, so the run
// time itself lands in the right window. Weekly and monthly runs fire
// just after their period rolls over; stepping back one day lands in
// the completed week or month.
func reportReference(kind core.PeriodKind, at time.Time) time.Time {
	switch kind {
	case Weekly, Monthly:
		return at.AddDate(0, 0, -1)
	}
	return at
}

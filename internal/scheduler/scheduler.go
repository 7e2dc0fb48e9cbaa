// Package scheduler runs the daily discovery pass and the publish-hour
// generation batches at wall-clock times in a configured timezone.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/ottgen/internal/config"
	"github.com/timmy/ottgen/internal/logger"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Job fires Task every day at Hour:Minute in the scheduler's location.
type Job struct {
	Name   string
	Hour   int
	Minute int
	Task   Task
}

// Scheduler fires daily jobs until its context is cancelled.
type Scheduler struct {
	jobs  []Job
	loc   *time.Location
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a scheduler that runs parse at the parse time and batch at every publish hour.
func New(cfg config.ScheduleConfig, parse, batch Task) *Scheduler {
	jobs := []Job{{Name: "parse", Hour: cfg.ParseHour, Minute: cfg.ParseMinute, Task: parse}}
	for _, h := range cfg.PublishHours {
		jobs = append(jobs, Job{
			Name:   fmt.Sprintf("generate_%02d", h),
			Hour:   h,
			Minute: cfg.PublishMinute,
			Task:   batch,
		})
	}
	return NewWithJobs(jobs, cfg.Location())
}

// NewWithJobs creates a scheduler for an explicit job list.
func NewWithJobs(jobs []Job, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		jobs:  jobs,
		loc:   loc,
		now:   time.Now,
		after: time.After,
	}
}

// NextFire returns the first instant strictly after now that reads hour:minute in loc.
func NextFire(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Next returns the next fire time and every job due at that instant.
func (s *Scheduler) Next(now time.Time) (time.Time, []Job) {
	var (
		at  time.Time
		due []Job
	)
	for _, j := range s.jobs {
		t := NextFire(now, s.loc, j.Hour, j.Minute)
		switch {
		case at.IsZero() || t.Before(at):
			at, due = t, []Job{j}
		case t.Equal(at):
			due = append(due, j)
		}
	}
	// Discovery runs before a batch scheduled for the same minute.
	sort.SliceStable(due, func(a, b int) bool { return due[a].Name == "parse" && due[b].Name != "parse" })
	return at, due
}

// Run blocks until ctx is cancelled, firing each job at its daily time.
// Jobs run one at a time; a job error is logged and does not stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.jobs) == 0 {
		<-ctx.Done()
		return
	}

	ctx = logger.SetComponent(ctx, "scheduler")
	for {
		at, due := s.Next(s.now())
		logger.CtxInfo(ctx, "Next run at %s (%d job(s))", at.Format(time.RFC3339), len(due))

		select {
		case <-ctx.Done():
			return
		case <-s.after(at.Sub(s.now())):
		}

		for _, j := range due {
			if ctx.Err() != nil {
				return
			}
			s.runJob(ctx, j)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	// A started job runs to completion even if shutdown begins.
	ctx = logger.SetRunID(context.WithoutCancel(ctx), uuid.NewString())
	start := time.Now()
	if err := j.Task(ctx); err != nil {
		logger.With(logger.Fields{"job": j.Name}).Since(start).Error(ctx, "Scheduled job failed: %v", err)
		return
	}
	logger.With(logger.Fields{"job": j.Name}).Since(start).Info(ctx, "Scheduled job finished")
}

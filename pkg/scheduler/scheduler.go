// Package scheduler submits recurring intents on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// Submitter is the slice of the runner the scheduler needs.
type Submitter interface {
	ExecuteAsync(intent models.Intent, state models.ProjectState, userID, projectID string, callback protocol.ProgressCallback) string
}

// Schedule binds a cron expression to an intent submission.
type Schedule struct {
	ID        string        `json:"id"         validate:"required"`
	CronExpr  string        `json:"cron_expr"  validate:"required"`
	Intent    models.Intent `json:"intent"     validate:"required"`
	UserID    string        `json:"user_id"`
	ProjectID string        `json:"project_id"`
}

// Scheduler fires registered schedules through the async runner.
type Scheduler struct {
	cron      *cron.Cron
	submitter Submitter
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(logger *slog.Logger, submitter Submitter) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		submitter: submitter,
		logger:    logger.With("module", "scheduler"),
		entries:   make(map[string]cron.EntryID),
	}
}

// Add registers a schedule. Re-adding an ID replaces the previous schedule.
func (s *Scheduler) Add(schedule Schedule) error {
	if schedule.CronExpr == "" {
		return fmt.Errorf("schedule %s has no cron expression", schedule.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[schedule.ID]; exists {
		s.cron.Remove(entryID)
	}

	entryID, err := s.cron.AddFunc(schedule.CronExpr, func() {
		executionID := s.submitter.ExecuteAsync(schedule.Intent, models.ProjectState{}, schedule.UserID, schedule.ProjectID, protocol.NoopCallback{})
		s.logger.Info("Submitted scheduled intent", "schedule_id", schedule.ID, "intent", schedule.Intent.Name, "execution_id", executionID)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression for schedule %s: %w", schedule.ID, err)
	}

	s.entries[schedule.ID] = entryID
	s.logger.Info("Registered schedule", "schedule_id", schedule.ID, "cron", schedule.CronExpr)

	return nil
}

// Remove drops a schedule by ID.
func (s *Scheduler) Remove(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[scheduleID]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, scheduleID)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/connector"
	"github.com/yourusername/footy-edge/internal/models"
)

// Scheduler runs the slow-cadence daily syncs (historical odds, ratings,
// valuations) on cron expressions, alongside the fast polling loops.
type Scheduler struct {
	cron            *cron.Cron
	orchestrator    *Orchestrator
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new daily-sync scheduler
func NewScheduler(orch *Orchestrator, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		orchestrator:    orch,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleDailySync schedules a wide-window sync for one source kind
func (s *Scheduler) ScheduleDailySync(cronExpression string, kind models.SourceKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		end := time.Now()
		start := end.Add(-7 * 24 * time.Hour)

		s.logger.WithFields(logrus.Fields{
			"connector": string(kind),
			"from":      start.Format("2006-01-02"),
			"to":        end.Format("2006-01-02"),
		}).Info("Starting scheduled daily sync")

		sel := connector.FixtureSelector{From: start, To: end}
		if err := s.orchestrator.Sync(ctx, kind, sel); err != nil {
			s.logger.WithField("connector", string(kind)).WithError(err).Error("Scheduled daily sync failed")
			return
		}

		snap := s.orchestrator.Stats()[kind]
		s.logger.WithField("connector", string(kind)).Infof("Scheduled daily sync complete: %s", snap.String())
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"connector": string(kind),
		"cron":      cronExpression,
	}).Info("Scheduled daily sync job")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Daily-sync scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Daily-sync scheduler stop timed out")
	}
	s.isRunning = false
	s.logger.Info("Daily-sync scheduler stopped")

	return nil
}

// IsRunning reports whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled job run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}

// Package scheduler retires delivered copies after their grace period.
// Jobs are keyed by (chat, message) so re-scheduling a key replaces the
// earlier job instead of producing a second deletion.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/models"
)

// MessageDeleter performs the deletion side effect when a job fires
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int64) error
}

// armedJob tracks one scheduled timer. The generation lets a firing
// callback detect that it has been superseded by a later Schedule call
// for the same key, so a key can never fire twice.
type armedJob struct {
	gen   uint64
	timer *time.Timer
}

// ExpiryScheduler is the process-wide registry of pending auto-deletes
type ExpiryScheduler struct {
	db      *models.Database
	deleter MessageDeleter
	cron    *cron.Cron
	logger  *logrus.Logger

	mu      sync.Mutex
	nextGen uint64
	jobs    map[string]armedJob
}

// NewExpiryScheduler creates a new expiry scheduler
func NewExpiryScheduler(db *models.Database, deleter MessageDeleter, logger *logrus.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		db:      db,
		deleter: deleter,
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]armedJob),
	}
}

func jobKey(chatID, messageID int64) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

// Start re-arms jobs persisted before the last shutdown and begins the
// periodic sweep that re-arms anything the registry has lost track of
func (s *ExpiryScheduler) Start() error {
	s.logger.Info("Starting expiry scheduler")

	if err := s.recover(); err != nil {
		return fmt.Errorf("failed to recover persisted expiry jobs: %w", err)
	}

	_, err := s.cron.AddFunc("@every 10m", func() {
		if err := s.recover(); err != nil {
			s.logger.WithError(err).Error("Expiry sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add expiry sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Expiry scheduler started")
	return nil
}

// Stop stops the sweep and disarms pending timers. Persisted jobs will be
// recovered on the next Start.
func (s *ExpiryScheduler) Stop() {
	s.logger.Info("Stopping expiry scheduler")
	s.cron.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, job := range s.jobs {
		job.timer.Stop()
		delete(s.jobs, key)
	}
}

// Schedule registers a one-shot deletion of a delivered message at dueAt.
// Scheduling an already-registered (chat, message) key replaces the earlier
// job. The caller is not blocked beyond the registry insert.
func (s *ExpiryScheduler) Schedule(chatID int64, messageID int64, dueAt time.Time) error {
	key := jobKey(chatID, messageID)

	if err := s.db.SaveExpiryJob(&models.ExpiryJob{
		Key:       key,
		ChatID:    chatID,
		MessageID: messageID,
		DueAt:     dueAt,
	}); err != nil {
		return fmt.Errorf("failed to persist expiry job: %w", err)
	}

	s.arm(key, chatID, messageID, dueAt)

	s.logger.WithFields(logrus.Fields{
		"chat_id":    chatID,
		"message_id": messageID,
		"due_at":     dueAt,
	}).Info("Scheduled message expiry")
	return nil
}

// arm installs a timer for a key, replacing any existing one
func (s *ExpiryScheduler) arm(key string, chatID, messageID int64, dueAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[key]; ok {
		existing.timer.Stop()
	}

	s.nextGen++
	gen := s.nextGen
	// AfterFunc fires in its own goroutine, so one slow delete call never
	// holds up other due jobs
	timer := time.AfterFunc(time.Until(dueAt), func() {
		s.fire(key, gen, chatID, messageID)
	})
	s.jobs[key] = armedJob{gen: gen, timer: timer}
}

// fire performs the deletion side effect and retires the job. Deletion
// failure is logged, never retried; the upstream may already have removed
// the message.
func (s *ExpiryScheduler) fire(key string, gen uint64, chatID, messageID int64) {
	s.mu.Lock()
	current, ok := s.jobs[key]
	if !ok || current.gen != gen {
		// Superseded by a later Schedule for the same key
		s.mu.Unlock()
		return
	}
	delete(s.jobs, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.deleter.DeleteMessage(ctx, chatID, messageID); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
		}).Warn("Failed to delete expired message")
	} else {
		s.logger.WithFields(logrus.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
		}).Info("Deleted expired message")
	}

	if err := s.db.DeleteExpiryJob(key); err != nil {
		s.logger.WithError(err).Error("Failed to remove expiry job record")
	}
}

// recover arms timers for persisted jobs that are not in the registry.
// Overdue jobs fire immediately.
func (s *ExpiryScheduler) recover() error {
	persisted, err := s.db.GetAllExpiryJobs()
	if err != nil {
		return err
	}

	for _, job := range persisted {
		s.mu.Lock()
		_, armed := s.jobs[job.Key]
		s.mu.Unlock()
		if armed {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"key":    job.Key,
			"due_at": job.DueAt,
		}).Info("Re-arming persisted expiry job")
		s.arm(job.Key, job.ChatID, job.MessageID, job.DueAt)
	}

	return nil
}

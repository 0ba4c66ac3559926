package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/models"
)

// How often the running scheduler re-reads source configuration.
const syncInterval = time.Minute

// IntervalSourceLister enumerates the enabled interval-driven sources
// whose checks must be kept on a timer.
type IntervalSourceLister interface {
	ListInterval(ctx context.Context) ([]models.Source, error)
}

// Scheduler keeps one periodic source:check entry per interval-driven
// source. Sync reconciles the registered entries against the current
// source configuration, so edits take effect without a restart:
// changing a source's interval replaces its timer, and new, disabled
// or deleted sources are picked up on the next sync.
type Scheduler struct {
	scheduler *asynq.Scheduler
	lister    IntervalSourceLister

	mu      sync.Mutex
	entries map[string]scheduleEntry // source ID -> registered entry
}

type scheduleEntry struct {
	id       string // asynq entry ID
	interval int    // seconds the entry was registered with
}

func NewScheduler(cfg config.RedisConfig, lister IntervalSourceLister) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(
			asynq.RedisClientOpt{
				Addr:     cfg.Addr,
				Password: cfg.Password,
				DB:       cfg.DB,
			},
			&asynq.SchedulerOpts{},
		),
		lister:  lister,
		entries: make(map[string]scheduleEntry),
	}
}

// Sync registers entries for new interval sources, replaces entries
// whose interval changed, and unregisters entries whose source was
// deleted, disabled, or made interactive.
func (s *Scheduler) Sync(ctx context.Context) error {
	sources, err := s.lister.ListInterval(ctx)
	if err != nil {
		return fmt.Errorf("list interval sources: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(sources))
	for i := range sources {
		source := &sources[i]
		sourceID := source.ID.String()
		seen[sourceID] = true

		interval := checkInterval(source.IntervalSeconds)
		current, registered := s.entries[sourceID]
		if registered && current.interval == interval {
			continue
		}
		if registered {
			if err := s.scheduler.Unregister(current.id); err != nil {
				return fmt.Errorf("unregister source %s: %w", sourceID, err)
			}
		}
		entryID, err := s.register(source, interval)
		if err != nil {
			return err
		}
		s.entries[sourceID] = scheduleEntry{id: entryID, interval: interval}
		if registered {
			slog.Info("rescheduled source check",
				"source_id", source.ID, "label", source.Label, "interval_seconds", interval)
		} else {
			slog.Info("scheduled source check",
				"source_id", source.ID, "label", source.Label, "interval_seconds", interval)
		}
	}

	for sourceID, entry := range s.entries {
		if seen[sourceID] {
			continue
		}
		if err := s.scheduler.Unregister(entry.id); err != nil {
			return fmt.Errorf("unregister source %s: %w", sourceID, err)
		}
		delete(s.entries, sourceID)
		slog.Info("unscheduled source check", "source_id", sourceID)
	}
	return nil
}

// checkInterval floors pathological configuration so a zero or
// negative interval cannot hot-loop the check.
func checkInterval(seconds int) int {
	if seconds <= 0 {
		return 60
	}
	return seconds
}

func (s *Scheduler) register(source *models.Source, interval int) (string, error) {
	payload, err := json.Marshal(SourceCheckPayload{SourceID: source.ID.String()})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	entryID, err := s.scheduler.Register(
		fmt.Sprintf("@every %ds", interval),
		asynq.NewTask(TypeSourceCheck, payload),
		asynq.MaxRetry(1),
	)
	if err != nil {
		return "", fmt.Errorf("register source %s: %w", source.ID, err)
	}
	return entryID, nil
}

// Run starts the scheduler after an initial Sync and blocks until
// shutdown, re-syncing source configuration on a timer. The hourly
// retention sweep rides on the same scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.scheduler.Register(
		"@every 1h",
		asynq.NewTask(TypeRetentionApply, nil),
		asynq.MaxRetry(0),
	); err != nil {
		return fmt.Errorf("register retention sweep: %w", err)
	}
	if err := s.Sync(ctx); err != nil {
		return err
	}

	go s.syncLoop(ctx)

	if err := s.scheduler.Run(); err != nil {
		return fmt.Errorf("run scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				slog.Error("source schedule sync failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}

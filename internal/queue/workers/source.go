package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docvault/docvault/internal/queue"
	"github.com/docvault/docvault/internal/sources"
)

// SourceWorker runs one poll tick of an interval-driven source. A
// source deleted between scheduling and execution is not an error.
type SourceWorker struct {
	sourceSvc *sources.Service
}

func NewSourceWorker(sourceSvc *sources.Service) *SourceWorker {
	return &SourceWorker{sourceSvc: sourceSvc}
}

func (w *SourceWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.SourceCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sourceID, err := uuid.Parse(payload.SourceID)
	if err != nil {
		return fmt.Errorf("parse source ID: %w", err)
	}

	if err := w.sourceSvc.CheckSource(ctx, sourceID); err != nil {
		if errors.Is(err, sources.ErrNotFound) {
			slog.Warn("skipping check of deleted source", "source_id", sourceID)
			return nil
		}
		return fmt.Errorf("check source: %w", err)
	}

	slog.Debug("source checked", "source_id", sourceID)
	return nil
}

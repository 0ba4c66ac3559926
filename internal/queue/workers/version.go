package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docvault/docvault/internal/document"
	"github.com/docvault/docvault/internal/queue"
)

// VersionWorker runs the version processing pipeline for uploaded
// content. Re-delivered tasks resolve to the version already created
// for the same content key, so duplicate deliveries are harmless.
type VersionWorker struct {
	pipeline *document.Pipeline
}

func NewVersionWorker(pipeline *document.Pipeline) *VersionWorker {
	return &VersionWorker{pipeline: pipeline}
}

func (w *VersionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.VersionCreatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	documentID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	var actor *uuid.UUID
	if payload.Actor != "" {
		id, err := uuid.Parse(payload.Actor)
		if err != nil {
			return fmt.Errorf("parse actor ID: %w", err)
		}
		actor = &id
	}

	slog.Info("processing version", "document_id", documentID, "content_key", payload.ContentKey)

	version, pages, err := w.pipeline.CreateVersion(ctx, documentID, payload.ContentKey, payload.Comment, actor)
	if err != nil {
		return fmt.Errorf("create version: %w", err)
	}

	slog.Info("version processed",
		"document_id", documentID, "version_id", version.ID, "pages", len(pages))
	return nil
}

package workers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/docvault/docvault/internal/document"
)

// RetentionWorker applies the per-type trash and purge periods across
// all documents.
type RetentionWorker struct {
	docSvc *document.Service
}

func NewRetentionWorker(docSvc *document.Service) *RetentionWorker {
	return &RetentionWorker{docSvc: docSvc}
}

func (w *RetentionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	slog.Info("applying retention periods")
	return w.docSvc.ApplyRetention(ctx)
}

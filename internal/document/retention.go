package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docvault/docvault/internal/models"
)

// ApplyRetention enforces each document type's retention policy:
// documents past the type's trash period move to the trash, trashed
// documents past the delete period are purged permanently. Runs as a
// periodic maintenance task.
func (s *Service) ApplyRetention(ctx context.Context) error {
	types, err := s.types.List(ctx)
	if err != nil {
		return fmt.Errorf("list document types: %w", err)
	}

	now := time.Now()
	for _, documentType := range types {
		if documentType.TrashTimePeriod != nil {
			cutoff := now.Add(-models.RetentionDelta(*documentType.TrashTimePeriod, documentType.TrashTimeUnit))
			expired, err := s.documents.ListExpired(ctx, documentType.ID, false, cutoff)
			if err != nil {
				return err
			}
			for i := range expired {
				if err := s.Trash(ctx, expired[i].ID); err != nil {
					return err
				}
				slog.Info("document trashed by retention", "document_id", expired[i].ID, "document_type", documentType.Name)
			}
		}

		cutoff := now.Add(-models.RetentionDelta(documentType.DeleteTimePeriod, documentType.DeleteTimeUnit))
		purgeable, err := s.documents.ListExpired(ctx, documentType.ID, true, cutoff)
		if err != nil {
			return err
		}
		for i := range purgeable {
			if err := s.DeleteDocument(ctx, purgeable[i].ID); err != nil {
				return err
			}
			slog.Info("document purged by retention", "document_id", purgeable[i].ID, "document_type", documentType.Name)
		}
	}
	return nil
}

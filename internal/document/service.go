package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/events"
	"github.com/docvault/docvault/internal/models"
	"github.com/docvault/docvault/internal/storage"
)

// VersionEnqueuer hands version creation jobs to the background queue.
// Delivery is at-least-once; the pipeline is idempotent per content
// key, so duplicate delivery is harmless.
type VersionEnqueuer interface {
	EnqueueVersionCreate(documentID uuid.UUID, contentKey, comment string, actor *uuid.UUID) error
}

// Service is the request-side surface of the document subsystem:
// document lifecycle, upload staging and version management. Heavy
// processing is deferred to the Pipeline through the enqueuer.
type Service struct {
	types           DocumentTypeRepository
	documents       DocumentRepository
	versions        VersionRepository
	transformations TransformationRepository
	store           storage.ContentStore
	renderer        *Renderer
	enqueuer        VersionEnqueuer
	recent          *RecentDocuments
	bus             *events.Bus
	defaultLanguage string
}

func NewService(
	types DocumentTypeRepository,
	documents DocumentRepository,
	versions VersionRepository,
	transformations TransformationRepository,
	store storage.ContentStore,
	renderer *Renderer,
	enqueuer VersionEnqueuer,
	recent *RecentDocuments,
	bus *events.Bus,
	defaultLanguage string,
) *Service {
	return &Service{
		types:           types,
		documents:       documents,
		versions:        versions,
		transformations: transformations,
		store:           store,
		renderer:        renderer,
		enqueuer:        enqueuer,
		recent:          recent,
		bus:             bus,
		defaultLanguage: defaultLanguage,
	}
}

// NewDocument creates a stub document of the given type. The stub flag
// stays set until the pipeline lands its first version.
func (s *Service) NewDocument(ctx context.Context, documentTypeID uuid.UUID, label, description, language string, actor *uuid.UUID) (*models.Document, error) {
	if _, err := s.types.GetByID(ctx, documentTypeID); err != nil {
		return nil, fmt.Errorf("get document type: %w", err)
	}

	if language == "" {
		language = s.defaultLanguage
	}

	document := &models.Document{
		DocumentTypeID: documentTypeID,
		Label:          label,
		Description:    description,
		Language:       language,
	}
	if err := s.documents.Create(ctx, document); err != nil {
		return nil, err
	}

	if actor != nil {
		if err := s.recent.Add(ctx, *actor, document.ID); err != nil {
			slog.Warn("recording recent document failed", "document_id", document.ID, "error", err)
		}
	}
	return document, nil
}

// NewVersion durably stores the upload and queues version creation.
// It returns the content key once the bytes are safe; the version row
// appears when the worker finishes.
func (s *Service) NewVersion(ctx context.Context, documentID uuid.UUID, r io.Reader, comment string, actor *uuid.UUID) (string, error) {
	if _, err := s.documents.GetByID(ctx, documentID); err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}

	contentKey := uuid.New().String()
	if _, err := s.store.Put(ctx, contentKey, r); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	if err := s.enqueuer.EnqueueVersionCreate(documentID, contentKey, comment, actor); err != nil {
		// Enqueue failed, the stored bytes are orphaned; clean up.
		if cleanupErr := s.store.Delete(ctx, contentKey); cleanupErr != nil {
			slog.Error("orphaned content cleanup failed", "content_key", contentKey, "error", cleanupErr)
		}
		return "", fmt.Errorf("enqueue version creation: %w", err)
	}

	slog.Info("version creation queued", "document_id", documentID, "content_key", contentKey)
	return contentKey, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return s.documents.GetByID(ctx, id)
}

// RecordAccess marks the document as recently used by the user.
func (s *Service) RecordAccess(ctx context.Context, userID, documentID uuid.UUID) error {
	return s.recent.Add(ctx, userID, documentID)
}

// LatestVersion returns the version with the greatest timestamp.
func (s *Service) LatestVersion(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error) {
	return s.versions.Latest(ctx, documentID)
}

// Trash soft-deletes the document. The content and versions survive
// until the trash is emptied or retention purges it.
func (s *Service) Trash(ctx context.Context, id uuid.UUID) error {
	document, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if document.InTrash {
		return nil
	}

	now := time.Now()
	document.InTrash = true
	document.DeletedDateTime = &now
	return s.documents.Update(ctx, document)
}

// Restore brings a trashed document back.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	document, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !document.InTrash {
		return nil
	}

	document.InTrash = false
	document.DeletedDateTime = nil
	return s.documents.Update(ctx, document)
}

// DeleteDocument permanently deletes a document: every version with
// its cache artifacts and stored content, then the document row.
func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	versions, err := s.versions.ListByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	for i := range versions {
		if err := s.DeleteVersion(ctx, versions[i].ID); err != nil {
			return err
		}
	}

	if err := s.transformations.DeleteForOwner(ctx, models.TransformationOwnerDocument, id); err != nil {
		return err
	}
	return s.documents.Delete(ctx, id)
}

// DeleteVersion deletes one version. Ordering matters: cache artifacts
// are invalidated while the stored content is still readable, then the
// content object goes, then the rows.
func (s *Service) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	if err := s.renderer.InvalidateVersion(ctx, version); err != nil {
		return fmt.Errorf("invalidate caches: %w", err)
	}

	if err := s.store.Delete(ctx, version.ContentKey); err != nil && !isMissingContent(err) {
		return fmt.Errorf("delete stored content: %w", err)
	}

	return s.versions.Delete(ctx, versionID)
}

// RevertTo deletes every version of the document newer than the target
// version. Reverting to the latest version is a no-op.
func (s *Service) RevertTo(ctx context.Context, versionID uuid.UUID, actor *uuid.UUID) error {
	target, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return fmt.Errorf("get target version: %w", err)
	}

	newer, err := s.versions.ListNewerThan(ctx, target.DocumentID, target.Timestamp)
	if err != nil {
		return fmt.Errorf("list newer versions: %w", err)
	}
	for i := range newer {
		if err := s.DeleteVersion(ctx, newer[i].ID); err != nil {
			return err
		}
	}

	slog.Info("document reverted", "document_id", target.DocumentID, "version_id", target.ID, "removed", len(newer))
	s.bus.Publish(ctx, events.Event{Name: events.VersionReverted, Actor: actor, TargetID: target.ID})
	return nil
}

// SaveToFile copies a version's stored content to a local path.
func (s *Service) SaveToFile(ctx context.Context, versionID uuid.UUID, path string) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	content, err := s.store.Open(ctx, version.ContentKey)
	if err != nil {
		return fmt.Errorf("open stored content: %w", err)
	}
	defer content.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return nil
}

// VersionSize reports the stored content size of a version.
func (s *Service) VersionSize(ctx context.Context, versionID uuid.UUID) (int64, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return s.store.Size(ctx, version.ContentKey)
}

func isMissingContent(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/converter"
	"github.com/docvault/docvault/internal/events"
	"github.com/docvault/docvault/internal/mimedetect"
	"github.com/docvault/docvault/internal/models"
	"github.com/docvault/docvault/internal/storage"
)

// Pipeline turns durably stored content into a document version: it
// computes the checksum, detects the format, counts pages, materializes
// page rows and emits lifecycle events. It runs on the worker, off the
// upload path, and is safe to re-run for the same content key.
type Pipeline struct {
	documents DocumentRepository
	versions  VersionRepository
	store     storage.ContentStore
	detector  mimedetect.Detector
	converter converter.Converter
	renderer  *Renderer
	bus       *events.Bus
}

func NewPipeline(
	documents DocumentRepository,
	versions VersionRepository,
	store storage.ContentStore,
	detector mimedetect.Detector,
	conv converter.Converter,
	renderer *Renderer,
	bus *events.Bus,
) *Pipeline {
	return &Pipeline{
		documents: documents,
		versions:  versions,
		store:     store,
		detector:  detector,
		converter: conv,
		renderer:  renderer,
		bus:       bus,
	}
}

// CreateVersion runs the full version pipeline for content already
// sitting in the store under contentKey, returning the version and
// its page rows.
//
// The heavy work (checksum, detection, page counting) happens outside
// the database transaction; the transaction covers the version row,
// its pages and the stub flag, so no partial version is ever visible.
// Storage and checksum failures abort the operation and surface to the
// caller; detection failure falls back to an empty mimetype/encoding
// and an unsupported format falls back to a single page.
func (p *Pipeline) CreateVersion(ctx context.Context, documentID uuid.UUID, contentKey, comment string, actor *uuid.UUID) (*models.DocumentVersion, []models.DocumentPage, error) {
	document, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("get document: %w", err)
	}

	// At-least-once submission: a retried job for an already processed
	// content key is a no-op.
	if existing, err := p.versions.GetByContentKey(ctx, contentKey); err == nil {
		slog.Info("content already versioned, skipping", "document_id", documentID, "content_key", contentKey)
		return p.withPages(ctx, existing)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("check content key: %w", err)
	}

	checksum, err := p.checksum(ctx, contentKey)
	if err != nil {
		slog.Error("version creation aborted", "document_id", documentID, "content_key", contentKey, "error", err)
		return nil, nil, err
	}

	mimeType, encoding := p.detect(ctx, contentKey)

	pageCount, err := p.pageCount(ctx, contentKey, mimeType)
	if err != nil {
		slog.Error("version creation aborted", "document_id", documentID, "content_key", contentKey, "error", err)
		return nil, nil, err
	}

	version := &models.DocumentVersion{
		DocumentID: document.ID,
		Comment:    comment,
		ContentKey: contentKey,
		Mimetype:   mimeType,
		Encoding:   encoding,
		Checksum:   checksum,
	}

	pages, firstVersion, err := p.versions.CreateWithPages(ctx, version, pageCount)
	if err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			slog.Info("lost creation race, reusing existing version", "content_key", contentKey)
			existing, err := p.versions.GetByContentKey(ctx, contentKey)
			if err != nil {
				return nil, nil, fmt.Errorf("load winning version: %w", err)
			}
			return p.withPages(ctx, existing)
		}
		return nil, nil, fmt.Errorf("persist version: %w", err)
	}

	// A crashed earlier attempt may have left cache artifacts keyed to
	// this content; clear them so the first render starts clean.
	if err := p.renderer.InvalidateVersion(ctx, version); err != nil {
		slog.Warn("cache invalidation failed", "version_id", version.ID, "error", err)
	}

	slog.Info("version created",
		"document_id", document.ID, "version_id", version.ID,
		"mimetype", mimeType, "pages", len(pages))

	p.bus.Publish(ctx, events.Event{Name: events.VersionCreated, Actor: actor, TargetID: version.ID})

	// firstVersion comes out of the creating transaction itself, so
	// document.created cannot be lost to a failed follow-up query on a
	// later retry.
	if firstVersion {
		p.bus.Publish(ctx, events.Event{Name: events.DocumentCreated, Actor: actor, TargetID: document.ID})
	}

	return version, pages, nil
}

func (p *Pipeline) withPages(ctx context.Context, version *models.DocumentVersion) (*models.DocumentVersion, []models.DocumentPage, error) {
	pages, err := p.versions.Pages(ctx, version.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load pages: %w", err)
	}
	return version, pages, nil
}

func (p *Pipeline) checksum(ctx context.Context, contentKey string) (string, error) {
	content, err := p.store.Open(ctx, contentKey)
	if err != nil {
		return "", fmt.Errorf("open content for checksum: %w", err)
	}
	defer content.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, content); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (p *Pipeline) detect(ctx context.Context, contentKey string) (mimeType, encoding string) {
	content, err := p.store.Open(ctx, contentKey)
	if err != nil {
		slog.Warn("mimetype detection skipped", "content_key", contentKey, "error", err)
		return "", ""
	}
	defer content.Close()

	mimeType, encoding, err = p.detector.Detect(content)
	if err != nil {
		slog.Warn("mimetype detection failed", "content_key", contentKey, "error", err)
		return "", ""
	}
	return mimeType, encoding
}

func (p *Pipeline) pageCount(ctx context.Context, contentKey, mimeType string) (int, error) {
	content, err := p.store.Open(ctx, contentKey)
	if err != nil {
		return 0, fmt.Errorf("open content for page count: %w", err)
	}
	defer content.Close()

	count, err := p.converter.PageCount(ctx, content, mimeType)
	if errors.Is(err, converter.ErrUnknownFormat) {
		slog.Info("unknown format, assuming single page", "content_key", contentKey, "mimetype", mimeType)
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

// Package sources feeds the document version pipeline from ingestion
// channels: interactive web form and staging folder uploads, and
// interval-polled watch folders and mailboxes.
package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/archive"
	"github.com/docvault/docvault/internal/converter"
	"github.com/docvault/docvault/internal/document"
	"github.com/docvault/docvault/internal/models"
)

// ErrNotCheckable reports a CheckSource call against an interactive
// source; only interval-driven sources are polled.
var ErrNotCheckable = errors.New("source is not interval-driven")

// DocumentUploader is the slice of the document service the ingestion
// side needs: stub creation and version staging.
type DocumentUploader interface {
	NewDocument(ctx context.Context, documentTypeID uuid.UUID, label, description, language string, actor *uuid.UUID) (*models.Document, error)
	NewVersion(ctx context.Context, documentID uuid.UUID, r io.Reader, comment string, actor *uuid.UUID) (string, error)
}

// Service resolves source uploads into documents. Variants share the
// upload entry point and differ in how they enumerate candidates;
// dispatch over the closed variant set is explicit in CheckSource.
type Service struct {
	sources         Repository
	logs            LogRepository
	uploader        DocumentUploader
	transformations document.TransformationRepository
}

func NewService(sources Repository, logs LogRepository, uploader DocumentUploader, transformations document.TransformationRepository) *Service {
	return &Service{
		sources:         sources,
		logs:            logs,
		uploader:        uploader,
		transformations: transformations,
	}
}

// UploadDocument ingests one upload through the source. When the
// source's uncompress policy is on and the content is a recognized
// archive, each member becomes an independent document labeled by its
// member name; otherwise the content is ingested as a single document.
func (s *Service) UploadDocument(ctx context.Context, source *models.Source, r io.Reader, label string, actor *uuid.UUID) error {
	if !source.Uncompress {
		return s.uploadSingle(ctx, source, r, label, actor)
	}

	// Container detection consumes the stream, so buffer it up front to
	// keep the plain-file fallback readable.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	err = archive.Walk(bytes.NewReader(data), func(name string, member io.Reader) error {
		return s.uploadSingle(ctx, source, member, name, actor)
	})
	if errors.Is(err, archive.ErrNotArchive) {
		slog.Debug("upload is not an archive, ingesting as-is", "source", source.Label, "label", label)
		return s.uploadSingle(ctx, source, bytes.NewReader(data), label, actor)
	}
	return err
}

func (s *Service) uploadSingle(ctx context.Context, source *models.Source, r io.Reader, label string, actor *uuid.UUID) error {
	doc, err := s.uploader.NewDocument(ctx, source.DocumentTypeID, label, "", "", actor)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	if err := s.transformations.Copy(ctx, models.TransformationOwnerSource, source.ID, models.TransformationOwnerDocument, doc.ID); err != nil {
		return fmt.Errorf("copy source transformations: %w", err)
	}

	if _, err := s.uploader.NewVersion(ctx, doc.ID, r, "", actor); err != nil {
		return fmt.Errorf("stage version: %w", err)
	}

	slog.Info("document ingested", "source", source.Label, "document_id", doc.ID, "label", label)
	return nil
}

// CheckSource runs one poll tick of an interval-driven source:
// enumerate candidates, ingest each, and consume a candidate only
// after its hand-off succeeded. Transient channel failures are logged
// against the source and retried on the next tick.
func (s *Service) CheckSource(ctx context.Context, sourceID uuid.UUID) error {
	source, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return err
	}
	if !source.Enabled {
		return nil
	}

	switch source.Type {
	case models.SourceWatchFolder:
		err = s.checkWatchFolder(ctx, source)
	case models.SourcePOP3Email:
		err = s.checkPOP3(ctx, source)
	case models.SourceIMAPEmail:
		err = s.checkIMAP(ctx, source)
	default:
		return fmt.Errorf("%w: %s", ErrNotCheckable, source.Type)
	}

	if err != nil {
		s.logFailure(ctx, source, err)
		return err
	}
	return nil
}

// logFailure appends the tick failure to the source's log; the tick
// itself is abandoned and the next schedule retries independently.
func (s *Service) logFailure(ctx context.Context, source *models.Source, err error) {
	slog.Error("source check failed", "source", source.Label, "type", source.Type, "error", err)
	if logErr := s.logs.Append(ctx, source.ID, err.Error()); logErr != nil {
		slog.Error("source log write failed", "source", source.Label, "error", logErr)
	}
}

// PreviewSize renders the staging preview dimensions as a size string.
func PreviewSize(source *models.Source) string {
	if source.PreviewWidth <= 0 {
		return ""
	}
	dimensions := []string{strconv.Itoa(source.PreviewWidth)}
	if source.PreviewHeight > 0 {
		dimensions = append(dimensions, strconv.Itoa(source.PreviewHeight))
	}
	return strings.Join(dimensions, converter.DimensionSeparator)
}

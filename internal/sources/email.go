package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/emersion/go-message/mail"

	"github.com/docvault/docvault/internal/models"
)

// processMessage walks a raw RFC 822 message and ingests every part
// marked as an attachment. Unnamed attachments get a sequential label
// so every member stays addressable.
func (s *Service) processMessage(ctx context.Context, source *models.Source, r io.Reader) error {
	reader, err := mail.CreateReader(r)
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}
	defer reader.Close()

	counter := 1
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read message part: %w", err)
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, err := header.Filename()
		if err != nil || filename == "" {
			filename = fmt.Sprintf("attachment-%d", counter)
			counter++
		}

		slog.Debug("extracting mail attachment", "source", source.Label, "filename", filename)
		if err := s.UploadDocument(ctx, source, part.Body, filename, nil); err != nil {
			return fmt.Errorf("ingest attachment %s: %w", filename, err)
		}
	}
}

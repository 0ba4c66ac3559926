package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docvault/docvault/internal/models"
)

// checkWatchFolder ingests every regular file in the watched directory.
// A file is removed from disk only after its upload has been handed
// off, so a crash mid-tick can duplicate work but never lose a file.
func (s *Service) checkWatchFolder(ctx context.Context, source *models.Source) error {
	entries, err := os.ReadDir(source.FolderPath)
	if err != nil {
		return fmt.Errorf("list watch folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fullPath := filepath.Join(source.FolderPath, entry.Name())

		if err := s.ingestWatchedFile(ctx, source, fullPath, entry.Name()); err != nil {
			// Per-item failure: log and move on, the file stays for
			// the next tick.
			s.logFailure(ctx, source, fmt.Errorf("ingest %s: %w", entry.Name(), err))
			continue
		}

		if err := os.Remove(fullPath); err != nil {
			slog.Warn("consumed watch folder file not removed", "source", source.Label, "file", entry.Name(), "error", err)
		}
	}
	return nil
}

func (s *Service) ingestWatchedFile(ctx context.Context, source *models.Source, fullPath, name string) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return fmt.Errorf("open watched file: %w", err)
	}
	defer f.Close()

	return s.UploadDocument(ctx, source, f, name, nil)
}

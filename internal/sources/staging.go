package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/models"
)

// StagingFile is one file waiting in a staging folder.
type StagingFile struct {
	Name string
	Size int64
}

// StagingFiles lists the regular files in the source's staging folder,
// sorted by normalized filename.
func (s *Service) StagingFiles(ctx context.Context, source *models.Source) ([]StagingFile, error) {
	entries, err := os.ReadDir(source.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("list staging folder: %w", err)
	}

	var files []StagingFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StagingFile{Name: entry.Name(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})
	return files, nil
}

// UploadStagingFile ingests a named file from the staging folder and,
// when the source is configured to, deletes it afterwards. Deletion
// only happens once the upload has been handed off.
func (s *Service) UploadStagingFile(ctx context.Context, source *models.Source, filename string, actor *uuid.UUID) error {
	if filepath.Base(filename) != filename {
		return fmt.Errorf("invalid staging filename %q", filename)
	}
	fullPath := filepath.Join(source.FolderPath, filename)

	f, err := os.Open(fullPath)
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}

	err = s.UploadDocument(ctx, source, f, filename, actor)
	f.Close()
	if err != nil {
		return err
	}

	if source.DeleteAfterUpload {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("delete staging file: %w", err)
		}
	}
	return nil
}

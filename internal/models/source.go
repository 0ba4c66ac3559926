package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType tags the closed set of ingestion channel variants.
type SourceType string

const (
	SourceWebForm       SourceType = "web_form"
	SourceStagingFolder SourceType = "staging_folder"
	SourceWatchFolder   SourceType = "watch_folder"
	SourcePOP3Email     SourceType = "pop3_email"
	SourceIMAPEmail     SourceType = "imap_email"
)

// Interactive reports whether the source resolves uploads synchronously
// within a request, as opposed to being polled on an interval.
func (t SourceType) Interactive() bool {
	return t == SourceWebForm || t == SourceStagingFolder
}

// Source is the configuration for one ingestion channel. It is a tagged
// variant: Type selects which of the per-channel fields are meaningful.
type Source struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Type           SourceType `json:"type" db:"type"`
	Label          string     `json:"label" db:"label"`
	Enabled        bool       `json:"enabled" db:"enabled"`
	DocumentTypeID uuid.UUID  `json:"document_type_id" db:"document_type_id"`

	// Uncompress expands archive uploads into one document per member.
	Uncompress bool `json:"uncompress" db:"uncompress"`

	// Folder-backed variants (staging folder, watch folder).
	FolderPath        string `json:"folder_path,omitempty" db:"folder_path"`
	DeleteAfterUpload bool   `json:"delete_after_upload" db:"delete_after_upload"`
	PreviewWidth      int    `json:"preview_width,omitempty" db:"preview_width"`
	PreviewHeight     int    `json:"preview_height,omitempty" db:"preview_height"`

	// Interval-driven variants (watch folder, POP3, IMAP).
	IntervalSeconds int `json:"interval_seconds,omitempty" db:"interval_seconds"`

	// Mail variants.
	Host           string `json:"host,omitempty" db:"host"`
	Port           int    `json:"port,omitempty" db:"port"`
	SSL            bool   `json:"ssl" db:"ssl"`
	Username       string `json:"username,omitempty" db:"username"`
	Password       string `json:"-" db:"password"`
	Mailbox        string `json:"mailbox,omitempty" db:"mailbox"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" db:"timeout_seconds"`
}

// SourceLog is an append-only record of ingestion events for a source,
// newest first.
type SourceLog struct {
	ID       uuid.UUID `json:"id" db:"id"`
	SourceID uuid.UUID `json:"source_id" db:"source_id"`
	DateTime time.Time `json:"datetime" db:"datetime"`
	Message  string    `json:"message" db:"message"`
}

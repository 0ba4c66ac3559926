package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Time units accepted by document type retention settings.
const (
	TimeUnitDays    = "days"
	TimeUnitHours   = "hours"
	TimeUnitMinutes = "minutes"
)

// DocumentType is a named category of documents. It owns the retention
// policy applied to its documents: after TrashTimePeriod a document is
// moved to the trash, after DeleteTimePeriod a trashed document is
// deleted permanently.
type DocumentType struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	TrashTimePeriod  *int      `json:"trash_time_period,omitempty" db:"trash_time_period"`
	TrashTimeUnit    string    `json:"trash_time_unit,omitempty" db:"trash_time_unit"`
	DeleteTimePeriod int       `json:"delete_time_period" db:"delete_time_period"`
	DeleteTimeUnit   string    `json:"delete_time_unit" db:"delete_time_unit"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// RetentionDelta converts a period/unit pair into a duration.
func RetentionDelta(period int, unit string) time.Duration {
	switch unit {
	case TimeUnitMinutes:
		return time.Duration(period) * time.Minute
	case TimeUnitHours:
		return time.Duration(period) * time.Hour
	default:
		return time.Duration(period) * 24 * time.Hour
	}
}

// Document is a single document. It starts out as a stub with no
// versions; the first version upload clears IsStub. Soft deletion moves
// it to the trash, hard deletion cascades to its versions.
type Document struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	DocumentTypeID  uuid.UUID  `json:"document_type_id" db:"document_type_id"`
	Label           string     `json:"label" db:"label"`
	Description     string     `json:"description,omitempty" db:"description"`
	Language        string     `json:"language" db:"language"`
	InTrash         bool       `json:"in_trash" db:"in_trash"`
	DeletedDateTime *time.Time `json:"deleted_date_time,omitempty" db:"deleted_date_time"`
	IsStub          bool       `json:"is_stub" db:"is_stub"`
	DateAdded       time.Time  `json:"date_added" db:"date_added"`
}

// DocumentVersion records one uploaded file of a document. Timestamp is
// assigned at creation and defines version ordering. Checksum, mimetype
// and encoding are computed by the pipeline, never by the user.
// ContentKey is the opaque content store identifier of the stored file.
type DocumentVersion struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	Comment    string    `json:"comment,omitempty" db:"comment"`
	ContentKey string    `json:"content_key" db:"content_key"`
	Mimetype   string    `json:"mimetype,omitempty" db:"mimetype"`
	Encoding   string    `json:"encoding,omitempty" db:"encoding"`
	Checksum   string    `json:"checksum,omitempty" db:"checksum"`
}

// CacheUUID keys the version's intermediate file in the cache
// directory. The document UUID is mixed in so the key changes whenever
// either side of the document/version pair does.
func (v *DocumentVersion) CacheUUID(documentID uuid.UUID) string {
	return fmt.Sprintf("%s-%s", documentID, v.ID)
}

// DocumentPage is a derived entity: it has no stored content of its
// own, only a deterministic cache key. PageNumber is 1-based and unique
// within the version.
type DocumentPage struct {
	ID                uuid.UUID `json:"id" db:"id"`
	DocumentVersionID uuid.UUID `json:"document_version_id" db:"document_version_id"`
	PageNumber        int       `json:"page_number" db:"page_number"`
}

// CacheUUID keys the page's rendered bitmap in the cache directory.
// Stale images are avoided by deriving the key from the document,
// version and page identity together.
func (p *DocumentPage) CacheUUID(documentID uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", documentID, p.DocumentVersionID, p.ID)
}

// RecentDocument links a user to a recently accessed document. The list
// is capacity-bounded per user, most recently accessed first.
type RecentDocument struct {
	UserID           uuid.UUID `json:"user_id"`
	DocumentID       uuid.UUID `json:"document_id"`
	DateTimeAccessed time.Time `json:"datetime_accessed"`
}

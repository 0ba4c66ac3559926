package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Owner types for stored transformations.
const (
	TransformationOwnerPage     = "page"
	TransformationOwnerDocument = "document"
	TransformationOwnerSource   = "source"
)

// Transformation is a persisted image transform applied to every render
// of the pages it governs. Transforms owned by a source are copied onto
// documents ingested through that source; transforms owned by a
// document apply to all of its pages.
type Transformation struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OwnerType string          `json:"owner_type" db:"owner_type"`
	OwnerID   uuid.UUID       `json:"owner_id" db:"owner_id"`
	SortOrder int             `json:"sort_order" db:"sort_order"`
	Name      string          `json:"name" db:"name"`
	Arguments json.RawMessage `json:"arguments" db:"arguments"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

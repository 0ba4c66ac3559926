package document

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/models"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateContent reports that a version for the same stored
	// content key already exists. Reprocessing a queued upload is
	// expected to hit this; callers treat it as an idempotent no-op.
	ErrDuplicateContent = errors.New("content already versioned")
)

type DocumentTypeRepository interface {
	Create(ctx context.Context, documentType *models.DocumentType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentType, error)
	GetByName(ctx context.Context, name string) (*models.DocumentType, error)
	List(ctx context.Context) ([]models.DocumentType, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	Update(ctx context.Context, document *models.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, inTrash bool) ([]models.Document, error)

	// ListExpired returns documents of the given type that left the
	// retention window: not yet trashed but added before cutoff
	// (inTrash false), or trashed before cutoff (inTrash true).
	ListExpired(ctx context.Context, documentTypeID uuid.UUID, inTrash bool, cutoff time.Time) ([]models.Document, error)
}

type VersionRepository interface {
	// CreateWithPages inserts the version row, its 1..pageCount page
	// rows, and clears the owning document's stub flag, all in one
	// transaction serialized per document. The bool reports whether
	// this was the document's first version, decided from the stub
	// flag observed under the row lock. A content key that is already
	// versioned yields ErrDuplicateContent and no writes.
	CreateWithPages(ctx context.Context, version *models.DocumentVersion, pageCount int) ([]models.DocumentPage, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error)
	GetByContentKey(ctx context.Context, contentKey string) (*models.DocumentVersion, error)
	Latest(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error)
	ListNewerThan(ctx context.Context, documentID uuid.UUID, after time.Time) ([]models.DocumentVersion, error)
	CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Pages(ctx context.Context, versionID uuid.UUID) ([]models.DocumentPage, error)
	GetPage(ctx context.Context, pageID uuid.UUID) (*models.DocumentPage, error)
}

type TransformationRepository interface {
	Create(ctx context.Context, transformation *models.Transformation) error
	ListForOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]models.Transformation, error)
	DeleteForOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) error

	// Copy duplicates one owner's transformations onto another owner,
	// preserving order.
	Copy(ctx context.Context, fromType string, fromID uuid.UUID, toType string, toID uuid.UUID) error
}

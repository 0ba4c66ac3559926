package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/models"
)

// In-memory repository implementations backing tests and small
// single-process deployments.

type MemoryDocumentTypeRepository struct {
	mu    sync.RWMutex
	types map[uuid.UUID]models.DocumentType
}

func NewMemoryDocumentTypeRepository() *MemoryDocumentTypeRepository {
	return &MemoryDocumentTypeRepository{types: make(map[uuid.UUID]models.DocumentType)}
}

func (r *MemoryDocumentTypeRepository) Create(ctx context.Context, dt *models.DocumentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dt.ID == uuid.Nil {
		dt.ID = uuid.New()
	}
	dt.CreatedAt = time.Now()
	r.types[dt.ID] = *dt
	return nil
}

func (r *MemoryDocumentTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dt, ok := r.types[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &dt, nil
}

func (r *MemoryDocumentTypeRepository) GetByName(ctx context.Context, name string) (*models.DocumentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dt := range r.types {
		if dt.Name == name {
			result := dt
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryDocumentTypeRepository) List(ctx context.Context) ([]models.DocumentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]models.DocumentType, 0, len(r.types))
	for _, dt := range r.types {
		result = append(result, dt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryDocumentTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[id]; !ok {
		return ErrNotFound
	}
	delete(r.types, id)
	return nil
}

type MemoryDocumentRepository struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]models.Document
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{documents: make(map[uuid.UUID]models.Document)}
}

func (r *MemoryDocumentRepository) Create(ctx context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.IsStub = true
	d.DateAdded = time.Now()
	r.documents[d.ID] = *d
	return nil
}

func (r *MemoryDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (r *MemoryDocumentRepository) Update(ctx context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.documents[d.ID]; !ok {
		return ErrNotFound
	}
	r.documents[d.ID] = *d
	return nil
}

func (r *MemoryDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.documents[id]; !ok {
		return ErrNotFound
	}
	delete(r.documents, id)
	return nil
}

func (r *MemoryDocumentRepository) List(ctx context.Context, inTrash bool) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []models.Document
	for _, d := range r.documents {
		if d.InTrash == inTrash {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DateAdded.After(result[j].DateAdded) })
	return result, nil
}

func (r *MemoryDocumentRepository) ListExpired(ctx context.Context, documentTypeID uuid.UUID, inTrash bool, cutoff time.Time) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []models.Document
	for _, d := range r.documents {
		if d.DocumentTypeID != documentTypeID || d.InTrash != inTrash {
			continue
		}
		reference := d.DateAdded
		if inTrash {
			if d.DeletedDateTime == nil {
				continue
			}
			reference = *d.DeletedDateTime
		}
		if reference.Before(cutoff) {
			result = append(result, d)
		}
	}
	return result, nil
}

// setStub is used by the memory version repository to mirror the
// cross-table update the SQL implementation does in its transaction.
func (r *MemoryDocumentRepository) setStub(id uuid.UUID, stub bool) (wasStub, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.documents[id]
	if !ok {
		return false, false
	}
	wasStub = d.IsStub
	d.IsStub = stub
	r.documents[id] = d
	return wasStub, true
}

type MemoryVersionRepository struct {
	mu        sync.Mutex
	documents *MemoryDocumentRepository
	versions  map[uuid.UUID]models.DocumentVersion
	pages     map[uuid.UUID]models.DocumentPage
	byContent map[string]uuid.UUID
	clock     func() time.Time
}

func NewMemoryVersionRepository(documents *MemoryDocumentRepository) *MemoryVersionRepository {
	return &MemoryVersionRepository{
		documents: documents,
		versions:  make(map[uuid.UUID]models.DocumentVersion),
		pages:     make(map[uuid.UUID]models.DocumentPage),
		byContent: make(map[string]uuid.UUID),
		clock:     time.Now,
	}
}

// SetClock overrides version timestamping, for tests that need
// distinguishable timestamps.
func (r *MemoryVersionRepository) SetClock(clock func() time.Time) {
	r.clock = clock
}

func (r *MemoryVersionRepository) CreateWithPages(ctx context.Context, version *models.DocumentVersion, pageCount int) ([]models.DocumentPage, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byContent[version.ContentKey]; exists {
		return nil, false, ErrDuplicateContent
	}
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	version.Timestamp = r.clock()

	wasStub, ok := r.documents.setStub(version.DocumentID, false)
	if !ok {
		return nil, false, ErrNotFound
	}

	r.versions[version.ID] = *version
	r.byContent[version.ContentKey] = version.ID

	pages := make([]models.DocumentPage, 0, pageCount)
	for number := 1; number <= pageCount; number++ {
		page := models.DocumentPage{
			ID:                uuid.New(),
			DocumentVersionID: version.ID,
			PageNumber:        number,
		}
		r.pages[page.ID] = page
		pages = append(pages, page)
	}
	return pages, wasStub, nil
}

func (r *MemoryVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (r *MemoryVersionRepository) GetByContentKey(ctx context.Context, contentKey string) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byContent[contentKey]
	if !ok {
		return nil, ErrNotFound
	}
	v := r.versions[id]
	return &v, nil
}

func (r *MemoryVersionRepository) Latest(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error) {
	versions, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

func (r *MemoryVersionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.DocumentVersion
	for _, v := range r.versions {
		if v.DocumentID == documentID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

func (r *MemoryVersionRepository) ListNewerThan(ctx context.Context, documentID uuid.UUID, after time.Time) ([]models.DocumentVersion, error) {
	versions, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var result []models.DocumentVersion
	for _, v := range versions {
		if v.Timestamp.After(after) {
			result = append(result, v)
		}
	}
	return result, nil
}

func (r *MemoryVersionRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	versions, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return len(versions), nil
}

func (r *MemoryVersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[id]
	if !ok {
		return ErrNotFound
	}
	for pageID, page := range r.pages {
		if page.DocumentVersionID == id {
			delete(r.pages, pageID)
		}
	}
	delete(r.byContent, v.ContentKey)
	delete(r.versions, id)
	return nil
}

func (r *MemoryVersionRepository) Pages(ctx context.Context, versionID uuid.UUID) ([]models.DocumentPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.DocumentPage
	for _, p := range r.pages {
		if p.DocumentVersionID == versionID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PageNumber < result[j].PageNumber })
	return result, nil
}

func (r *MemoryVersionRepository) GetPage(ctx context.Context, pageID uuid.UUID) (*models.DocumentPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[pageID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

type MemoryTransformationRepository struct {
	mu              sync.Mutex
	transformations []models.Transformation
}

func NewMemoryTransformationRepository() *MemoryTransformationRepository {
	return &MemoryTransformationRepository{}
}

func (r *MemoryTransformationRepository) Create(ctx context.Context, t *models.Transformation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	r.transformations = append(r.transformations, *t)
	return nil
}

func (r *MemoryTransformationRepository) ListForOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]models.Transformation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Transformation
	for _, t := range r.transformations {
		if t.OwnerType == ownerType && t.OwnerID == ownerID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (r *MemoryTransformationRepository) DeleteForOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.transformations[:0]
	for _, t := range r.transformations {
		if t.OwnerType != ownerType || t.OwnerID != ownerID {
			kept = append(kept, t)
		}
	}
	r.transformations = kept
	return nil
}

func (r *MemoryTransformationRepository) Copy(ctx context.Context, fromType string, fromID uuid.UUID, toType string, toID uuid.UUID) error {
	source, err := r.ListForOwner(ctx, fromType, fromID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range source {
		copied := t
		copied.ID = uuid.New()
		copied.OwnerType = toType
		copied.OwnerID = toID
		r.transformations = append(r.transformations, copied)
	}
	return nil
}

package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/events"
	"github.com/docvault/docvault/internal/models"
	"github.com/docvault/docvault/internal/storage"
)

type enqueueCall struct {
	documentID uuid.UUID
	contentKey string
	comment    string
}

type fakeEnqueuer struct {
	calls []enqueueCall
	err   error
}

func (e *fakeEnqueuer) EnqueueVersionCreate(documentID uuid.UUID, contentKey, comment string, actor *uuid.UUID) error {
	e.calls = append(e.calls, enqueueCall{documentID: documentID, contentKey: contentKey, comment: comment})
	return e.err
}

type serviceFixture struct {
	types     *MemoryDocumentTypeRepository
	documents *MemoryDocumentRepository
	versions  *MemoryVersionRepository
	store     *storage.MemoryStore
	enqueuer  *fakeEnqueuer
	bus       *events.Bus
	service   *Service

	documentType *models.DocumentType
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	types := NewMemoryDocumentTypeRepository()
	documents := NewMemoryDocumentRepository()
	versions := NewMemoryVersionRepository(documents)
	transformations := NewMemoryTransformationRepository()
	store := storage.NewMemoryStore()
	cache, err := NewPageCache(t.TempDir())
	require.NoError(t, err)

	enqueuer := &fakeEnqueuer{}
	bus := events.NewBus()
	renderer := NewRenderer(versions, transformations, store, &stubConverter{}, cache, 25, 300)
	service := NewService(types, documents, versions, transformations,
		store, renderer, enqueuer, nil, bus, "eng")

	documentType := &models.DocumentType{Name: "invoice"}
	require.NoError(t, types.Create(ctx, documentType))

	return &serviceFixture{
		types:        types,
		documents:    documents,
		versions:     versions,
		store:        store,
		enqueuer:     enqueuer,
		bus:          bus,
		service:      service,
		documentType: documentType,
	}
}

// addVersion persists a version with stored content, bypassing the
// queue, the way the worker-side pipeline would.
func (f *serviceFixture) addVersion(t *testing.T, documentID uuid.UUID, content string) *models.DocumentVersion {
	t.Helper()
	ctx := context.Background()

	key := uuid.New().String()
	_, err := f.store.Put(ctx, key, strings.NewReader(content))
	require.NoError(t, err)

	version := &models.DocumentVersion{DocumentID: documentID, ContentKey: key}
	_, _, err = f.versions.CreateWithPages(ctx, version, 1)
	require.NoError(t, err)
	return version
}

func TestServiceNewDocument(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	assert.True(t, doc.IsStub, "a document starts as a stub until its first version lands")
	assert.Equal(t, "eng", doc.Language, "empty language falls back to the configured default")

	_, err = f.service.NewDocument(ctx, uuid.New(), "orphan", "", "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceNewVersionStoresAndEnqueues(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)

	key, err := f.service.NewVersion(ctx, doc.ID, strings.NewReader("uploaded bytes"), "first draft", nil)
	require.NoError(t, err)

	size, err := f.store.Size(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len("uploaded bytes")), size)

	require.Len(t, f.enqueuer.calls, 1)
	assert.Equal(t, doc.ID, f.enqueuer.calls[0].documentID)
	assert.Equal(t, key, f.enqueuer.calls[0].contentKey)
	assert.Equal(t, "first draft", f.enqueuer.calls[0].comment)
}

func TestServiceNewVersionEnqueueFailureCleansUp(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enqueuer.err = assert.AnError

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)

	_, err = f.service.NewVersion(ctx, doc.ID, strings.NewReader("doomed"), "", nil)
	require.Error(t, err)

	// The orphaned object must not linger in the store.
	require.Len(t, f.enqueuer.calls, 1)
	exists, err := f.store.Exists(ctx, f.enqueuer.calls[0].contentKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestServiceTrashAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)

	require.NoError(t, f.service.Trash(ctx, doc.ID))
	trashed, err := f.documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, trashed.InTrash)
	require.NotNil(t, trashed.DeletedDateTime)

	// Trashing again keeps the original deletion time.
	firstDeleted := *trashed.DeletedDateTime
	require.NoError(t, f.service.Trash(ctx, doc.ID))
	trashed, err = f.documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, firstDeleted, *trashed.DeletedDateTime)

	require.NoError(t, f.service.Restore(ctx, doc.ID))
	restored, err := f.documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, restored.InTrash)
	assert.Nil(t, restored.DeletedDateTime)
}

func TestServiceDeleteDocumentCascades(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	v1 := f.addVersion(t, doc.ID, "version one")
	v2 := f.addVersion(t, doc.ID, "version two")

	require.NoError(t, f.service.DeleteDocument(ctx, doc.ID))

	_, err = f.documents.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, key := range []string{v1.ContentKey, v2.ContentKey} {
		exists, err := f.store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "stored content is removed with the document")
	}
}

func TestServiceRevertTo(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	// Deterministic, strictly increasing version timestamps.
	now := time.Now()
	f.versions.SetClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	v1 := f.addVersion(t, doc.ID, "one")
	v2 := f.addVersion(t, doc.ID, "two")
	v3 := f.addVersion(t, doc.ID, "three")

	require.NoError(t, f.service.RevertTo(ctx, v1.ID, nil))

	remaining, err := f.versions.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, v1.ID, remaining[0].ID)

	for _, key := range []string{v2.ContentKey, v3.ContentKey} {
		exists, err := f.store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	}

	// Reverting to the latest remaining version removes nothing.
	require.NoError(t, f.service.RevertTo(ctx, v1.ID, nil))
	remaining, err = f.versions.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestServiceLatestVersion(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	now := time.Now()
	f.versions.SetClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	f.addVersion(t, doc.ID, "one")
	v2 := f.addVersion(t, doc.ID, "two")

	latest, err := f.service.LatestVersion(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)
}

func TestServiceSaveToFile(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	version := f.addVersion(t, doc.ID, "exported bytes")

	path := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, f.service.SaveToFile(ctx, version.ID, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "exported bytes", string(data))
}

func TestServiceVersionSize(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	version := f.addVersion(t, doc.ID, "12345")

	size, err := f.service.VersionSize(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

func TestServiceDeleteVersionToleratesMissingContent(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	doc, err := f.service.NewDocument(ctx, f.documentType.ID, "contract.pdf", "", "", nil)
	require.NoError(t, err)
	version := f.addVersion(t, doc.ID, "content")

	require.NoError(t, f.store.Delete(ctx, version.ContentKey))
	require.NoError(t, f.service.DeleteVersion(ctx, version.ID),
		"a version whose content object already vanished still deletes")

	_, err = f.versions.GetByID(ctx, version.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/converter"
	"github.com/docvault/docvault/internal/events"
	"github.com/docvault/docvault/internal/mimedetect"
	"github.com/docvault/docvault/internal/models"
	"github.com/docvault/docvault/internal/storage"
)

type stubDetector struct {
	mimeType string
	encoding string
	err      error
}

func (d stubDetector) Detect(r io.Reader) (string, string, error) {
	io.Copy(io.Discard, r)
	return d.mimeType, d.encoding, d.err
}

type stubConverter struct {
	pages        int
	pageCountErr error
	renderErr    error
	renders      int

	// Dimensions of the bitmap RenderPage fabricates; zero means 40.
	pngWidth  int
	pngHeight int
}

func (c *stubConverter) PageCount(ctx context.Context, r io.Reader, mimeType string) (int, error) {
	if c.pageCountErr != nil {
		return 0, c.pageCountErr
	}
	return c.pages, nil
}

func (c *stubConverter) RenderPage(ctx context.Context, r io.Reader, pageNumber int) ([]byte, error) {
	c.renders++
	if c.renderErr != nil {
		return nil, c.renderErr
	}
	width, height := c.pngWidth, c.pngHeight
	if width == 0 {
		width = 40
	}
	if height == 0 {
		height = 40
	}
	return tinyPNG(width, height), nil
}

func (c *stubConverter) Normalize(ctx context.Context, r io.Reader, mimeType string) (io.ReadCloser, error) {
	return nil, converter.ErrInvalidOfficeFormat
}

type pipelineFixture struct {
	documents *MemoryDocumentRepository
	versions  *MemoryVersionRepository
	store     *storage.MemoryStore
	converter *stubConverter
	bus       *events.Bus
	pipeline  *Pipeline
	events    *[]events.Event

	document *models.Document
}

func newPipelineFixture(t *testing.T, detector mimedetect.Detector, conv *stubConverter) *pipelineFixture {
	t.Helper()

	documents := NewMemoryDocumentRepository()
	versions := NewMemoryVersionRepository(documents)
	store := storage.NewMemoryStore()
	cache, err := NewPageCache(t.TempDir())
	require.NoError(t, err)

	bus := events.NewBus()
	var published []events.Event
	for _, name := range []string{events.DocumentCreated, events.VersionCreated, events.VersionReverted} {
		bus.Subscribe(name, func(ctx context.Context, event events.Event) {
			published = append(published, event)
		})
	}

	renderer := NewRenderer(versions, NewMemoryTransformationRepository(), store, conv, cache, 25, 300)
	pipeline := NewPipeline(documents, versions, store, detector, conv, renderer, bus)

	document := &models.Document{DocumentTypeID: uuid.New(), Label: "report.pdf", Language: "eng"}
	require.NoError(t, documents.Create(context.Background(), document))

	return &pipelineFixture{
		documents: documents,
		versions:  versions,
		store:     store,
		converter: conv,
		bus:       bus,
		pipeline:  pipeline,
		events:    &published,
		document:  document,
	}
}

func (f *pipelineFixture) putContent(t *testing.T, content string) string {
	t.Helper()
	key := uuid.New().String()
	_, err := f.store.Put(context.Background(), key, strings.NewReader(content))
	require.NoError(t, err)
	return key
}

func TestPipelineCreateVersion(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, stubDetector{mimeType: "application/pdf"}, &stubConverter{pages: 3})

	content := "%PDF-1.4 fake"
	key := f.putContent(t, content)

	version, pages, err := f.pipeline.CreateVersion(ctx, f.document.ID, key, "initial", nil)
	require.NoError(t, err)

	wantChecksum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(wantChecksum[:]), version.Checksum)
	assert.Equal(t, "application/pdf", version.Mimetype)
	assert.Equal(t, "initial", version.Comment)

	require.Len(t, pages, 3)
	for i, page := range pages {
		assert.Equal(t, version.ID, page.DocumentVersionID)
		assert.Equal(t, i+1, page.PageNumber)
	}

	stored, err := f.versions.Pages(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, pages, stored, "returned pages are the persisted rows")

	doc, err := f.documents.GetByID(ctx, f.document.ID)
	require.NoError(t, err)
	assert.False(t, doc.IsStub, "first version clears the stub flag")

	require.Len(t, *f.events, 2)
	assert.Equal(t, events.VersionCreated, (*f.events)[0].Name)
	assert.Equal(t, version.ID, (*f.events)[0].TargetID)
	assert.Equal(t, events.DocumentCreated, (*f.events)[1].Name)
	assert.Equal(t, f.document.ID, (*f.events)[1].TargetID)
}

func TestPipelineCreateVersionIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, stubDetector{mimeType: "application/pdf"}, &stubConverter{pages: 2})

	key := f.putContent(t, "same bytes")

	first, _, err := f.pipeline.CreateVersion(ctx, f.document.ID, key, "", nil)
	require.NoError(t, err)

	second, pages, err := f.pipeline.CreateVersion(ctx, f.document.ID, key, "", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "redelivered job resolves to the existing version")
	assert.Len(t, pages, 2, "redelivery still reports the existing pages")

	count, err := f.versions.CountByDocument(ctx, f.document.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var created int
	for _, event := range *f.events {
		if event.Name == events.DocumentCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestPipelineSecondVersionNoDocumentCreated(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, stubDetector{mimeType: "application/pdf"}, &stubConverter{pages: 1})

	_, _, err := f.pipeline.CreateVersion(ctx, f.document.ID, f.putContent(t, "one"), "", nil)
	require.NoError(t, err)
	_, _, err = f.pipeline.CreateVersion(ctx, f.document.ID, f.putContent(t, "two"), "", nil)
	require.NoError(t, err)

	var created int
	for _, event := range *f.events {
		if event.Name == events.DocumentCreated {
			created++
		}
	}
	assert.Equal(t, 1, created, "document.created fires only for the first version")
}

// countFailingVersions simulates a version store whose count query is
// unavailable once the creating transaction has committed.
type countFailingVersions struct {
	*MemoryVersionRepository
}

func (r countFailingVersions) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	return 0, assert.AnError
}

func TestPipelineDocumentCreatedSurvivesCountFailure(t *testing.T) {
	ctx := context.Background()

	documents := NewMemoryDocumentRepository()
	versions := countFailingVersions{NewMemoryVersionRepository(documents)}
	store := storage.NewMemoryStore()
	cache, err := NewPageCache(t.TempDir())
	require.NoError(t, err)

	bus := events.NewBus()
	var created int
	bus.Subscribe(events.DocumentCreated, func(ctx context.Context, event events.Event) {
		created++
	})

	conv := &stubConverter{pages: 1}
	detector := stubDetector{mimeType: "application/pdf"}
	renderer := NewRenderer(versions, NewMemoryTransformationRepository(), store, conv, cache, 25, 300)
	pipeline := NewPipeline(documents, versions, store, detector, conv, renderer, bus)

	doc := &models.Document{DocumentTypeID: uuid.New(), Label: "contract.pdf", Language: "eng"}
	require.NoError(t, documents.Create(ctx, doc))

	key := uuid.New().String()
	_, err = store.Put(ctx, key, strings.NewReader("first upload"))
	require.NoError(t, err)

	_, _, err = pipeline.CreateVersion(ctx, doc.ID, key, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, created,
		"first-version status comes from the creating transaction, not a follow-up count")
}

func TestPipelineUnknownFormatSinglePage(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t,
		stubDetector{mimeType: "application/octet-stream"},
		&stubConverter{pageCountErr: converter.ErrUnknownFormat})

	_, pages, err := f.pipeline.CreateVersion(ctx, f.document.ID, f.putContent(t, "opaque"), "", nil)
	require.NoError(t, err)
	assert.Len(t, pages, 1, "unsupported content still gets one page")
}

func TestPipelineDetectionFailureFallsBackEmpty(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t,
		stubDetector{err: mimedetect.ErrDetectionFailed},
		&stubConverter{pages: 1})

	version, _, err := f.pipeline.CreateVersion(ctx, f.document.ID, f.putContent(t, "mystery"), "", nil)
	require.NoError(t, err)
	assert.Empty(t, version.Mimetype)
	assert.Empty(t, version.Encoding)
}

func TestPipelineMissingContentAborts(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, stubDetector{mimeType: "application/pdf"}, &stubConverter{pages: 1})

	_, _, err := f.pipeline.CreateVersion(ctx, f.document.ID, "no-such-key", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	count, err := f.versions.CountByDocument(ctx, f.document.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "no partial version is persisted")
}

func TestPipelineUnknownDocument(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, stubDetector{mimeType: "application/pdf"}, &stubConverter{pages: 1})

	_, _, err := f.pipeline.CreateVersion(ctx, uuid.New(), f.putContent(t, "content"), "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

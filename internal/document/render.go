package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/converter"
	"github.com/docvault/docvault/internal/models"
	"github.com/docvault/docvault/internal/storage"
)

// RenderOptions are the per-request knobs of a page render. Zoom is a
// percentage clamped to the configured range; Rotation is degrees,
// normalized modulo 360; Size is "WxH" or "W". Transforms are
// ephemeral, applied on top of the page's stored transformations.
type RenderOptions struct {
	Size       string
	Rotation   int
	Zoom       int
	Transforms []converter.Transform
}

// Renderer produces page bitmaps, caching raw rasterizations per page
// and intermediate page-addressable files per version.
type Renderer struct {
	versions        VersionRepository
	transformations TransformationRepository
	store           storage.ContentStore
	converter       converter.Converter
	cache           *PageCache
	zoomMin         int
	zoomMax         int
}

func NewRenderer(
	versions VersionRepository,
	transformations TransformationRepository,
	store storage.ContentStore,
	conv converter.Converter,
	cache *PageCache,
	zoomMin, zoomMax int,
) *Renderer {
	return &Renderer{
		versions:        versions,
		transformations: transformations,
		store:           store,
		converter:       conv,
		cache:           cache,
		zoomMin:         zoomMin,
		zoomMax:         zoomMax,
	}
}

// PageImage returns the rendered PNG for a page. The raw rasterization
// is cached; transformations are applied on every call in a fixed
// sequence: stored transforms, ephemeral transforms, rotation, resize,
// zoom.
func (r *Renderer) PageImage(ctx context.Context, pageID uuid.UUID, opts RenderOptions) ([]byte, error) {
	page, err := r.versions.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	version, err := r.versions.GetByID(ctx, page.DocumentVersionID)
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}

	zoom := opts.Zoom
	if zoom != 0 {
		if zoom < r.zoomMin {
			zoom = r.zoomMin
		}
		if zoom > r.zoomMax {
			zoom = r.zoomMax
		}
	}
	rotation := ((opts.Rotation % 360) + 360) % 360

	raw, err := r.rawPage(ctx, page, version)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode page bitmap: %w", err)
	}

	img, err = r.applyStored(ctx, page, version, img)
	if err != nil {
		return nil, err
	}

	for _, transform := range opts.Transforms {
		img = transform.Apply(img)
	}

	if rotation != 0 {
		img = converter.Rotate{Degrees: float64(rotation)}.Apply(img)
	}

	if opts.Size != "" {
		width, height, err := converter.ParseSize(opts.Size)
		if err != nil {
			return nil, err
		}
		img = converter.Resize{Width: width, Height: height}.Apply(img)
	}

	if zoom != 0 {
		img = converter.Zoom{Percent: zoom}.Apply(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	return buf.Bytes(), nil
}

// rawPage returns the unrasterized page bitmap, from cache when
// available.
func (r *Renderer) rawPage(ctx context.Context, page *models.DocumentPage, version *models.DocumentVersion) ([]byte, error) {
	cacheUUID := page.CacheUUID(version.DocumentID)

	raw, err := r.cache.OpenPage(cacheUUID)
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open page cache: %w", err)
	}

	intermediate, err := r.intermediateFile(ctx, version)
	if err != nil {
		return nil, err
	}
	defer intermediate.Close()

	raw, err = r.converter.RenderPage(ctx, intermediate, page.PageNumber)
	if err != nil {
		// The cache must never hold a truncated artifact.
		r.cache.InvalidatePage(cacheUUID)
		return nil, fmt.Errorf("rasterize page %d: %w", page.PageNumber, err)
	}

	if err := r.cache.WritePage(cacheUUID, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// intermediateFile returns a page-addressable stream for the version:
// the cached normalization when present, a fresh one when the format
// needs normalizing, or the raw stored content otherwise.
func (r *Renderer) intermediateFile(ctx context.Context, version *models.DocumentVersion) (io.ReadCloser, error) {
	cacheUUID := version.CacheUUID(version.DocumentID)

	cached, err := r.cache.OpenVersion(cacheUUID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open intermediate cache: %w", err)
	}

	content, err := r.store.Open(ctx, version.ContentKey)
	if err != nil {
		return nil, fmt.Errorf("open stored content: %w", err)
	}

	normalized, err := r.converter.Normalize(ctx, content, version.Mimetype)
	if errors.Is(err, converter.ErrInvalidOfficeFormat) {
		// Already page-addressable; reopen since Normalize consumed
		// the stream.
		content.Close()
		return r.store.Open(ctx, version.ContentKey)
	}
	if err != nil {
		content.Close()
		return nil, fmt.Errorf("normalize version: %w", err)
	}
	content.Close()
	defer normalized.Close()

	return r.cache.WriteVersion(cacheUUID, normalized)
}

// applyStored layers the version's stored transformations under any
// per-request ones: document-owned first, then page-owned, each in
// stored order.
func (r *Renderer) applyStored(ctx context.Context, page *models.DocumentPage, version *models.DocumentVersion, img image.Image) (image.Image, error) {
	for _, owner := range []struct {
		ownerType string
		ownerID   uuid.UUID
	}{
		{models.TransformationOwnerDocument, version.DocumentID},
		{models.TransformationOwnerPage, page.ID},
	} {
		stored, err := r.transformations.ListForOwner(ctx, owner.ownerType, owner.ownerID)
		if err != nil {
			return nil, fmt.Errorf("list stored transformations: %w", err)
		}
		for _, t := range stored {
			transform, err := converter.FromSpec(t.Name, t.Arguments)
			if err != nil {
				slog.Warn("skipping unknown stored transformation", "name", t.Name, "owner_id", owner.ownerID, "error", err)
				continue
			}
			img = transform.Apply(img)
		}
	}
	return img, nil
}

// InvalidatePage removes a page's cached bitmap.
func (r *Renderer) InvalidatePage(ctx context.Context, page *models.DocumentPage, documentID uuid.UUID) error {
	return r.cache.InvalidatePage(page.CacheUUID(documentID))
}

// InvalidateVersion removes the version's intermediate file and all of
// its page bitmaps.
func (r *Renderer) InvalidateVersion(ctx context.Context, version *models.DocumentVersion) error {
	pages, err := r.versions.Pages(ctx, version.ID)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	for i := range pages {
		if err := r.cache.InvalidatePage(pages[i].CacheUUID(version.DocumentID)); err != nil {
			return err
		}
	}
	return r.cache.InvalidateVersion(version.CacheUUID(version.DocumentID))
}

// InvalidateDocument removes every cache artifact of every version of
// the document.
func (r *Renderer) InvalidateDocument(ctx context.Context, documentID uuid.UUID) error {
	versions, err := r.versions.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	for i := range versions {
		if err := r.InvalidateVersion(ctx, &versions[i]); err != nil {
			return err
		}
	}
	return nil
}

package selection

import (
	"context"
	"fmt"
	"log/slog"

	"comicvox/pkg/model"
)

// ImageCatalog is the store's view of the page images the client is
// currently showing. The websocket bridge implements it by querying the
// browser; tests implement it in memory.
type ImageCatalog interface {
	// ImageByID looks up an image by its stable element ID. A nil
	// result with nil error means "not found".
	ImageByID(ctx context.Context, id string) (*model.PageImage, error)
	// ImageBySrc looks up an image by source URL.
	ImageBySrc(ctx context.Context, src string) (*model.PageImage, error)
	// SelectableImages lists all page images in document order.
	SelectableImages(ctx context.Context) ([]model.PageImage, error)
	// ActiveImage returns the image the reader currently focuses, if any.
	ActiveImage(ctx context.Context) (*model.PageImage, error)
	// ImageData fetches the encoded bytes (PNG or JPEG) of an image.
	ImageData(ctx context.Context, id string) ([]byte, error)
}

// Resolver locates the page image a selection was drawn on. Element IDs
// go stale when the page re-renders, so resolution degrades through a
// chain of weaker matches instead of failing outright.
type Resolver struct {
	catalog ImageCatalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(catalog ImageCatalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// ImageData fetches the encoded bytes of a resolved image.
func (r *Resolver) ImageData(ctx context.Context, id string) ([]byte, error) {
	return r.catalog.ImageData(ctx, id)
}

// Resolve finds the image for sel: by ID, then by recorded source URL,
// then the first selectable image, then the active image. Each fallback
// logs a warning; only total failure is an error.
func (r *Resolver) Resolve(ctx context.Context, sel model.Selection) (*model.PageImage, error) {
	if sel.ImageID != "" {
		img, err := r.catalog.ImageByID(ctx, sel.ImageID)
		if err != nil {
			return nil, fmt.Errorf("lookup image %s: %w", sel.ImageID, err)
		}
		if img != nil {
			return img, nil
		}
		slog.Warn("Selection: image ID not found, trying source URL", "image_id", sel.ImageID)
	}

	if sel.ImageSrc != "" {
		img, err := r.catalog.ImageBySrc(ctx, sel.ImageSrc)
		if err != nil {
			return nil, fmt.Errorf("lookup image by src: %w", err)
		}
		if img != nil {
			return img, nil
		}
		slog.Warn("Selection: source URL not found, trying first selectable", "src", sel.ImageSrc)
	}

	imgs, err := r.catalog.SelectableImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list selectable images: %w", err)
	}
	if len(imgs) > 0 {
		slog.Warn("Selection: falling back to first selectable image", "image_id", imgs[0].ID)
		return &imgs[0], nil
	}

	img, err := r.catalog.ActiveImage(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup active image: %w", err)
	}
	if img != nil {
		slog.Warn("Selection: falling back to active image", "image_id", img.ID)
		return img, nil
	}

	return nil, fmt.Errorf("no image available for selection %s", sel.ID)
}

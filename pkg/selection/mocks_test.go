package selection

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"comicvox/pkg/model"
	"comicvox/pkg/ocr"
)

// fakeCatalog serves page images from memory.
type fakeCatalog struct {
	mu     sync.Mutex
	images []model.PageImage
	data   map[string][]byte
	active string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{data: make(map[string][]byte)}
}

func (c *fakeCatalog) addImage(t interface{ Fatalf(string, ...any) }, img model.PageImage, w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	c.images = append(c.images, img)
	c.data[img.ID] = buf.Bytes()
}

func (c *fakeCatalog) ImageByID(_ context.Context, id string) (*model.PageImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, img := range c.images {
		if img.ID == id {
			img := img
			return &img, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) ImageBySrc(_ context.Context, src string) (*model.PageImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, img := range c.images {
		if img.Src == src {
			img := img
			return &img, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) SelectableImages(context.Context) ([]model.PageImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.PageImage, len(c.images))
	copy(out, c.images)
	return out, nil
}

func (c *fakeCatalog) ActiveImage(context.Context) (*model.PageImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, img := range c.images {
		if img.ID == c.active {
			img := img
			return &img, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) ImageData(_ context.Context, id string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[id]
	if !ok {
		return nil, fmt.Errorf("no data for image %s", id)
	}
	return data, nil
}

// mockOCREngine returns canned text per call, or errors.
type mockOCREngine struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, input ocr.Input) (ocr.Result, error)
}

func (m *mockOCREngine) Name() string { return "mock" }

func (m *mockOCREngine) Recognize(_ context.Context, input ocr.Input) (ocr.Result, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(call, input)
	}
	return ocr.Result{PlainText: fmt.Sprintf("text %d", call)}, nil
}

func (m *mockOCREngine) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fakeCache is an in-memory Cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	saves   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func cacheKey(hash string, rect model.Rect) string {
	return fmt.Sprintf("%s|%.1f,%.1f,%.1f,%.1f", hash, rect.Left, rect.Top, rect.Width, rect.Height)
}

func (c *fakeCache) GetOCRText(_ context.Context, hash string, rect model.Rect) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.entries[cacheKey(hash, rect)]
	return text, ok
}

func (c *fakeCache) SetOCRText(_ context.Context, hash string, rect model.Rect, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(hash, rect)] = text
	c.saves++
	return nil
}

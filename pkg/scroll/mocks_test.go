package scroll

import (
	"context"
	"sync"

	"comicvox/pkg/model"
	"comicvox/pkg/viewport"
)

// fakeViewport records commands and serves canned geometry. posHook, when
// set before use, runs at the start of every ScrollPosition call so tests
// can stall a scroll mid-flight.
type fakeViewport struct {
	posHook func()

	mu       sync.Mutex
	geoms    map[string]viewport.ElementGeometry
	bounds   model.Rect
	scroll   float64
	scrolls  []float64
	classOps []string
}

func newFakeViewport() *fakeViewport {
	return &fakeViewport{
		geoms:  make(map[string]viewport.ElementGeometry),
		bounds: model.Rect{Width: 1000, Height: 800},
	}
}

func (f *fakeViewport) setGeometry(id string, g viewport.ElementGeometry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geoms[id] = g
}

func (f *fakeViewport) ElementGeometry(ctx context.Context, id string) (viewport.ElementGeometry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.geoms[id]
	if !ok {
		return viewport.ElementGeometry{Detached: true}, nil
	}
	return g, nil
}

func (f *fakeViewport) Bounds(ctx context.Context) (model.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds, nil
}

func (f *fakeViewport) ScrollPosition(ctx context.Context) (float64, error) {
	if f.posHook != nil {
		f.posHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scroll, nil
}

func (f *fakeViewport) ScrollTo(ctx context.Context, offset float64, smooth bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scroll = offset
	f.scrolls = append(f.scrolls, offset)
	return nil
}

func (f *fakeViewport) AddClass(ctx context.Context, id, class string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classOps = append(f.classOps, "add:"+id+":"+class)
	return nil
}

func (f *fakeViewport) RemoveClass(ctx context.Context, id, class string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classOps = append(f.classOps, "remove:"+id+":"+class)
	return nil
}

func (f *fakeViewport) scrollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scrolls)
}

func (f *fakeViewport) opCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.classOps) + len(f.scrolls)
}

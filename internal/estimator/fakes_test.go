package estimator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

type fakeControl struct {
	mu      sync.Mutex
	enabled bool
	calls   int
}

func (c *fakeControl) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	c.calls++
}

func (c *fakeControl) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

type fakeSurface struct {
	mu       sync.Mutex
	loading  bool
	html     string
	replaced []string
	cleared  int
}

func (s *fakeSurface) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *fakeSurface) Replace(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
	s.replaced = append(s.replaced, html)
}

func (s *fakeSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = ""
	s.cleared++
}

func (s *fakeSurface) state() (html string, loading bool, replaced []string, cleared int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, s.loading, append([]string(nil), s.replaced...), s.cleared
}

type fakeWidgets struct {
	mu    sync.Mutex
	batch [][]Widget
}

func (w *fakeWidgets) InitWidgets(widgets []Widget) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batch = append(w.batch, widgets)
}

type fakeSink struct {
	mu      sync.Mutex
	shown   []Message
	removed []Message
}

func (s *fakeSink) Show(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, m)
}

func (s *fakeSink) Remove(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, m)
}

func (s *fakeSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.shown))
	for i, m := range s.shown {
		out[i] = m.Text
	}
	return out
}

type fakeModal struct {
	mu        sync.Mutex
	opens     []int64
	retargets []int64
	closes    int
}

func (m *fakeModal) Open(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens = append(m.opens, id)
	return nil
}

func (m *fakeModal) Retarget(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retargets = append(m.retargets, id)
}

func (m *fakeModal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
}

// countingFactory builds one shared fakeModal and counts how often it is asked to.
func countingFactory(modal *fakeModal, calls *int32) ModalFactory {
	return func() (Modal, error) {
		atomic.AddInt32(calls, 1)
		return modal, nil
	}
}

type countingFetcher struct {
	calls int32
	fail  map[string]error
}

func (f *countingFetcher) Fetch(_ context.Context, url string) error {
	atomic.AddInt32(&f.calls, 1)
	if err, ok := f.fail[url]; ok {
		return err
	}
	return nil
}

func (f *countingFetcher) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

// gatedSource blocks each variation request until its gate is released.
type gatedSource struct {
	mu      sync.Mutex
	started chan int64
	gates   map[int64]chan struct{}
	fail    map[int64]bool
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		started: make(chan int64, 16),
		gates:   make(map[int64]chan struct{}),
		fail:    make(map[int64]bool),
	}
}

func (s *gatedSource) gate(id int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[id]
	if !ok {
		g = make(chan struct{})
		s.gates[id] = g
	}
	return g
}

func (s *gatedSource) release(id int64) { close(s.gate(id)) }

func (s *gatedSource) GetVariationEstimator(ctx context.Context, id int64) (string, error) {
	s.started <- id
	select {
	case <-s.gate(id):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	s.mu.Lock()
	failing := s.fail[id]
	s.mu.Unlock()
	if failing {
		return "", &NetworkFailure{Op: "get_variation_estimator", Cause: errors.New("connection reset")}
	}
	return fragmentFor(id), nil
}

func (s *gatedSource) AddToEstimator(_ context.Context, id int64) (string, error) {
	return "Product added to estimator", nil
}

// instantSource answers immediately.
type instantSource struct {
	mu       sync.Mutex
	requests []int64
	addErr   error
	added    []int64
}

func (s *instantSource) GetVariationEstimator(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, id)
	return fragmentFor(id), nil
}

func (s *instantSource) AddToEstimator(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	s.added = append(s.added, id)
	return "Product added to estimator", nil
}

func fragmentFor(id int64) string {
	return fmt.Sprintf(`<div class="variation-estimator" data-variation-id="%d">`+
		`<button data-estimator-widget="add-button" data-product-id="%d">Add</button></div>`, id, id)
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Navigate(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
}

package estimator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves a module asset. A nil error means the module is usable.
type Fetcher interface {
	Fetch(ctx context.Context, url string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) error

func (f FetcherFunc) Fetch(ctx context.Context, url string) error { return f(ctx, url) }

// ModuleRegistry is the page-lifetime record of loaded modules plus the init flag.
type ModuleRegistry struct {
	mu          sync.RWMutex
	loaded      map[string]struct{}
	initialized bool
}

// NewModuleRegistry returns an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{loaded: make(map[string]struct{})}
}

// Has reports whether url is registered.
func (r *ModuleRegistry) Has(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaded[url]
	return ok
}

// Loaded lists registered module urls in sorted order.
func (r *ModuleRegistry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaded))
	for u := range r.loaded {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// MarkInitialized sets the init flag and reports whether this call was the one that set it.
func (r *ModuleRegistry) MarkInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return false
	}
	r.initialized = true
	return true
}

// Initialized reports the init flag.
func (r *ModuleRegistry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Reset forgets every module and clears the init flag, as a navigation would.
func (r *ModuleRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = make(map[string]struct{})
	r.initialized = false
}

func (r *ModuleRegistry) add(url string) {
	r.mu.Lock()
	r.loaded[url] = struct{}{}
	r.mu.Unlock()
}

// ModuleLoader fetches each module at most once. Concurrent Ensure calls for one url share a
// single fetch and its outcome.
type ModuleLoader struct {
	registry *ModuleRegistry
	fetcher  Fetcher
	group    singleflight.Group
	logger   *zap.Logger
}

// NewModuleLoader creates a loader writing into registry.
func NewModuleLoader(registry *ModuleRegistry, fetcher Fetcher, logger *zap.Logger) *ModuleLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleLoader{registry: registry, fetcher: fetcher, logger: logger}
}

// Registry exposes the registry the loader writes to.
func (l *ModuleLoader) Registry() *ModuleRegistry { return l.registry }

// Ensure returns once url is registered, fetching it if needed. Failures are *LoadFailure.
func (l *ModuleLoader) Ensure(ctx context.Context, url string) error {
	if url == "" {
		return &LoadFailure{URL: url, Cause: errors.New("empty module url")}
	}
	if l.registry.Has(url) {
		return nil
	}
	// The shared fetch must not die with whichever caller happened to start it.
	fetchCtx := context.WithoutCancel(ctx)
	_, err, shared := l.group.Do(url, func() (interface{}, error) {
		if l.registry.Has(url) {
			return nil, nil
		}
		if err := l.fetcher.Fetch(fetchCtx, url); err != nil {
			return nil, &LoadFailure{URL: url, Cause: err}
		}
		l.registry.add(url)
		l.logger.Debug("module loaded", zap.String("url", url))
		return nil, nil
	})
	if err != nil {
		l.logger.Warn("module load failed", zap.String("url", url), zap.Bool("shared", shared), zap.Error(err))
	}
	return err
}

// EnsureAll loads urls in order and stops at the first failure. Modules loaded before the
// failure stay registered.
func (l *ModuleLoader) EnsureAll(ctx context.Context, urls []string) error {
	for _, u := range urls {
		if err := l.Ensure(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// ModuleGraphError reports an invalid static module graph.
type ModuleGraphError struct {
	Module string
	Reason string
}

func (e *ModuleGraphError) Error() string {
	return fmt.Sprintf("estimator: module %q: %s", e.Module, e.Reason)
}

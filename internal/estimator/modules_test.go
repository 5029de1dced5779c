package estimator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentEnsureSharesOneFetch(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, url string) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return nil
	})
	loader := NewModuleLoader(NewModuleRegistry(), fetcher, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = loader.Ensure(context.Background(), "/modules/estimator-modal.js")
		}(i)
	}
	<-started
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.True(t, loader.Registry().Has("/modules/estimator-modal.js"))
}

func TestEnsureSkipsLoadedModule(t *testing.T) {
	f := &countingFetcher{}
	loader := NewModuleLoader(NewModuleRegistry(), f, nil)
	require.NoError(t, loader.Ensure(context.Background(), "/a.js"))
	require.NoError(t, loader.Ensure(context.Background(), "/a.js"))
	require.Equal(t, 1, f.Calls())
}

func TestEnsureSurvivesCallerCancellation(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, url string) error { return ctx.Err() })
	loader := NewModuleLoader(NewModuleRegistry(), fetcher, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, loader.Ensure(ctx, "/a.js"))
}

func TestEnsureReportsLoadFailure(t *testing.T) {
	cause := errors.New("404")
	f := &countingFetcher{fail: map[string]error{"/missing.js": cause}}
	loader := NewModuleLoader(NewModuleRegistry(), f, nil)

	err := loader.Ensure(context.Background(), "/missing.js")
	var lf *LoadFailure
	require.True(t, errors.As(err, &lf))
	require.Equal(t, "/missing.js", lf.URL)
	require.ErrorIs(t, err, cause)
	require.False(t, loader.Registry().Has("/missing.js"))

	err = loader.Ensure(context.Background(), "")
	require.True(t, errors.As(err, &lf))
}

func TestEnsureAllFailsFastAndKeepsEarlierModules(t *testing.T) {
	f := &countingFetcher{fail: map[string]error{"/b.js": errors.New("boom")}}
	loader := NewModuleLoader(NewModuleRegistry(), f, nil)

	err := loader.EnsureAll(context.Background(), []string{"/a.js", "/b.js", "/c.js"})
	require.Error(t, err)
	require.Equal(t, []string{"/a.js"}, loader.Registry().Loaded())
	require.Equal(t, 2, f.Calls())
}

func TestRegistryInitFlagAndReset(t *testing.T) {
	r := NewModuleRegistry()
	require.True(t, r.MarkInitialized())
	require.False(t, r.MarkInitialized())
	require.True(t, r.Initialized())

	r.add("/a.js")
	r.Reset()
	require.False(t, r.Initialized())
	require.Empty(t, r.Loaded())
}

func TestDefaultGraphPlan(t *testing.T) {
	g := DefaultModuleGraph("/modules/")

	urls, err := g.Plan(PageContext{"has_estimator_button": true, "has_variations": true})
	require.NoError(t, err)
	require.Equal(t, []string{"/modules/estimator-core.js", "/modules/estimator-variations.js"}, urls)

	urls, err = g.Plan(PageContext{"has_variations": true, "has_suggestions": true})
	require.NoError(t, err)
	require.Equal(t, []string{
		"/modules/estimator-core.js",
		"/modules/estimator-variations.js",
		"/modules/estimator-suggestions.js",
	}, urls)

	urls, err = g.Plan(nil)
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestGraphLoadOrder(t *testing.T) {
	g := DefaultModuleGraph("/modules")
	urls, err := g.LoadOrder(ModuleModal)
	require.NoError(t, err)
	require.Equal(t, []string{"/modules/estimator-core.js", "/modules/estimator-modal.js"}, urls)

	_, err = g.LoadOrder("nope")
	var ge *ModuleGraphError
	require.True(t, errors.As(err, &ge))
}

func TestGraphRejectsBadSpecs(t *testing.T) {
	var ge *ModuleGraphError

	_, err := NewModuleGraph(
		ModuleSpec{Name: "a", URL: "/a.js", Requires: []string{"b"}},
		ModuleSpec{Name: "b", URL: "/b.js", Requires: []string{"a"}},
	)
	require.True(t, errors.As(err, &ge))
	require.Contains(t, ge.Reason, "cycle")

	_, err = NewModuleGraph(ModuleSpec{Name: "a", URL: "/a.js", Requires: []string{"ghost"}})
	require.True(t, errors.As(err, &ge))

	_, err = NewModuleGraph(ModuleSpec{Name: "a", URL: "/a.js", When: "has_variations =="})
	require.True(t, errors.As(err, &ge))

	_, err = NewModuleGraph(ModuleSpec{Name: "a", URL: "/a.js"}, ModuleSpec{Name: "a", URL: "/b.js"})
	require.True(t, errors.As(err, &ge))
}

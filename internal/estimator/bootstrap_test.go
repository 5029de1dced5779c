package estimator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapperAgainstService(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)
	b := NewBootstrapper(client, client, DefaultModuleGraph("/modules"))
	t.Cleanup(b.Teardown)

	control := &fakeControl{}
	surface := &fakeSurface{}
	widgets := &fakeWidgets{}
	modal := &fakeModal{}
	var built int32
	ui := UI{
		Controls: []Control{control},
		Surface:  surface,
		Widgets:  widgets,
		Modal:    countingFactory(modal, &built),
		Messages: &fakeSink{},
	}
	page := Page{ProductID: 10, EnabledByDefault: true, Context: PageContext{"has_estimator_button": true, "has_variations": true}}

	require.NoError(t, b.Init(context.Background(), page, ui))
	require.Equal(t, []string{"/modules/estimator-core.js", "/modules/estimator-variations.js"}, b.Registry().Loaded())

	b.Bus().VariantFound.Publish(VariantFound{ID: 11, EnabledFlag: strp("yes")})
	b.Wait()
	html, _, _, _ := surface.state()
	require.Contains(t, html, `data-variation-id="11"`)
	require.Len(t, widgets.batch, 1)

	require.NoError(t, b.AddToEstimator(context.Background()))
	require.Equal(t, []int64{11}, modal.opens)
	require.True(t, b.Registry().Has("/modules/estimator-modal.js"))

	b.Bus().SelectionReset.Publish(SelectionReset{})
	b.Wait()
	html, _, _, cleared := surface.state()
	require.Empty(t, html)
	require.Equal(t, 1, cleared)
	require.Equal(t, int64(10), b.Identity().CurrentTarget())
}

func TestBootstrapperInitRunsOnce(t *testing.T) {
	f := &countingFetcher{}
	b := NewBootstrapper(&instantSource{}, f, nil)
	page := Page{ProductID: 1, Context: PageContext{"page_type": "estimator"}}

	require.NoError(t, b.Init(context.Background(), page, UI{}))
	require.NoError(t, b.Init(context.Background(), page, UI{}))
	require.Equal(t, 1, f.Calls())
	require.Equal(t, 1, b.Bus().VariantFound.Len())

	b.Teardown()
	require.False(t, b.Registry().Initialized())
	require.Zero(t, b.Bus().VariantFound.Len())
}

func TestBootstrapperLoadFailureShowsGenericMessage(t *testing.T) {
	f := &countingFetcher{fail: map[string]error{"/modules/estimator-core.js": errors.New("503")}}
	sink := &fakeSink{}
	b := NewBootstrapper(&instantSource{}, f, nil)

	err := b.Init(context.Background(), Page{ProductID: 1, Context: PageContext{"has_estimator_button": true}}, UI{Messages: sink})
	var lf *LoadFailure
	require.ErrorAs(t, err, &lf)
	require.Equal(t, []string{TextLoadFailure}, sink.texts())
	require.True(t, b.Registry().Initialized())
}

func TestAddToEstimatorFallsBackWithoutModal(t *testing.T) {
	src := &instantSource{}
	nav := &recordingNavigator{}
	b := NewBootstrapper(src, &countingFetcher{}, nil, WithFallbackURL("/estimator?ref=pdp"))
	require.NoError(t, b.Init(context.Background(), Page{ProductID: 10}, UI{Navigator: nav}))

	require.NoError(t, b.AddToEstimator(context.Background()))
	require.Equal(t, []int64{10}, src.added)
	require.Equal(t, []string{"/estimator?product_id=10&ref=pdp"}, nav.urls)
}

func TestAddToEstimatorNetworkFailure(t *testing.T) {
	src := &instantSource{addErr: &NetworkFailure{Op: "add_to_estimator", Message: "Product not found"}}
	sink := &fakeSink{}
	modal := &fakeModal{}
	var built int32
	b := NewBootstrapper(src, &countingFetcher{}, nil)
	require.NoError(t, b.Init(context.Background(), Page{ProductID: 10}, UI{Messages: sink, Modal: countingFactory(modal, &built)}))

	err := b.AddToEstimator(context.Background())
	var nf *NetworkFailure
	require.ErrorAs(t, err, &nf)
	require.Equal(t, []string{TextNetworkFailure}, sink.texts())
	require.Empty(t, modal.opens)
}

func TestAddToEstimatorWithoutIdentity(t *testing.T) {
	src := &instantSource{}
	b := NewBootstrapper(src, &countingFetcher{}, nil)
	require.ErrorIs(t, b.AddToEstimator(context.Background()), ErrIdentityMissing)

	require.NoError(t, b.Init(context.Background(), Page{}, UI{}))
	require.ErrorIs(t, b.AddToEstimator(context.Background()), ErrIdentityMissing)
	require.Empty(t, src.added)
}

func TestRapidVariantSwitchShowsLatestVariant(t *testing.T) {
	for _, order := range [][]int64{{2, 1}, {1, 2}} {
		t.Run(fmt.Sprintf("release_%d_then_%d", order[0], order[1]), func(t *testing.T) {
			src := newGatedSource()
			surface := &fakeSurface{}
			b := NewBootstrapper(src, &countingFetcher{}, nil)
			require.NoError(t, b.Init(context.Background(), Page{ProductID: 100, EnabledByDefault: true}, UI{Surface: surface}))
			defer b.Teardown()

			b.Bus().VariantFound.Publish(VariantFound{ID: 1})
			b.Bus().VariantFound.Publish(VariantFound{ID: 2})
			started := map[int64]bool{<-src.started: true, <-src.started: true}
			require.Equal(t, map[int64]bool{1: true, 2: true}, started)

			for _, id := range order {
				src.release(id)
			}
			b.Wait()

			html, loading, replaced, _ := surface.state()
			require.Equal(t, fragmentFor(2), html)
			require.Equal(t, []string{fragmentFor(2)}, replaced)
			require.False(t, loading)
		})
	}
}

func TestRapidVariantSwitchWithImmediateResponses(t *testing.T) {
	for i := 0; i < 50; i++ {
		surface := &fakeSurface{}
		b := NewBootstrapper(&instantSource{}, &countingFetcher{}, nil)
		require.NoError(t, b.Init(context.Background(), Page{ProductID: 100}, UI{Surface: surface}))

		b.Bus().VariantFound.Publish(VariantFound{ID: 1})
		b.Bus().VariantFound.Publish(VariantFound{ID: 2})
		b.Wait()

		html, loading, _, _ := surface.state()
		require.Equal(t, fragmentFor(2), html, "iteration %d", i)
		require.False(t, loading, "iteration %d", i)
		b.Teardown()
	}
}

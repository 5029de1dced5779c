package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ru-digital/product-estimator/internal/api"
	"github.com/ru-digital/product-estimator/internal/estimates"
	"github.com/ru-digital/product-estimator/internal/fragments"
	"github.com/ru-digital/product-estimator/internal/models"
)

// newTestServer runs the estimator service with an in-memory catalog and store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	for _, name := range []string{"estimator-core.js", "estimator-modal.js", "estimator-variations.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("// "+name+"\n"), 0o644))
	}

	catalog := api.NewMemoryCatalog()
	catalog.PutProduct(models.CatalogProduct{ID: 10, Title: "Oak Floor", IsActive: true})
	catalog.PutVariation(models.Variation{ID: 11, ProductID: 10, Title: "Oak / 2m", EstimatorEnabled: true})
	catalog.PutVariation(models.Variation{ID: 12, ProductID: 10, Title: "Oak / 3m"})

	svc := estimates.NewService(estimates.NewMemoryRepository())
	h := api.NewHandler(catalog, svc, fragments.NewRenderer(), nil, time.Second)
	srv := httptest.NewServer(api.SetupRouter(h, api.RouterConfig{ModulesDir: dir}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAddToEstimator(t *testing.T) {
	c := NewClient(newTestServer(t).URL)

	msg, err := c.AddToEstimator(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "Product added to estimator", msg)

	_, err = c.AddToEstimator(context.Background(), 999)
	var nf *NetworkFailure
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "Product not found", nf.Message)
}

func TestClientGetVariationEstimator(t *testing.T) {
	c := NewClient(newTestServer(t).URL)

	html, err := c.GetVariationEstimator(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, FindWidgets(html), 2)

	html, err = c.GetVariationEstimator(context.Background(), 12)
	require.NoError(t, err)
	require.Empty(t, FindWidgets(html))

	_, err = c.GetVariationEstimator(context.Background(), 404)
	var nf *NetworkFailure
	require.ErrorAs(t, err, &nf)
}

func TestClientSubmitEstimateSavesThenUpdates(t *testing.T) {
	c := NewClient(newTestServer(t).URL)
	estimate := json.RawMessage(`{"name":"Kitchen","min_total":100,"max_total":150}`)
	details := map[string]string{"name": "Ann", "email": "ann@example.com"}

	first, err := c.SubmitEstimate(context.Background(), estimate, details, "")
	require.NoError(t, err)
	require.False(t, first.Updated)
	require.NotZero(t, first.EstimateID)

	second, err := c.SubmitEstimate(context.Background(), estimate, details, "second pass")
	require.NoError(t, err)
	require.True(t, second.Updated)
	require.Equal(t, first.EstimateID, second.EstimateID)
}

func TestClientTransportFailure(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)
	srv.Close()

	_, err := c.AddToEstimator(context.Background(), 10)
	var nf *NetworkFailure
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "add_to_estimator", nf.Op)
}

func TestClientFetchesModules(t *testing.T) {
	c := NewClient(newTestServer(t).URL)
	require.NoError(t, c.Fetch(context.Background(), "/modules/estimator-core.js"))
	require.NoError(t, c.Fetch(context.Background(), "modules/estimator-modal.js"))
	require.Error(t, c.Fetch(context.Background(), "/modules/estimator-missing.js"))
}

package estimator

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ru-digital/product-estimator/internal/fragments"
)

// Surface is the inline area that shows the variation fragment.
type Surface interface {
	SetLoading(loading bool)
	Replace(html string)
	Clear()
}

// Widget is an estimator sub-widget found in a fragment.
type Widget struct {
	Kind      string
	ProductID int64
}

// WidgetInitializer re-initializes widgets after a fragment swap.
type WidgetInitializer interface {
	InitWidgets(widgets []Widget)
}

// VariationSource fetches the fragment for a variation.
type VariationSource interface {
	GetVariationEstimator(ctx context.Context, variationID int64) (string, error)
}

// TargetReader exposes the current identity target.
type TargetReader interface {
	CurrentTarget() int64
}

// ContentRefresher swaps the variation fragment into a surface. Only the response to the latest
// request is applied, and only while the identity still targets that variation.
type ContentRefresher struct {
	source   VariationSource
	identity TargetReader
	surface  Surface
	widgets  WidgetInitializer
	messages *Messenger
	logger   *zap.Logger

	mu  sync.Mutex
	gen uint64
}

// NewContentRefresher wires a refresher. widgets and messages may be nil.
func NewContentRefresher(source VariationSource, identity TargetReader, surface Surface, widgets WidgetInitializer, messages *Messenger, logger *zap.Logger) *ContentRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentRefresher{
		source:   source,
		identity: identity,
		surface:  surface,
		widgets:  widgets,
		messages: messages,
		logger:   logger,
	}
}

// Refresh fetches the fragment for variationID and applies it unless it went stale in flight.
// It reports whether the surface was updated.
func (r *ContentRefresher) Refresh(ctx context.Context, variationID int64) (bool, error) {
	return r.Complete(ctx, variationID, r.Begin(variationID))
}

// Begin claims the next generation for variationID and shows the loading indicator. Callers that
// fetch asynchronously must call Begin in signal order so the newest selection holds the newest
// generation. It returns 0 for a zero id.
func (r *ContentRefresher) Begin(variationID int64) uint64 {
	if variationID == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.surface.SetLoading(true)
	return r.gen
}

// Complete fetches the fragment for a request started with Begin and applies it if gen is still
// the latest generation and the identity still targets variationID.
func (r *ContentRefresher) Complete(ctx context.Context, variationID int64, gen uint64) (bool, error) {
	if variationID == 0 || gen == 0 {
		return false, nil
	}

	html, err := r.source.GetVariationEstimator(ctx, variationID)

	r.mu.Lock()
	defer r.mu.Unlock()
	latest := gen == r.gen
	if latest {
		r.surface.SetLoading(false)
	}
	if err != nil {
		r.logger.Warn("variation fragment request failed", zap.Int64("variation_id", variationID), zap.Error(err))
		if latest && r.messages != nil {
			r.messages.Show(MessageError, TextNetworkFailure)
		}
		return false, err
	}
	if !latest || r.identity.CurrentTarget() != variationID {
		r.logger.Debug("stale variation fragment discarded", zap.Int64("variation_id", variationID), zap.Uint64("generation", gen))
		return false, nil
	}

	r.surface.Replace(html)
	if r.widgets != nil {
		if found := FindWidgets(html); len(found) > 0 {
			r.widgets.InitWidgets(found)
		}
	}
	return true, nil
}

// Reset empties the surface and invalidates every request still in flight.
func (r *ContentRefresher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.surface.SetLoading(false)
	r.surface.Clear()
}

// FindWidgets lists the estimator widgets declared in an HTML fragment.
func FindWidgets(html string) []Widget {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var widgets []Widget
	doc.Find("[" + fragments.WidgetAttr + "]").Each(func(_ int, s *goquery.Selection) {
		kind, _ := s.Attr(fragments.WidgetAttr)
		w := Widget{Kind: kind}
		if raw, ok := s.Attr("data-product-id"); ok {
			w.ProductID, _ = strconv.ParseInt(raw, 10, 64)
		}
		widgets = append(widgets, w)
	})
	return widgets
}

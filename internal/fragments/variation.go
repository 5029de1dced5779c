// Package fragments renders the HTML snippets returned by the estimator endpoints.
package fragments

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ru-digital/product-estimator/internal/models"
)

// WidgetAttr marks an element the client re-initializes after swapping a fragment in. Its value
// is the widget kind.
const WidgetAttr = "data-estimator-widget"

// Widget kinds rendered into variation fragments.
const (
	WidgetAddButton   = "add-button"
	WidgetSuggestions = "suggestions"
)

var variationTmpl = template.Must(template.New("variation").Parse(
	`<div class="product-estimator-variation" data-variation-id="{{.Variation.ID}}" data-product-id="{{.Variation.ProductID}}">` +
		`{{if .Variation.EstimatorEnabled}}` +
		`<button type="button" class="product-estimator-button" ` + WidgetAttr + `="` + WidgetAddButton + `" data-product-id="{{.Variation.ID}}">Add to estimate</button>` +
		`<div class="product-estimator-suggestions" ` + WidgetAttr + `="` + WidgetSuggestions + `" data-product-id="{{.Variation.ID}}"></div>` +
		`{{end}}` +
		`<h4 class="product-estimator-variation-title">{{.Variation.Title}}</h4>` +
		`{{if .Variation.SKU}}<span class="product-estimator-sku">{{.Variation.SKU}}</span>{{end}}` +
		`{{if .Description}}<div class="product-estimator-variation-description">{{.Description}}</div>{{end}}` +
		`</div>`))

// Renderer renders variation fragments. Rich-text descriptions come from catalog admins and are
// sanitized before being embedded.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer creates a renderer using the UGC sanitization policy.
func NewRenderer() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

// Variation renders the estimator block for one variation.
func (r *Renderer) Variation(v models.Variation) (string, error) {
	data := struct {
		Variation   models.Variation
		Description template.HTML
	}{
		Variation:   v,
		Description: template.HTML(r.policy.Sanitize(v.Description)),
	}
	var buf bytes.Buffer
	if err := variationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

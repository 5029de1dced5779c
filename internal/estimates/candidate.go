package estimates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ru-digital/product-estimator/internal/models"
)

// Candidate is an incoming estimate payload. Only a handful of keys are read; the rest is
// carried through untouched.
type Candidate struct {
	raw    json.RawMessage
	fields map[string]interface{}
}

// ParseCandidate decodes a JSON object and keeps the original bytes for storage.
func ParseCandidate(raw []byte) (Candidate, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return Candidate{fields: map[string]interface{}{}}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return Candidate{}, fmt.Errorf("estimate payload must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return Candidate{raw: append(json.RawMessage(nil), raw...), fields: fields}, nil
}

// CandidateFromMap wraps an already-decoded payload.
func CandidateFromMap(m map[string]interface{}) Candidate {
	if m == nil {
		m = map[string]interface{}{}
	}
	return Candidate{fields: m}
}

// Fields exposes the decoded payload.
func (c Candidate) Fields() map[string]interface{} { return c.fields }

// Serialize returns the payload as stored in estimate_data: the submitted bytes when known.
func (c Candidate) Serialize() (string, error) {
	if len(c.raw) > 0 {
		return string(c.raw), nil
	}
	fields := c.fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CustomerDetails reads the customer_details block of the payload.
func (c Candidate) CustomerDetails() models.CustomerDetails {
	block, _ := c.fields["customer_details"].(map[string]interface{})
	if block == nil {
		return models.CustomerDetails{}
	}
	return models.CustomerDetails{
		Name:     stringField(block, "name"),
		Email:    stringField(block, "email"),
		Phone:    stringField(block, "phone"),
		Postcode: stringField(block, "postcode"),
	}
}

// Name is the top-level estimate name.
func (c Candidate) Name() string { return stringField(c.fields, "name") }

// MinTotal is min_total as a number, 0 when absent or non-numeric.
func (c Candidate) MinTotal() float64 { return numberField(c.fields, "min_total") }

// MaxTotal is max_total as a number, 0 when absent or non-numeric.
func (c Candidate) MaxTotal() float64 { return numberField(c.fields, "max_total") }

// Markup reads default_markup, falling back to markup.
func (c Candidate) Markup() float64 {
	if _, ok := c.fields["default_markup"]; ok {
		return numberField(c.fields, "default_markup")
	}
	return numberField(c.fields, "markup")
}

// identity resolves the (name, email) pair used both for storage and for dedup.
func identity(c Candidate, details models.CustomerDetails) (string, string) {
	name := strings.TrimSpace(details.Name)
	if name == "" {
		name = strings.TrimSpace(c.Name())
	}
	return name, strings.TrimSpace(details.Email)
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func numberField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

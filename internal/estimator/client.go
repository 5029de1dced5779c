package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the estimator service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL with a bounded HTTP timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type messageData struct {
	Message string `json:"message"`
}

// SubmitResult is the server's answer to SubmitEstimate.
type SubmitResult struct {
	EstimateID int64  `json:"estimate_id"`
	Updated    bool   `json:"updated"`
	Message    string `json:"message"`
}

// AddToEstimator registers productID with the estimator and returns the server message.
func (c *Client) AddToEstimator(ctx context.Context, productID int64) (string, error) {
	body, _ := json.Marshal(map[string]int64{"product_id": productID})
	var data messageData
	if err := c.call(ctx, "add_to_estimator", http.MethodPost, "/api/v1/estimator/add", body, &data); err != nil {
		return "", err
	}
	return data.Message, nil
}

// GetVariationEstimator returns the estimator fragment for a variation.
func (c *Client) GetVariationEstimator(ctx context.Context, variationID int64) (string, error) {
	var data struct {
		HTML string `json:"html"`
	}
	path := "/api/v1/estimator/variations/" + strconv.FormatInt(variationID, 10)
	if err := c.call(ctx, "get_variation_estimator", http.MethodGet, path, nil, &data); err != nil {
		return "", err
	}
	return data.HTML, nil
}

// SubmitEstimate sends a finished estimate for persistence.
func (c *Client) SubmitEstimate(ctx context.Context, estimate json.RawMessage, details map[string]string, notes string) (SubmitResult, error) {
	body, err := json.Marshal(struct {
		Estimate        json.RawMessage   `json:"estimate"`
		CustomerDetails map[string]string `json:"customer_details,omitempty"`
		Notes           string            `json:"notes,omitempty"`
	}{estimate, details, notes})
	if err != nil {
		return SubmitResult{}, &NetworkFailure{Op: "submit_estimate", Cause: err}
	}
	var res SubmitResult
	if err := c.call(ctx, "submit_estimate", http.MethodPost, "/api/v1/estimates", body, &res); err != nil {
		return SubmitResult{}, err
	}
	return res, nil
}

// Fetch loads a module asset; any 2xx response counts as loaded. It makes Client a Fetcher.
func (c *Client) Fetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(url), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func (c *Client) call(ctx context.Context, op, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return &NetworkFailure{Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &NetworkFailure{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &NetworkFailure{Op: op, Cause: fmt.Errorf("status %d: decode response: %w", resp.StatusCode, err)}
	}
	if !env.Success {
		var msg messageData
		_ = json.Unmarshal(env.Data, &msg)
		return &NetworkFailure{Op: op, Message: msg.Message, Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkFailure{Op: op, Cause: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

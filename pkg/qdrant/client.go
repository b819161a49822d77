// Package qdrant provides a client for the Qdrant vector database REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Qdrant search operations used by the engine.
type Client interface {
	// Search returns the points nearest to the query vector,
	// best-match-first, with payloads attached.
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error)
}

// ScoredPoint is a single search hit.
type ScoredPoint struct {
	ID      PointID `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// Payload is the stored incident document attached to a point.
type Payload struct {
	Content  string          `json:"content"`
	Category string          `json:"category"`
	Metadata PayloadMetadata `json:"metadata"`
}

// PayloadMetadata carries the incident record fields loaded into the corpus.
type PayloadMetadata struct {
	Title        string `json:"title"`
	Severity     string `json:"severity"`
	Organization string `json:"organization"`
	IncidentDate string `json:"incident_date"`
	Industry     string `json:"industry"`
	Jurisdiction string `json:"jurisdiction"`
}

// PointID accepts Qdrant's numeric and UUID id forms.
type PointID string

// UnmarshalJSON decodes either a JSON string or a JSON number.
func (p *PointID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PointID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return eris.Errorf("qdrant: point id %s is neither string nor number", string(data))
	}
	*p = PointID(n.String())
	return nil
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []ScoredPoint `json:"result"`
	Status any           `json:"status"`
	Time   float64       `json:"time"`
}

// Option configures the Qdrant client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL    string
	apiKey     string
	collection string
	http       *http.Client
}

// NewClient creates a Qdrant client for one collection.
func NewClient(baseURL, apiKey, collection string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a request with exponential backoff on transient failures.
func (c *httpClient) retryDo(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "qdrant: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "qdrant: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("qdrant: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Search(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error) {
	payload, err := json.Marshal(searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "qdrant: marshal search request")
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	body, statusCode, err := c.retryDo(ctx, url, payload)
	if err != nil {
		return nil, eris.Wrap(err, "qdrant: search request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("qdrant: search unexpected status %d: %s", statusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "qdrant: unmarshal search response")
	}

	return result.Result, nil
}

// Package books is a client for the Google Books volumes API, reduced to the
// single search the catalog needs.
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/debug"
	"github.com/rhuss/bookstore/pkg/observability"
)

// DefaultBaseURL is the public volumes endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// Config holds the client configuration.
type Config struct {
	// APIKey is optional at startup; without it every search fails with
	// SERVICE_UNAVAILABLE.
	APIKey string

	// BaseURL is the volumes endpoint. Default: DefaultBaseURL.
	BaseURL string

	// MaxResults caps the number of volumes requested. Default: 10.
	MaxResults int

	// Timeout bounds a single upstream call. Default: 10s.
	Timeout time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 10
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// Client searches the volumes API.
type Client struct {
	config Config
}

// New creates a client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg}
}

// Search returns simplified records for query. A blank query returns an
// empty list without contacting the API. Volumes without a title are
// dropped.
func (c *Client) Search(ctx context.Context, query string) ([]api.BookRecord, error) {
	if c.config.APIKey == "" {
		slog.Warn("GOOGLE_BOOKS_API_KEY is not set, book lookup is unavailable")
		return nil, api.NewInternal(http.StatusServiceUnavailable,
			"Google Books API key not configured on server", api.CodeServiceUnavailable, nil)
	}
	if strings.TrimSpace(query) == "" {
		return []api.BookRecord{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.config.APIKey)
	params.Set("maxResults", strconv.Itoa(c.config.MaxResults))
	params.Set("projection", "lite")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, upstreamError(http.StatusInternalServerError, err.Error(), err)
	}
	req.Header.Set("Accept", "application/json")

	debug.Log(ctx, debug.Books, "upstream request", "query", query, "max_results", c.config.MaxResults)

	start := time.Now()
	resp, err := c.config.HTTPClient.Do(req)
	observability.LookupLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.LookupRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, upstreamError(http.StatusInternalServerError, err.Error(), err)
	}
	defer resp.Body.Close()

	observability.LookupRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractErrorMessage(resp.Body)
		debug.Log(ctx, debug.Books, "upstream rejected request", "status", resp.StatusCode, "message", debug.Truncate(msg, 200))
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		return nil, upstreamError(resp.StatusCode, msg, nil)
	}

	var body volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, upstreamError(http.StatusInternalServerError, "invalid response body", err)
	}

	records := simplify(body.Items)
	slog.Info("google books search successful", "query", query, "results", len(records))
	return records, nil
}

// upstreamError builds the non-operational GOOGLE_API_ERROR.
func upstreamError(status int, msg string, cause error) *api.APIError {
	return api.NewInternal(status, "Google Books API Error: "+msg, api.CodeGoogleAPIError, cause)
}

// extractErrorMessage reads error.message from an API error body.
func extractErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &e) != nil {
		return ""
	}
	return e.Error.Message
}

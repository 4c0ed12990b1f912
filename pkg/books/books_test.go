package books

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/bookstore/pkg/api"
)

const volumesFixture = `{
  "totalItems": 3,
  "items": [
    {
      "id": "vol-1",
      "volumeInfo": {
        "title": "Dune",
        "authors": ["Frank Herbert"],
        "publisher": "Ace",
        "publishedDate": "1990",
        "industryIdentifiers": [
          {"type": "ISBN_10", "identifier": "0441172717"},
          {"type": "ISBN_13", "identifier": "9780441172719"}
        ],
        "pageCount": 535,
        "language": "en",
        "imageLinks": {"smallThumbnail": "http://small", "thumbnail": "http://thumb"}
      }
    },
    {"id": "vol-2", "volumeInfo": {"authors": ["Nobody"]}},
    {"id": "vol-3", "volumeInfo": {"title": "Dune Messiah", "imageLinks": {"smallThumbnail": "http://small-only"}}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(Config{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()}), &calls
}

func requireAPIError(t *testing.T, err error) *api.APIError {
	t.Helper()
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr), "want *api.APIError, got %T: %v", err, err)
	return apiErr
}

func TestSearch_MapsAndFiltersUntitled(t *testing.T) {
	var gotQuery map[string]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q":          q.Get("q"),
			"key":        q.Get("key"),
			"maxResults": q.Get("maxResults"),
			"projection": q.Get("projection"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(volumesFixture))
	})

	records, err := c.Search(context.Background(), "dune")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"q": "dune", "key": "test-key", "maxResults": "10", "projection": "lite",
	}, gotQuery)

	require.Len(t, records, 2)
	assert.Equal(t, api.BookRecord{
		GoogleBooksID: "vol-1",
		Title:         "Dune",
		Authors:       []string{"Frank Herbert"},
		Publisher:     ptr("Ace"),
		PublishedDate: ptr("1990"),
		ISBN10:        ptr("0441172717"),
		ISBN13:        ptr("9780441172719"),
		PageCount:     ptr(535),
		Language:      ptr("en"),
		CoverImageURL: ptr("http://thumb"),
	}, records[0])
	assert.Equal(t, "Dune Messiah", records[1].Title)
	assert.Equal(t, ptr("http://small-only"), records[1].CoverImageURL)
	assert.Equal(t, []string{}, records[1].Authors)
}

func ptr[T any](v T) *T { return &v }

func TestSearch_MissingFieldsEncodeAsNull(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems":1,"items":[{"id":"vol-9","volumeInfo":{"title":"Solaris"}}]}`))
	})

	records, err := c.Search(context.Background(), "solaris")
	require.NoError(t, err)
	require.Len(t, records, 1)

	data, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"googleBooksId": "vol-9",
		"title": "Solaris",
		"authors": [],
		"publisher": null,
		"publishedDate": null,
		"description": null,
		"isbn10": null,
		"isbn13": null,
		"pageCount": null,
		"language": null,
		"coverImageUrl": null
	}`, string(data))
}

func TestSearch_BlankQueryDoesNotCallUpstream(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	for _, q := range []string{"", "   "} {
		records, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_NoItems(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems":0}`))
	})

	records, err := c.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSearch_MissingAPIKey(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})

	for _, q := range []string{"dune", ""} {
		_, err := c.Search(context.Background(), q)
		apiErr := requireAPIError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode())
		assert.Equal(t, api.CodeServiceUnavailable, apiErr.Code)
		assert.False(t, apiErr.Operational)
	}
}

func TestSearch_UpstreamErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid."}}`))
	})

	_, err := c.Search(context.Background(), "dune")
	apiErr := requireAPIError(t, err)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode())
	assert.Equal(t, api.CodeGoogleAPIError, apiErr.Code)
	assert.Equal(t, "Google Books API Error: API key not valid.", apiErr.Message)
	assert.False(t, apiErr.Operational)
}

func TestSearch_UpstreamErrorWithoutBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "dune")
	apiErr := requireAPIError(t, err)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode())
	assert.Equal(t, "Google Books API Error: Request failed with status code 502", apiErr.Message)
}

func TestSearch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := New(Config{APIKey: "k", BaseURL: baseURL})
	_, err := c.Search(context.Background(), "dune")

	apiErr := requireAPIError(t, err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode())
	assert.Equal(t, api.CodeGoogleAPIError, apiErr.Code)
	assert.False(t, apiErr.Operational)
	assert.NotNil(t, errors.Unwrap(apiErr))
}

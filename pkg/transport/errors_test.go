package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/storage"
)

var errTest = errors.New("boom")

type teapotError struct{}

func (teapotError) Error() string   { return "short and stout" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

func TestNormalize(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), false)

	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantCode        string
		wantMessage     string
		wantOperational bool
	}{
		{
			"unique violation",
			storage.Unique(storage.EntityUser, nil, "email"),
			http.StatusConflict, api.CodeDuplicateEntry, "User with this email already exists", true,
		},
		{
			"foreign key violation",
			storage.ForeignKey(storage.EntityBook, nil, "author_id"),
			http.StatusBadRequest, api.CodeRelationNotFound, "Related record not found for author_id", true,
		},
		{
			"not found",
			storage.NotFound(storage.EntityAuthor),
			http.StatusNotFound, api.CodeNotFound, "Author not found", true,
		},
		{
			"other storage error",
			storage.Other(storage.EntityAuthor, errTest),
			http.StatusInternalServerError, api.CodeDBError, "Database operation failed", false,
		},
		{
			"wrapped storage error",
			fmt.Errorf("create: %w", storage.NotFound(storage.EntityUser)),
			http.StatusNotFound, api.CodeNotFound, "User not found", true,
		},
		{
			"api error passthrough",
			api.NewForbiddenError("nope"),
			http.StatusForbidden, api.CodeForbidden, "nope", true,
		},
		{
			"plain error",
			errTest,
			http.StatusInternalServerError, api.CodeUnexpected, "boom", false,
		},
		{
			"error with own status",
			teapotError{},
			http.StatusTeapot, api.CodeUnexpected, "short and stout", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eh.Normalize(tt.err)
			if got.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", got.StatusCode(), tt.wantStatus)
			}
			if got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMessage)
			}
			if got.Operational != tt.wantOperational {
				t.Errorf("operational = %v, want %v", got.Operational, tt.wantOperational)
			}
		})
	}
}

func TestNormalizeStorageBeforeAPIError(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), false)
	err := api.New(http.StatusTeapot, "wrapped", "CUSTOM").WithCause(storage.NotFound(storage.EntityBook))

	got := eh.Normalize(err)
	if got.Code != api.CodeNotFound {
		t.Errorf("code = %q, want %q", got.Code, api.CodeNotFound)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	return body
}

func TestHandleValidationDetails(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), true)
	rec := httptest.NewRecorder()

	eh.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/users", nil),
		api.NewValidationError([]api.Detail{{Field: "body.email", Message: "Invalid email address"}}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeError(t, rec)
	details, ok := body["details"].([]any)
	if !ok || len(details) != 1 {
		t.Fatalf("details = %v", body["details"])
	}
	d := details[0].(map[string]any)
	if d["field"] != "body.email" || d["message"] != "Invalid email address" {
		t.Errorf("detail = %v", d)
	}
}

func TestHandleHardenedHidesInternals(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), true)
	rec := httptest.NewRecorder()

	eh.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), teapotError{})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeError(t, rec)
	errObj := body["error"].(map[string]any)
	if errObj["message"] != "Internal Server Error" || errObj["code"] != api.CodeInternalServerError {
		t.Errorf("error = %v", errObj)
	}
	if _, ok := body["details"]; ok {
		t.Errorf("details leaked in hardened mode: %v", body["details"])
	}
}

func TestHandleHardenedKeepsOperationalErrors(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), true)
	rec := httptest.NewRecorder()

	eh.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), storage.NotFound(storage.EntityAuthor))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeError(t, rec)
	if body["error"].(map[string]any)["message"] != "Author not found" {
		t.Errorf("body = %v", body)
	}
}

func TestHandlePermissiveIncludesTrace(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), false)
	rec := httptest.NewRecorder()

	eh.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), storage.Other(storage.EntityUser, errTest))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeError(t, rec)
	trace, ok := body["details"].(map[string]any)
	if !ok {
		t.Fatalf("details = %v, want trace", body["details"])
	}
	if !strings.Contains(trace["error"].(string), "boom") {
		t.Errorf("trace error = %v", trace["error"])
	}
	stack, _ := trace["stack"].(string)
	if !strings.Contains(stack, "errors_test.go") {
		t.Errorf("trace stack should point at the failing call:\n%s", stack)
	}
	if strings.Contains(stack, "fromStorage") {
		t.Errorf("trace stack points at the error handler:\n%s", stack)
	}
}

func TestNormalizeDBErrorWithoutStack(t *testing.T) {
	eh := NewErrorHandler(discardLogger(), false)

	err := fmt.Errorf("list authors: %w", &storage.Error{Kind: storage.KindOther, Err: errTest})
	apiErr := eh.Normalize(err)

	if apiErr.Code != api.CodeDBError || apiErr.Operational {
		t.Fatalf("got %s operational=%v, want non-operational DB_ERROR", apiErr.Code, apiErr.Operational)
	}
	if apiErr.Stack() != "" {
		t.Errorf("stack = %q, want none", apiErr.Stack())
	}
}

func TestHandleLogsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	eh := NewErrorHandler(slog.New(slog.NewJSONHandler(&buf, nil)), false)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog/authors/{authorId}", func(w http.ResponseWriter, r *http.Request) {
		eh.Handle(w, r, storage.NotFound(storage.EntityAuthor))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/authors/abc?verbose=1", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-7"))
	mux.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry is not JSON: %v: %s", err, buf.String())
	}
	if entry["request_id"] != "req-7" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	params, _ := entry["params"].(map[string]any)
	if params["authorId"] != "abc" {
		t.Errorf("params = %v", entry["params"])
	}
	if _, ok := entry["query"]; !ok {
		t.Error("query missing from log entry")
	}
}

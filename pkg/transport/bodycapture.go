package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxCapturedBody bounds how much of a request body is kept for diagnostics.
const maxCapturedBody = 8 << 10

// redacted replaces secret values in captured bodies.
const redacted = "[REDACTED]"

type bodyKeyType struct{}

// CaptureBody returns middleware that keeps a redacted copy of the request
// body in the context for error logging. The body seen by handlers is left
// intact: the first limit bytes are replayed ahead of the unread remainder.
func CaptureBody(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			orig := r.Body
			data, err := io.ReadAll(io.LimitReader(orig, limit))
			if err != nil {
				data = nil
			}
			r.Body = readCloser{io.MultiReader(bytes.NewReader(data), orig), orig}

			ctx := context.WithValue(r.Context(), bodyKeyType{}, redactBody(data))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestBodyFromContext returns the redacted body captured for the request,
// or nil.
func RequestBodyFromContext(ctx context.Context) any {
	return ctx.Value(bodyKeyType{})
}

// redactBody decodes a JSON object and masks secret fields. Anything else is
// kept as a truncated string.
func redactBody(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		for k := range obj {
			if isSecretKey(k) {
				obj[k] = redacted
			}
		}
		return obj
	}
	if len(data) > maxCapturedBody {
		data = data[:maxCapturedBody]
	}
	return string(data)
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "password") || strings.Contains(k, "token") || strings.Contains(k, "secret")
}

type readCloser struct {
	io.Reader
	io.Closer
}

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/observability"
	"github.com/rhuss/bookstore/pkg/storage"
)

// ErrorHandler turns any error reaching the edge of a request into the
// client-facing error body. It is the single place errors are logged.
type ErrorHandler struct {
	logger   *slog.Logger
	hardened bool
}

// NewErrorHandler creates an ErrorHandler. In hardened mode, non-operational
// errors are reported with a generic body and no diagnostic trace.
func NewErrorHandler(logger *slog.Logger, hardened bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{logger: logger, hardened: hardened}
}

// stackTracer is implemented by errors that carry a captured stack.
type stackTracer interface {
	Stack() string
}

// statusCoder is implemented by foreign errors that know their HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Normalize reclassifies err into an *api.APIError. Storage failures are
// checked first so a storage error wrapped inside an APIError's cause is
// still reported by its kind.
func (h *ErrorHandler) Normalize(err error) *api.APIError {
	var apiErr *api.APIError

	var se *storage.Error
	switch {
	case errors.As(err, &se):
		apiErr = fromStorage(se)
	case errors.As(err, &apiErr):
	default:
		status := http.StatusInternalServerError
		var sc statusCoder
		if errors.As(err, &sc) {
			status = sc.StatusCode()
		}
		apiErr = &api.APIError{
			Status:  status,
			Message: err.Error(),
			Code:    api.CodeUnexpected,
		}
		apiErr.WithCause(err)
	}

	if apiErr.Stack() == "" {
		var st stackTracer
		if errors.As(err, &st) {
			apiErr.WithStack(st.Stack())
		}
	}
	return apiErr
}

func fromStorage(se *storage.Error) *api.APIError {
	switch se.Kind {
	case storage.KindUniqueViolation:
		msg := fmt.Sprintf("%s with this %s already exists", entityLabel(se.Entity), fieldList(se.Fields, "value"))
		return api.NewConflictError(msg, api.CodeDuplicateEntry).WithCause(se)
	case storage.KindForeignKeyViolation:
		msg := fmt.Sprintf("Related record not found for %s", fieldList(se.Fields, "relation"))
		return api.New(http.StatusBadRequest, msg, api.CodeRelationNotFound).WithCause(se)
	case storage.KindNotFound:
		return api.NewNotFoundError(entityLabel(se.Entity) + " not found").WithCause(se)
	default:
		apiErr := &api.APIError{
			Status:  http.StatusInternalServerError,
			Message: "Database operation failed",
			Code:    api.CodeDBError,
		}
		return apiErr.WithCause(se)
	}
}

func entityLabel(entity string) string {
	if entity == "" {
		return "Record"
	}
	return strings.ToUpper(entity[:1]) + entity[1:]
}

func fieldList(fields []string, fallback string) string {
	if len(fields) == 0 {
		return fallback
	}
	return strings.Join(fields, ", ")
}

// Handle normalizes err, logs it once with request context and writes the
// error response.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := h.Normalize(err)
	status := apiErr.StatusCode()

	h.log(r, apiErr, err)
	observability.ErrorsTotal.WithLabelValues(apiErr.Code, strconv.FormatBool(apiErr.Operational)).Inc()

	if h.hardened && !apiErr.Operational {
		WriteJSON(w, http.StatusInternalServerError, api.ErrorResponse{
			Error: api.ErrorBody{
				Message: "Internal Server Error",
				Code:    api.CodeInternalServerError,
			},
		})
		return
	}

	resp := api.ErrorResponse{
		Error: api.ErrorBody{Message: apiErr.Message, Code: apiErr.Code},
	}
	switch {
	case apiErr.Details != nil:
		resp.Details = apiErr.Details
	case !apiErr.Operational:
		trace := api.Trace{Error: err.Error(), Stack: apiErr.Stack()}
		resp.Details = trace
	}
	WriteJSON(w, status, resp)
}

func (h *ErrorHandler) log(r *http.Request, apiErr *api.APIError, err error) {
	attrs := []slog.Attr{
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", apiErr.StatusCode()),
		slog.String("code", apiErr.Code),
		slog.Bool("operational", apiErr.Operational),
		slog.String("error", err.Error()),
	}
	if params := pathParams(r); len(params) > 0 {
		attrs = append(attrs, slog.Any("params", params))
	}
	if q := r.URL.Query(); len(q) > 0 {
		attrs = append(attrs, slog.Any("query", q))
	}
	if body := RequestBodyFromContext(r.Context()); body != nil {
		attrs = append(attrs, slog.Any("body", body))
	}

	if apiErr.Operational {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "request failed", attrs...)
		return
	}
	if stack := apiErr.Stack(); stack != "" {
		attrs = append(attrs, slog.String("stack", stack))
	}
	h.logger.LogAttrs(r.Context(), slog.LevelError, "request failed", attrs...)
}

// pathParams collects the wildcard values of the matched route pattern.
func pathParams(r *http.Request) map[string]string {
	if r.Pattern == "" {
		return nil
	}
	params := make(map[string]string)
	for _, seg := range strings.Split(r.Pattern, "/") {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		name := strings.TrimSuffix(strings.Trim(seg, "{}"), "...")
		if name == "$" || name == "" {
			continue
		}
		params[name] = r.PathValue(name)
	}
	return params
}

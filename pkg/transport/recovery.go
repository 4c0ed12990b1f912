package transport

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// panicError carries a recovered panic value and the goroutine stack.
type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// Stack returns the stack captured at recovery.
func (e *panicError) Stack() string { return e.stack }

// Recovery returns middleware that catches panics in the handler and hands
// them to eh as unexpected errors. The server continues to accept new
// requests after a panic is recovered. http.ErrAbortHandler is re-panicked.
func Recovery(eh *ErrorHandler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				eh.Handle(w, r, &panicError{value: v, stack: string(debug.Stack())})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Recovery turns a handler panic into a 500 written by onPanic.
func Recovery(logger Logger, onPanic func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Recovered from panic", map[string]interface{}{
						"path":      r.URL.Path,
						"requestId": GetRequestID(r.Context()),
						"panic":     fmt.Sprint(rec),
						"stack":     string(debug.Stack()),
					})
					onPanic(w, r, fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

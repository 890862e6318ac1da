package ingress

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDHeader is the header name propagated on every response,
// ported from the original's request_id.rs (which used nanoid; this
// uses google/uuid, a real teacher dependency, per SPEC_FULL.md's
// supplemented features).
const requestIDHeader = "X-Request-Id"

type requestIDCtxKey struct{}

// requestIDMiddleware assigns a request ID if the client didn't send
// one, stashes it in the request context, and echoes it on the
// response, mirroring push_req_id_to_extensions.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDCtxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDFromContext retrieves the ID stashed by requestIDMiddleware,
// for use in Problem responses' request_id field.
func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// timeoutMiddleware bounds request handling to d, the way the
// original's TimeoutLayer does.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"title":"Request Timeout","status":503}`)
	}
}

// permissiveCORSMiddleware mirrors the original's CorsLayer::permissive():
// allow any origin and header, and the methods GET, POST, PUT, PATCH,
// DELETE and OPTIONS, with no credentials. go.mod
// carries no dedicated CORS library among the teacher's dependencies,
// so this is hand-rolled against net/http — see DESIGN.md for the
// stdlib justification.
func permissiveCORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bodySizeLimitMiddleware rejects request bodies larger than maxBytes,
// mirroring RequestBodyLimitLayer.
func bodySizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

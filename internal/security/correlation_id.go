package security

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CorrelationIDHeader carries the request correlation id in and out of the
// service.
const CorrelationIDHeader = "X-Correlation-ID"

type correlationIDKey struct{}

// CorrelationID tags every request with a correlation id: the caller's if
// they sent one, a fresh UUID otherwise. The id rides the request context
// and is echoed on the response, so one id links the access log, the audit
// chain and the client's own records.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" {
			cid = uuid.NewString()
		}

		w.Header().Set(CorrelationIDHeader, cid)
		ctx := context.WithValue(r.Context(), correlationIDKey{}, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationIDFromContext returns the request's correlation id, or "" when
// the middleware did not run.
func CorrelationIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(correlationIDKey{}).(string)
	return s
}

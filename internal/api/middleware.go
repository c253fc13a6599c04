package api

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"
)

// requestIDMiddleware attaches a UUID request ID and the request metadata
// carried into audit records.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := models.ContextWithRequest(r.Context(), models.RequestInfo{
			ID:         id,
			Path:       r.URL.Path,
			Method:     r.Method,
			SourceAddr: clientIP(r),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseRecorder captures the status code for metrics and tells handlers
// whether the response has started.
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.statusCode = code
		rr.wroteHeader = true
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	return rr.ResponseWriter.Write(b)
}

func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

func rateLimitMiddleware(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			log.Warn().Str("ip", clientIP(r)).Msg("rate limit exceeded")
			writeJSON(w, http.StatusTooManyRequests, fault.Response{
				Status:  http.StatusTooManyRequests,
				Message: "rate limit exceeded",
				Code:    "RATE_LIMITED",
			})
		}),
	)
}

func secureHeaders(production bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:         stsSeconds(production),
		IsDevelopment:      !production,
	}).Handler
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

// clientIP is the peer address. Forwarding headers are honoured only when
// RealIP has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

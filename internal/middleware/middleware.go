package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apierrors "datacleaner/internal/errors"
	"datacleaner/internal/infrastructure"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID, reusing the client's X-Request-ID
// when present. The ID is stored under chi's request ID key so that the
// error handler and chi's own middleware see the same value, and doubles as
// the log trace ID until a span provides a better one.
// This should be the FIRST middleware in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, requestID)
		ctx = infrastructure.WithTraceID(ctx, requestID)
		if id := infrastructure.TraceIDFromContext(ctx); id != "" {
			ctx = infrastructure.WithTraceID(ctx, id)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID, falling back to the trace ID.
func GetRequestID(ctx context.Context) string {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return reqID
	}
	return infrastructure.GetTraceID(ctx)
}

// StructuredLogger logs the start and end of each request with slog.
// This should come AFTER RequestID and RealIP.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger.DebugContext(ctx, "request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// writeProblem renders an RFC 7807 document carrying the request's trace ID.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	problem := apierrors.NewProblemDetails(status, problemType, title, detail, r.URL.Path).
		WithExtension("trace_id", GetRequestID(r.Context()))
	_ = render.Render(w, r, problem)
}

// Recoverer turns a panic into a 500 problem response.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				writeProblem(w, r, http.StatusInternalServerError, apierrors.TypeInternal,
					"Internal Server Error", "An unexpected error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter applies a global token bucket to all requests.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler implements the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			w.Header().Set("Retry-After", "1")
			writeProblem(w, r, http.StatusTooManyRequests, apierrors.TypeRateLimit,
				"Too Many Requests", "Rate limit exceeded, retry shortly")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Timeout bounds the request context. Handlers observe the deadline through
// ctx; if one gives up without writing a response the client gets a 504.
func Timeout(timeout time.Duration, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ctx.Err() != context.DeadlineExceeded || ww.Status() != 0 {
				return
			}

			logger.ErrorContext(r.Context(), "request timeout",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("timeout", timeout),
			)
			writeProblem(w, r, http.StatusGatewayTimeout, apierrors.TypeTimeout,
				"Request Timeout", "The request took too long to process")
		})
	}
}

// CORSConfig lists what cross-origin browsers may do. Zero values get the
// defaults the session API needs.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Logger           *slog.Logger
}

func (c CORSConfig) headers() http.Header {
	join := func(v []string, def ...string) string {
		if len(v) == 0 {
			v = def
		}
		return strings.Join(v, ", ")
	}
	maxAge := c.MaxAge
	if maxAge == 0 {
		maxAge = 300
	}

	h := http.Header{}
	h.Set("Access-Control-Allow-Methods", join(c.AllowedMethods, "GET", "POST", "DELETE", "OPTIONS"))
	h.Set("Access-Control-Allow-Headers", join(c.AllowedHeaders, "Accept", "Content-Type", RequestIDHeader))
	h.Set("Access-Control-Expose-Headers", join(c.ExposedHeaders, RequestIDHeader, "Content-Disposition"))
	h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	return h
}

// CORS answers preflight requests and echoes allowed origins. An empty
// origin list or a "*" entry allows every origin.
func CORS(config CORSConfig) func(next http.Handler) http.Handler {
	static := config.headers()
	anyOrigin := len(config.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(config.AllowedOrigins))
	for _, o := range config.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		origins[strings.ToLower(o)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, listed := origins[strings.ToLower(origin)]
			allowed := anyOrigin || listed

			for k, v := range static {
				w.Header()[k] = append([]string(nil), v...)
			}
			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if config.Logger != nil {
				config.Logger.DebugContext(r.Context(), "CORS preflight",
					slog.String("origin", origin),
					slog.Bool("allowed", allowed))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// SecurityHeaders adds security-related headers
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

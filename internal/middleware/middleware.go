// Package middleware provides HTTP middleware components for the fleet service
// including rate limiting, CORS, logging, security headers, bearer
// authentication and capability checks.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/constants"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/token"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

const (
	// HTTPClientError minimum status code (4xx).
	HTTPClientError = 400
	// HTTPServerError minimum status code (5xx).
	HTTPServerError = 500

	rateLimitKeyPrefix = "fleet:ratelimit:client:"
)

// Stack holds all middleware dependencies and provides
// methods to create HTTP middleware handlers.
type Stack struct {
	config  *config.Config
	limiter *redis_rate.Limiter
	logger  *logrus.Logger
}

// NewStack creates a new middleware stack with the provided dependencies.
// The redisClient parameter is optional and only used for rate limiting.
// If nil, rate limiting will be disabled (useful for MemoryStore fallback).
func NewStack(cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) *Stack {
	var limiter *redis_rate.Limiter
	if redisClient != nil {
		limiter = redis_rate.NewLimiter(redisClient)
	}

	return &Stack{
		config:  cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Chain applies multiple middleware functions to an HTTP handler.
// The first middleware is the outermost.
func (m *Stack) Chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := range middleware {
		h = middleware[len(middleware)-1-i](h)
	}
	return h
}

// RequestLogger logs HTTP requests with structured logging including
// request details, response status, and processing duration.
func (m *Stack) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		r = r.WithContext(logger.SetCorrelationID(r.Context(), requestID))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapped.Header().Set(constants.HeaderXRequestID, requestID)

		next.ServeHTTP(wrapped, r)

		if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
			return
		}

		duration := time.Since(start)
		fields := logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"status":      wrapped.statusCode,
			"bytes":       wrapped.bytes,
			"duration":    duration.String(),
			"duration_ms": duration.Milliseconds(),
			"remote_addr": getClientIP(r),
			"user_agent":  r.UserAgent(),
		}
		if referer := r.Header.Get(constants.HeaderReferer); referer != "" {
			fields["referer"] = referer
		}

		level := logrus.InfoLevel
		if wrapped.statusCode >= HTTPClientError {
			level = logrus.WarnLevel
		}
		if wrapped.statusCode >= HTTPServerError {
			level = logrus.ErrorLevel
		}

		logger.WithCorrelationID(r.Context(), m.logger).WithFields(fields).Log(level, "HTTP request processed")
	})
}

// RateLimit implements Redis-based rate limiting per client IP address
// using the GCRA limiter with the configured rate and burst.
func (m *Stack) RateLimit(next http.Handler) http.Handler {
	limit := redis_rate.Limit{
		Rate:   m.config.Security.RateLimitRPS,
		Burst:  max(m.config.Security.RateLimitBurst, m.config.Security.RateLimitRPS),
		Period: time.Second,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if m.limiter == nil || m.isTrustedProxy(clientIP) {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.limiter.Allow(r.Context(), rateLimitKeyPrefix+clientIP, limit)
		if err != nil {
			// Fail open on limiter errors.
			m.logger.WithError(err).Error("Failed to check rate limit")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-Ratelimit-Limit", strconv.Itoa(result.Limit.Burst))
		w.Header().Set("X-Ratelimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

		if result.Allowed == 0 {
			m.logger.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"path":      r.URL.Path,
				"method":    r.Method,
			}).Warn("Rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			m.writeError(w, &models.APIError{
				Code:        "rate_limited",
				Description: "Rate limit exceeded",
				StatusCode:  http.StatusTooManyRequests,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CORS handles Cross-Origin Resource Sharing headers based on configuration.
func (m *Stack) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.setCORSHeaders(w, r)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Stack) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	security := m.config.Security
	origin := r.Header.Get("Origin")

	if origin != "" && m.isOriginAllowed(origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	} else if len(security.AllowedOrigins) == 1 && security.AllowedOrigins[0] == "*" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}

	if len(security.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(security.AllowedMethods, ", "))
	}
	if len(security.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(security.AllowedHeaders, ", "))
	}
	if len(security.ExposedHeaders) > 0 {
		w.Header().Set("Access-Control-Expose-Headers", strings.Join(security.ExposedHeaders, ", "))
	}
	if security.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	if security.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(security.MaxAge))
	}
}

// SecurityHeaders adds security-related HTTP headers to responses.
func (m *Stack) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")

		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// Recovery recovers from panics and logs them while returning a proper error response.
func (m *Stack) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithCorrelationID(r.Context(), m.logger).WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  err,
				}).Error("Panic recovered")

				m.writeError(w, models.NewServerError("An unexpected error occurred"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ContentType rejects request bodies that are not JSON.
func (m *Stack) ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasBody := r.Method == http.MethodPost || r.Method == http.MethodPut
		if hasBody && r.ContentLength > 0 {
			if !strings.Contains(r.Header.Get(constants.HeaderContentType), constants.ContentTypeJSON) {
				m.writeError(w, &models.APIError{
					Code:        "unsupported_media_type",
					Description: "Content-Type must be application/json",
					StatusCode:  http.StatusUnsupportedMediaType,
				})
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticate validates the bearer access token and stores the caller's
// principal in the request context.
//
// Returns:
//   - 401 Unauthorized: missing, malformed, expired or refresh-typed token
func (m *Stack) Authenticate(tokens token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				m.writeError(w, models.NewUnauthorized("Authorization header required"))
				return
			}

			raw, found := strings.CutPrefix(header, constants.BearerPrefix)
			if !found || raw == "" {
				m.writeError(w, models.NewUnauthorized("Invalid authorization header format"))
				return
			}

			claims, err := tokens.ValidateAccessToken(raw)
			if err != nil {
				logger.WithCorrelationID(r.Context(), m.logger).WithError(err).Debug("Rejected access token")
				m.writeError(w, models.NewUnauthorized("Invalid access token"))
				return
			}

			principal := auth.PrincipalFromClaims(claims)
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequirePermission only lets requests through whose principal holds action.
// It must run after Authenticate.
//
// Returns:
//   - 401 Unauthorized: no principal on the request
//   - 403 Forbidden: principal lacks the capability
func (m *Stack) RequirePermission(action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				m.writeError(w, models.NewUnauthorized("Authentication required"))
				return
			}

			if !auth.Can(principal, action) {
				m.logger.WithFields(logrus.Fields{
					"subject_id": principal.SubjectID,
					"role":       principal.Role,
					"is_demo":    principal.IsDemo,
					"action":     action,
				}).Warn("Insufficient permissions")
				m.writeError(w, models.NewForbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes err as the JSON error envelope.
func (m *Stack) writeError(w http.ResponseWriter, apiErr *models.APIError) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(apiErr.StatusCode)

	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		m.logger.WithError(err).Error("Failed to encode error response")
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and body size.
type responseWriter struct {
	http.ResponseWriter

	statusCode  int
	bytes       int
	wroteHeader bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// getClientIP extracts the real client IP address from various headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *Stack) isTrustedProxy(ip string) bool {
	for _, trustedIP := range m.config.Security.TrustedProxies {
		if ip == trustedIP {
			return true
		}
	}
	return false
}

func (m *Stack) isOriginAllowed(origin string) bool {
	for _, allowedOrigin := range m.config.Security.AllowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}
	return false
}

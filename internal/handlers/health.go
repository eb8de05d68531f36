package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/database/postgres"
	"github.com/fleetdesk/fleet-service/internal/redis"
)

const (
	// HealthCheckTimeout is the default timeout for health check operations.
	HealthCheckTimeout = 5 * time.Second
)

// Version is the service version reported by the health endpoint. It is
// overridden at build time with -ldflags "-X ...handlers.Version=...".
var Version = "dev"

// HealthHandler provides health check and monitoring endpoints.
type HealthHandler struct {
	config    *config.Config
	store     redis.Store
	dbMgr     *postgres.Manager
	logger    *logrus.Logger
	metrics   *Metrics
	startTime time.Time
}

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy HealthStatus = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded indicates the component has degraded performance.
	StatusDegraded HealthStatus = "degraded"
)

// HealthResponse represents the overall health check response.
type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Details    map[string]any             `json:"details,omitempty"`
}

// ComponentHealth represents the health of an individual component.
type ComponentHealth struct {
	Status       HealthStatus `json:"status"`
	Message      string       `json:"message,omitempty"`
	LastChecked  time.Time    `json:"last_checked"`
	ResponseTime string       `json:"response_time,omitempty"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Ready      bool                       `json:"ready"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Metrics holds the HTTP and health Prometheus metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	HealthChecksTotal     *prometheus.CounterVec
	ComponentHealthStatus *prometheus.GaugeVec
}

// NewMetrics creates the HTTP and health metrics. They are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fleet_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"endpoint", "status"},
		),
		ComponentHealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_component_health_status",
				Help: "Health status of service components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// Collectors returns every metric for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HealthChecksTotal,
		m.ComponentHealthStatus,
	}
}

// Instrument is a mux middleware counting requests per route template.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// NewHealthHandler creates a new health check handler. dbMgr may be nil.
func NewHealthHandler(
	cfg *config.Config,
	store redis.Store,
	dbMgr *postgres.Manager,
	metrics *Metrics,
	logger *logrus.Logger,
) *HealthHandler {
	return &HealthHandler{
		config:    cfg,
		store:     store,
		dbMgr:     dbMgr,
		logger:    logger,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers health check endpoints.
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/live", h.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Readiness).Methods(http.MethodGet)
}

// Health provides a comprehensive health check including all components.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	components := make(map[string]ComponentHealth)
	overallStatus := StatusHealthy

	// The session store is required: every demo request goes through it.
	storeHealth := h.checkStorage(ctx)
	components["session_store"] = storeHealth
	if storeHealth.Status == StatusUnhealthy {
		overallStatus = StatusUnhealthy
	} else if storeHealth.Status == StatusDegraded {
		overallStatus = StatusDegraded
	}

	databaseHealth := h.checkDatabase(ctx)
	components["database"] = databaseHealth
	if databaseHealth.Status != StatusHealthy && overallStatus == StatusHealthy {
		overallStatus = StatusDegraded
	}

	configHealth := h.checkConfiguration()
	components["configuration"] = configHealth
	if configHealth.Status != StatusHealthy && overallStatus == StatusHealthy {
		overallStatus = StatusDegraded
	}

	h.metrics.HealthChecksTotal.WithLabelValues("health", string(overallStatus)).Inc()
	for component, health := range components {
		healthValue := float64(0)
		if health.Status == StatusHealthy {
			healthValue = 1
		}
		h.metrics.ComponentHealthStatus.WithLabelValues(component).Set(healthValue)
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Version:    Version,
		Uptime:     time.Since(h.startTime).String(),
		Components: components,
		Details: map[string]any{
			"check_duration": time.Since(start).String(),
		},
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)

	h.logger.WithFields(logrus.Fields{
		"status":   overallStatus,
		"duration": time.Since(start).String(),
	}).Debug("Health check completed")
}

// Liveness provides a simple liveness check that returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	h.metrics.HealthChecksTotal.WithLabelValues("liveness", "healthy").Inc()

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
	})
}

// Readiness checks if the service is ready to receive traffic. The database
// only degrades tenant requests, so it never makes the service unready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components := make(map[string]ComponentHealth)
	storeHealth := h.checkStorage(ctx)
	components["session_store"] = storeHealth
	components["database"] = h.checkDatabase(ctx)
	ready := storeHealth.Status != StatusUnhealthy

	statusLabel := "ready"
	statusCode := http.StatusOK
	if !ready {
		statusLabel = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}
	h.metrics.HealthChecksTotal.WithLabelValues("readiness", statusLabel).Inc()

	writeJSON(w, h.logger, statusCode, ReadinessResponse{
		Ready:      ready,
		Timestamp:  time.Now(),
		Components: components,
	})
}

// checkStorage checks session store connectivity and latency.
func (h *HealthHandler) checkStorage(ctx context.Context) ComponentHealth {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := h.store.Ping(checkCtx)
	duration := time.Since(start)
	storageType := h.getStorageType()

	if err != nil {
		h.logger.WithError(err).Warn("Session store health check failed")
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      storageType + " connection failed: " + err.Error(),
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	status := StatusHealthy
	message := storageType + " is healthy"
	if storageType == "Redis" && duration > time.Second {
		status = StatusDegraded
		message = "Redis response time is slow"
	}

	return ComponentHealth{
		Status:       status,
		Message:      message,
		LastChecked:  time.Now(),
		ResponseTime: duration.String(),
	}
}

// checkDatabase checks PostgreSQL connectivity. An unconfigured database is
// reported healthy because demo traffic does not need it.
func (h *HealthHandler) checkDatabase(ctx context.Context) ComponentHealth {
	if h.dbMgr == nil || !h.config.IsPostgresDatabaseConfigured() {
		return ComponentHealth{
			Status:      StatusHealthy,
			Message:     "Database not configured (optional)",
			LastChecked: time.Now(),
		}
	}

	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := h.dbMgr.Ping(checkCtx)
	duration := time.Since(start)

	if err != nil {
		h.logger.WithError(err).Debug("Database health check failed")
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      "PostgreSQL connection failed: " + err.Error(),
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	status := StatusHealthy
	message := "PostgreSQL is healthy"
	if duration > 2*time.Second {
		status = StatusDegraded
		message = "PostgreSQL response time is slow"
	}

	return ComponentHealth{
		Status:       status,
		Message:      message,
		LastChecked:  time.Now(),
		ResponseTime: duration.String(),
	}
}

func (h *HealthHandler) getStorageType() string {
	switch h.store.(type) {
	case *redis.Client:
		return "Redis"
	case *redis.MemoryStore:
		return "In-Memory"
	default:
		return "Unknown"
	}
}

// checkConfiguration flags settings that work but are unsafe for production.
func (h *HealthHandler) checkConfiguration() ComponentHealth {
	var issues []string

	if h.config.Environment.Environment == config.Prod {
		if _, inMemory := h.store.(*redis.MemoryStore); inMemory {
			issues = append(issues, "demo sessions are kept in process memory")
		}
		if !h.config.IsPostgresDatabaseConfigured() {
			issues = append(issues, "tenant database is not configured")
		}
	}

	if h.config.JWT.AccessTokenExpiry > time.Hour {
		issues = append(issues, "access token expiry exceeds one hour")
	}

	status := StatusHealthy
	message := "Configuration is valid"
	if len(issues) > 0 {
		status = StatusDegraded
		message = "Configuration issues: " + strings.Join(issues, ", ")
	}

	return ComponentHealth{
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
	}
}

package startup

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/handlers"
	"github.com/fleetdesk/fleet-service/internal/middleware"
)

// APIPrefix is the path prefix of every API route.
const APIPrefix = "/api/v1"

// NewRouter builds the service's HTTP handler. gatherer serves /metrics and
// should be the registry s.Register was called with.
func NewRouter(s *Services, gatherer prometheus.Gatherer) http.Handler {
	var rateLimitClient *goredis.Client
	if s.RedisClient != nil {
		rateLimitClient = s.RedisClient.GetRedisClient()
	}
	stack := middleware.NewStack(s.Config, rateLimitClient, s.Logger)

	router := mux.NewRouter()
	router.Use(s.HTTPMetrics.Instrument)

	handlers.NewHealthHandler(s.Config, s.Store, s.Database, s.HTTPMetrics, s.Logger).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := router.PathPrefix(APIPrefix).Subrouter()

	// Public: demo bootstrap and token refresh.
	handlers.NewDemoHandler(s.DemoService, s.Logger).RegisterRoutes(api)

	secured := api.NewRoute().Subrouter()
	secured.Use(stack.Authenticate(s.Tokens))

	// Fixed prefixes first, "/{resource}" matches any first segment.
	handlers.NewMeHandler(s.Logger).RegisterRoutes(secured)

	reportsRouter := secured.NewRoute().Subrouter()
	reportsRouter.Use(stack.RequirePermission(auth.ActionReportsView))
	handlers.NewReportsHandler(s.Resources, s.Tenants, s.Logger).RegisterRoutes(reportsRouter)

	adminRouter := secured.NewRoute().Subrouter()
	adminRouter.Use(stack.RequirePermission(auth.ActionDemoAdmin))
	handlers.NewAdminHandler(s.AdminService, s.Logger).RegisterRoutes(adminRouter)

	handlers.NewResourceHandler(s.Resources, s.Tenants, s.Logger).RegisterRoutes(secured)

	return stack.Chain(
		router,
		stack.Recovery,
		stack.RequestLogger,
		stack.SecurityHeaders,
		stack.CORS,
		stack.RateLimit,
		stack.ContentType,
	)
}

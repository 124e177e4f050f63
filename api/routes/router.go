package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/motorshop-backend/api/controllers"
	partcontrollers "github.com/angelmondragon/motorshop-backend/api/controllers/parts"
	workordercontrollers "github.com/angelmondragon/motorshop-backend/api/controllers/workorders"
	"github.com/angelmondragon/motorshop-backend/api/middleware"
	"github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/internal/workorders"
	"github.com/angelmondragon/motorshop-backend/pkg/config"
	"github.com/angelmondragon/motorshop-backend/pkg/conflict"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/metrics"
	"github.com/angelmondragon/motorshop-backend/pkg/redis"
)

// RedisDeps is the slice of the Redis client the HTTP layer needs.
type RedisDeps interface {
	redis.IdempotencyStore
	controllers.Pinger
}

var (
	frontDesk = []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleReceptionist}
	workshop  = []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleMechanic}
	managers  = []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleManager}
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisDeps,
	metricsHandler http.Handler,
	httpMetrics *metrics.HTTPMetrics,
	workOrderService workorders.Service,
	partsService parts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	retryPolicy := conflict.PolicyFromConfig(cfg.Retry)
	readyDeps := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		readyDeps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil && cfg.FeatureFlags.Idempotency {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/whoami", controllers.WhoAmI)

		r.Route("/v1/work-orders", func(r chi.Router) {
			r.Get("/", workordercontrollers.List(workOrderService, logg))
			r.With(middleware.RequireRole(logg, frontDesk...)).Post("/", workordercontrollers.Create(workOrderService, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", workordercontrollers.Detail(workOrderService, logg))
				r.Get("/history", workordercontrollers.History(workOrderService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, workshop...))
					r.Post("/status", workordercontrollers.Transition(workOrderService, retryPolicy, logg))
					r.Patch("/diagnosis", workordercontrollers.Diagnose(workOrderService, retryPolicy, logg))
					r.Post("/parts", workordercontrollers.AddPart(workOrderService, retryPolicy, logg))
					r.Patch("/parts/{usageId}", workordercontrollers.UpdatePart(workOrderService, retryPolicy, logg))
					r.Delete("/parts/{usageId}", workordercontrollers.RemovePart(workOrderService, retryPolicy, logg))
					r.Post("/services", workordercontrollers.AddService(workOrderService, retryPolicy, logg))
					r.Patch("/services/{lineId}", workordercontrollers.UpdateService(workOrderService, retryPolicy, logg))
					r.Delete("/services/{lineId}", workordercontrollers.RemoveService(workOrderService, retryPolicy, logg))
				})

				r.With(middleware.RequireRole(logg, frontDesk...)).Post("/payments", workordercontrollers.RegisterPayment(workOrderService, retryPolicy, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, managers...))
					r.Post("/recompute", workordercontrollers.Recompute(workOrderService, retryPolicy, logg))
					r.Patch("/assignment", workordercontrollers.Assign(workOrderService, retryPolicy, logg))
				})
			})
		})

		r.Route("/v1/parts/{partId}", func(r chi.Router) {
			r.Get("/stock", partcontrollers.Stock(partsService, logg))
			r.Get("/movements", partcontrollers.Movements(partsService, logg))
			r.With(middleware.RequireRole(logg, managers...)).Get("/ledger", partcontrollers.Ledger(partsService, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).Post("/movements", partcontrollers.Adjust(partsService, retryPolicy, logg))
		})
	})

	return r
}

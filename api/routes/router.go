package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dfcarvalho/patrimonio-backend/api/controllers"
	"github.com/dfcarvalho/patrimonio-backend/api/middleware"
	"github.com/dfcarvalho/patrimonio-backend/internal/assets"
	"github.com/dfcarvalho/patrimonio-backend/internal/importer"
	"github.com/dfcarvalho/patrimonio-backend/internal/inventory"
	"github.com/dfcarvalho/patrimonio-backend/internal/movements"
	"github.com/dfcarvalho/patrimonio-backend/pkg/config"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
	pkgredis "github.com/dfcarvalho/patrimonio-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs. Redis may be nil
// in tests; the idempotency middleware then passes requests through.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     *pkgredis.Client
	Assets    assets.Repository
	Imports   importer.Service
	Movements movements.Service
	Inventory inventory.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    redisPinger(p.Redis),
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		var store pkgredis.IdempotencyStore
		if p.Redis != nil {
			store = p.Redis
		}
		r.Use(middleware.Idempotency(store, cfg.Eventing.IdempotencyTTL, logg))

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", controllers.ImportStart(p.Imports, cfg.Import, logg))
			r.Get("/{id}", controllers.ImportProgress(p.Imports, logg))
			r.Post("/{id}/cancel", controllers.ImportCancel(p.Imports, logg))
		})

		r.Post("/movements", controllers.MovementCreate(p.Movements, logg))

		r.Route("/assets", func(r chi.Router) {
			r.Get("/{ref}", controllers.AssetGet(p.Assets, logg))
			r.Get("/{ref}/movements", controllers.AssetMovements(p.Assets, logg))
		})

		r.Route("/inventory-events", func(r chi.Router) {
			r.Post("/", controllers.InventoryEventOpen(p.Inventory, logg))
			r.Get("/{id}", controllers.InventoryEventGet(p.Inventory, logg))
			r.Post("/{id}/close", controllers.InventoryEventClose(p.Inventory, logg))
			r.Post("/{id}/cancel", controllers.InventoryEventCancel(p.Inventory, logg))
			r.Post("/{id}/counts", controllers.InventoryCountsSync(p.Inventory, logg))
			r.Get("/{id}/counts", controllers.InventoryCountsList(p.Inventory, logg))
		})

		r.Post("/counts/{id}/regularization", controllers.CountRegularize(p.Inventory, logg))
	})

	return r
}

// redisPinger keeps a typed nil out of the readiness map.
func redisPinger(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

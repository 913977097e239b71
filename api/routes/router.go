package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopvia/shopvia-backend/api/controllers"
	webhookcontrollers "github.com/shopvia/shopvia-backend/api/controllers/webhooks"
	"github.com/shopvia/shopvia-backend/api/middleware"
	"github.com/shopvia/shopvia-backend/internal/orders"
	"github.com/shopvia/shopvia-backend/pkg/config"
	"github.com/shopvia/shopvia-backend/pkg/db"
	"github.com/shopvia/shopvia-backend/pkg/logger"
	"github.com/shopvia/shopvia-backend/pkg/redis"
	"github.com/shopvia/shopvia-backend/pkg/square"
)

type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     redis.Pinger
	Checkout  controllers.CheckoutService
	Orders    orders.Repository
	Finalizer webhookcontrollers.FinalizerService
	Square    *square.Client
	Metrics   prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
	)

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(d.DB, d.Redis))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payment", webhookcontrollers.PaymentWebhook(d.Finalizer, d.Square, d.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Config.JWT, d.Logger))
			r.Post("/checkout/cod", controllers.SubmitCODCheckout(d.Checkout, d.Logger))
			r.Post("/checkout/online", controllers.SubmitOnlineCheckout(d.Checkout, d.Logger))
			r.Get("/orders", controllers.ListOrders(d.Orders, d.Logger))
		})
	})

	return r
}

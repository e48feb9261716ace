package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/api/handler"
	apimw "github.com/notifyhub/lms-notify/internal/api/middleware"
	"github.com/notifyhub/lms-notify/internal/service"
)

// Deps groups what the HTTP surface needs from main.
type Deps struct {
	Service *service.NotificationService
	Queue   handler.DepthSource
	// Gatherer backs /metrics. Nil disables the scrape endpoint.
	Gatherer prometheus.Gatherer
	// DB is pinged by /health when set.
	DB      handler.Pinger
	Workers int
	Logger  *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	validate := handler.NewValidator()
	nh := handler.NewNotificationHandler(d.Service, validate, logger)
	bh := handler.NewBatchHandler(d.Service, validate, logger)
	ih := handler.NewInboxHandler(d.Service)
	mh := handler.NewMetricsHandler(d.Queue, d.Workers)
	hh := handler.NewHealthHandler(d.DB)

	r.Get("/health", hh.Health)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// /batch before /{id} so "batch" is never read as an ID.
		r.Post("/notifications/batch", bh.CreateBatch)
		r.Post("/notifications", nh.Create)
		r.Get("/notifications/{id}", nh.GetByID)

		r.Route("/users/{userID}/notifications", func(r chi.Router) {
			r.Get("/", ih.List)
			r.Post("/read-all", ih.MarkAllRead)
			r.Post("/{id}/read", ih.MarkRead)
		})

		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}

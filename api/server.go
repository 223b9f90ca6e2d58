/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the form layer

ROUTE GROUPS:
  /api/clients/*     Clients, contracts, contacts, payments, summaries
  /api/contracts/*   Contract edits
  /api/payments/*    Payment validation and edits
  /api/periods/*     Period enumeration
  /api/drafts/*      Draft sessions
  /healthz           Liveness
  /metrics           Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Delete("/{id}", h.DeleteClient)
			r.Get("/{id}/contracts", h.ListContracts)
			r.Post("/{id}/contracts", h.CreateContract)
			r.Get("/{id}/contacts", h.ListContacts)
			r.Post("/{id}/contacts", h.CreateContact)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.CreatePayment)
			r.Post("/{id}/payments/bulk", h.BulkPayments)
			r.Get("/{id}/payments/defaults", h.PaymentDefaults)
			r.Get("/{id}/summary", h.Summary)
		})

		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Put("/{id}", h.UpdateContract)
			r.Delete("/{id}", h.DeleteContract)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/validate", h.ValidateDraft)
			r.Get("/{id}", h.GetPayment)
			r.Put("/{id}", h.UpdatePayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Period and fee routes
		r.Get("/periods", h.StartPeriods)
		r.Get("/periods/end", h.EndPeriods)
		r.Post("/expected-fee", h.ExpectedFee)
		r.Get("/rates", h.Rates)

		// Draft session routes
		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", h.OpenDraft)
			r.Get("/{id}", h.GetDraft)
			r.Put("/{id}", h.PutDraft)
			r.Delete("/{id}", h.DiscardDraft)
			r.Post("/{id}/events", h.DraftEvent)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

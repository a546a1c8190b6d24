package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/thesecretlab-dev/zeroid/internal/httpapi/middleware"
	"github.com/thesecretlab-dev/zeroid/internal/issuer"
	"github.com/thesecretlab-dev/zeroid/internal/verification"
	"github.com/thesecretlab-dev/zeroid/internal/verifier"
)

// requestTimeout is the default per-request deadline from spec.md §5
// ("HTTP requests carry a deadline (default 30s)").
const requestTimeout = 30 * time.Second

// Version is the service version reported by `GET /health`.
const Version = "1"

// Config holds everything the router needs to wire handlers to the
// service layer.
type Config struct {
	Issuer       *issuer.Service
	Verifier     *verifier.Service
	Verification *verification.Store
	APIKeys      []string
	CORSOrigin   string
	RateLimit    int // requests per minute per API key; 0 disables rate limiting
	RateBurst    int
}

// NewRouter builds the full chi router: CORS, request logging, a
// 30-second deadline, then bearer auth + rate limiting in front of
// every `/api/v1` route, per spec.md §6.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-ZeroID-Version"},
		MaxAge:           300,
	}))

	h := &handlers{
		issuer:       cfg.Issuer,
		verifier:     cfg.Verifier,
		verification: cfg.Verification,
	}

	r.Get("/health", h.health)

	burst := cfg.RateBurst
	if burst == 0 {
		burst = cfg.RateLimit
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Auth(cfg.APIKeys))
		if cfg.RateLimit > 0 {
			api.Use(middleware.RateLimit(cfg.RateLimit, burst))
		}

		api.Post("/verify", h.startVerification)
		api.Get("/verify/{id}", h.getVerification)
		api.Post("/credential", h.issueCredential)
		api.Post("/proof/verify", h.verifyProof)
		api.Post("/proof/aggregate", h.aggregateProofs)
	})

	return r
}

package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/server/httpserver/handler"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Auth     *service.AuthService
	Guard    *service.Guard
	Ingestor *service.Ingestor

	// Ready backs GET /ready. Optional.
	Ready handler.ReadinessCheck

	// Metrics records request metrics and serves GET /metrics. Optional.
	Metrics *metric.Registry

	Logger *slog.Logger

	// RateLimit applies to every route except health and metrics. Nil
	// disables it.
	RateLimit *ClientLimiter

	// AuthRateLimit additionally applies to the credential exchange routes.
	AuthRateLimit *ClientLimiter
}

// credentialRoutes exchange long-lived credentials for tokens.
var credentialRoutes = map[string]bool{
	"POST /users":       true,
	"POST /users/login": true,
	"POST /sensors":     true,
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
//
// Chain order: RequestID -> Recover -> Audit -> RateLimit -> [AuthRateLimit]
// -> [BearerAuth] -> Handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(handler.Services{
		Auth:     cfg.Auth,
		Guard:    cfg.Guard,
		Ingestor: cfg.Ingestor,
		Ready:    cfg.Ready,
	}, log)

	base := []Middleware{
		RequestID(),
		Recover(log),
		Audit(log, cfg.Metrics),
	}

	mux := http.NewServeMux()

	for _, pattern := range handler.Routes {
		chain := append([]Middleware{}, base...)

		switch {
		case pattern == "GET /health" || pattern == "GET /ready":
			// Probes are never limited.
		case credentialRoutes[pattern]:
			chain = append(chain, RateLimit(cfg.RateLimit), RateLimit(cfg.AuthRateLimit))
		case pattern == "PATCH /sensors":
			chain = append(chain, RateLimit(cfg.RateLimit), BearerAuth(cfg.Guard, domain.SubjectSensor))
		case strings.Contains(pattern, " /users/"):
			chain = append(chain, RateLimit(cfg.RateLimit), BearerAuth(cfg.Guard, domain.SubjectAccount))
		default:
			chain = append(chain, RateLimit(cfg.RateLimit))
		}

		mux.Handle(pattern, Chain(h, chain...))
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), RequestID(), Recover(log)))
	}

	// Unmatched paths still get a request id and an envelope.
	mux.Handle("/", Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, domain.NewDomainError("BB-SYS-4040", "route not found"))
	}), RequestID(), Audit(log, cfg.Metrics)))

	return mux
}

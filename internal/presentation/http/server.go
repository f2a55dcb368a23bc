// Package httppresentation exposes the application services over a JSON HTTP API.
package httppresentation

import (
	"net/http"
	"time"

	"github.com/Zhima-Mochi/readify/internal/bootstrap"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

const componentHTTPHandler = "http_server"

type Config struct {
	// FrontendURL receives the browser after a gateway return.
	FrontendURL string
	RateRPS     float64
	RateBurst   int
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	// SecureCookies marks the token cookies Secure.
	SecureCookies bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Handler struct {
	svc     *bootstrap.Services
	cfg     Config
	log     observability.Logger
	tel     observability.Observability
	limiter *RateLimiter
}

func NewHandler(svc *bootstrap.Services, cfg Config, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	return &Handler{
		svc:     svc,
		cfg:     cfg,
		log:     tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:     tel,
		limiter: NewRateLimiter(cfg.RateRPS, cfg.RateBurst),
	}
}

type middleware = func(http.Handler) http.Handler

func (h *Handler) auth() middleware      { return requireAuth(h.svc.Accounts) }
func (h *Handler) maybeAuth() middleware { return optionalAuth(h.svc.Accounts) }
func (h *Handler) limited() middleware   { return h.limiter.Middleware }

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /health", h.handleHealth)
	if h.cfg.Metrics != nil {
		mux.Handle("GET /metrics", h.cfg.Metrics)
	}

	h.routeAccounts(mux)
	h.routeCatalog(mux)
	h.routeCart(mux)
	h.routeOrders(mux)
	h.routePromotions(mux)
	h.routeNotifications(mux)
	h.routeReviews(mux)

	return mux
}

// handle registers pattern with the shared chain:
// Trace → request logger → HTTP metrics → access log → route middlewares → handler.
func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc, mws ...middleware) {
	var next http.Handler = fn
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	next = withAccessLog(h.log)(next)
	next = withHTTPMetrics(h.tel.Metrics())(next)
	next = ObservabilityMiddleware(h.log)(next)
	next = withTrace(next)

	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), pattern)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

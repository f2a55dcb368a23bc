package httppresentation

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Zhima-Mochi/readify/internal/application"
	appaccount "github.com/Zhima-Mochi/readify/internal/application/account"
	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"
)

var errRateLimited = domain.NewError(domain.ErrTooManyRequests, "RATE_LIMITED", "too many requests, slow down")

// Authenticator resolves an access token to the caller. The account service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (application.Actor, appaccount.Claims, error)
}

type authKey struct{}

type authInfo struct {
	actor  application.Actor
	claims appaccount.Claims
}

func actorFrom(ctx context.Context) (application.Actor, bool) {
	a, ok := ctx.Value(authKey{}).(authInfo)
	return a.actor, ok
}

func claimsFrom(ctx context.Context) (appaccount.Claims, bool) {
	a, ok := ctx.Value(authKey{}).(authInfo)
	return a.claims, ok
}

// bearerToken reads the Authorization header, falling back to the access token cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieAccessToken); err == nil {
		return c.Value
	}
	return ""
}

func authenticate(auth Authenticator, r *http.Request) (*http.Request, error) {
	token := bearerToken(r)
	if token == "" {
		return r, application.ErrUnauthorized
	}
	actor, claims, err := auth.Authenticate(r.Context(), token)
	if err != nil {
		return r, err
	}
	ctx := context.WithValue(r.Context(), authKey{}, authInfo{actor: actor, claims: claims})
	ctx = logctx.Enrich(ctx, observability.F("user_id", actor.UserID))
	return r.WithContext(ctx), nil
}

// requireAuth rejects requests without a valid, unrevoked access token.
func requireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, err := authenticate(auth, r)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// optionalAuth resolves the caller when a token is present and serves anonymous requests otherwise.
// A token that is present but invalid is still rejected.
func optionalAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			r, err := authenticate(auth, r)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*client
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		l.sweep(now)
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// sweep drops buckets that have been idle for a while. Callers hold mu.
func (l *RateLimiter) sweep(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idle {
			delete(l.clients, k)
		}
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

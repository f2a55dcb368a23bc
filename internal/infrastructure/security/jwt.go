package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	appaccount "github.com/Zhima-Mochi/readify/internal/application/account"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("security: invalid token")

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type claims struct {
	Role account.Role `json:"role"`
	Type string       `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 access and refresh tokens with separate secrets.
type TokenIssuer struct {
	cfg   TokenConfig
	clock application.Clock
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("security: token secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{cfg: cfg, clock: application.SystemClock}, nil
}

func (t *TokenIssuer) WithClock(c application.Clock) *TokenIssuer {
	t.clock = c
	return t
}

func (t *TokenIssuer) IssueAccess(a *account.Account) (appaccount.Token, error) {
	return t.issue(a, typeAccess, t.cfg.AccessSecret, t.cfg.AccessTTL)
}

func (t *TokenIssuer) IssueRefresh(a *account.Account) (appaccount.Token, error) {
	return t.issue(a, typeRefresh, t.cfg.RefreshSecret, t.cfg.RefreshTTL)
}

func (t *TokenIssuer) ParseAccess(token string) (appaccount.Claims, error) {
	return t.parse(token, typeAccess, t.cfg.AccessSecret)
}

func (t *TokenIssuer) ParseRefresh(token string) (appaccount.Claims, error) {
	return t.parse(token, typeRefresh, t.cfg.RefreshSecret)
}

func (t *TokenIssuer) issue(a *account.Account, typ, secret string, ttl time.Duration) (appaccount.Token, error) {
	now := t.clock()
	exp := now.Add(ttl)
	id := uuid.NewString()
	c := claims{
		Role: a.Role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			ID:        id,
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return appaccount.Token{}, fmt.Errorf("security: sign %s token: %w", typ, err)
	}
	return appaccount.Token{Value: signed, ID: id, ExpiresAt: exp.Truncate(time.Second)}, nil
}

func (t *TokenIssuer) parse(token, typ, secret string) (appaccount.Claims, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(t.clock), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return appaccount.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Type != typ || c.Subject == "" || c.ID == "" {
		return appaccount.Claims{}, ErrInvalidToken
	}
	return appaccount.Claims{
		UserID:    c.Subject,
		Role:      c.Role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

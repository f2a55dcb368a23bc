package account

import (
	"context"
	"time"

	domain "github.com/Zhima-Mochi/readify/internal/domain/account"
	domotp "github.com/Zhima-Mochi/readify/internal/domain/otp"
)

// Token is a signed JWT with its id and expiry.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Claims are the verified contents of a token.
type Claims struct {
	UserID    string
	Role      domain.Role
	TokenID   string
	ExpiresAt time.Time
}

type TokenIssuer interface {
	IssueAccess(a *domain.Account) (Token, error)
	IssueRefresh(a *domain.Account) (Token, error)
	ParseAccess(token string) (Claims, error)
	ParseRefresh(token string) (Claims, error)
}

// TokenRevoker blacklists token ids until they would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

type OTPSender interface {
	Send(ctx context.Context, email string, purpose domotp.Purpose) error
	Resend(ctx context.Context, email string, purpose domotp.Purpose) error
	Verify(ctx context.Context, email string, purpose domotp.Purpose, code string) error
}

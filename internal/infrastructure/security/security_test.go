package security

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret-pass")
	require.NoError(t, err)
	assert.True(t, IsHash(hash))
	assert.True(t, h.Compare(hash, "secret-pass"))
	assert.False(t, h.Compare(hash, "other"))
	assert.False(t, IsHash("plaintext"))
}

func newIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	return iss.WithClock(func() time.Time { return *now })
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	iss := newIssuer(t, &now)
	acc := &account.Account{ID: "u-1", Role: account.RoleSeller}

	access, err := iss.IssueAccess(acc)
	require.NoError(t, err)
	c, err := iss.ParseAccess(access.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.Equal(t, account.RoleSeller, c.Role)
	assert.Equal(t, access.ID, c.TokenID)

	// refresh tokens are signed with their own secret and type
	_, err = iss.ParseRefresh(access.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh, err := iss.IssueRefresh(acc)
	require.NoError(t, err)
	_, err = iss.ParseAccess(refresh.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = iss.ParseRefresh(refresh.Value)
	assert.NoError(t, err)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now().UTC()
	iss := newIssuer(t, &now)
	access, err := iss.IssueAccess(&account.Account{ID: "u-1"})
	require.NoError(t, err)

	now = now.Add(16 * time.Minute)
	_, err = iss.ParseAccess(access.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRequiresSecrets(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessSecret: "x"})
	assert.Error(t, err)
}

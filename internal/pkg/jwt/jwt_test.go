package jwt

import (
	"strings"
	"testing"
	"time"

	"genieq-api/internal/core/domain"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("s", MinSecretLength)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAuthority(t *testing.T) (*Authority, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	a, err := NewAuthority(testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return a.WithClock(clock.Now), clock
}

func TestNewAuthorityRejectsShortSecret(t *testing.T) {
	_, err := NewAuthority(strings.Repeat("s", MinSecretLength-1), time.Minute, time.Hour)
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewAuthority(testSecret, 0, time.Hour)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	a, _ := newTestAuthority(t)

	token, err := a.IssueAccessToken(42, "ROLE_USER")
	require.NoError(t, err)
	require.True(t, a.Validate(token))

	claims, err := a.ParseClaims(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.MemberID)
	require.Equal(t, "ROLE_USER", claims.Role)
	require.Equal(t, TypeAccess, claims.Type)
	require.Equal(t, "42", claims.Subject)

	parsed, err := a.ParseAccess(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), parsed.MemberID)
}

func TestAccessTokenNormalizesRole(t *testing.T) {
	a, _ := newTestAuthority(t)

	token, err := a.IssueAccessToken(1, "admin")
	require.NoError(t, err)
	claims, err := a.ParseAccess(token)
	require.NoError(t, err)
	require.Equal(t, "ROLE_ADMIN", claims.Role)
}

func TestRefreshTokenHasNoRole(t *testing.T) {
	a, _ := newTestAuthority(t)

	token, err := a.IssueRefreshToken(7)
	require.NoError(t, err)

	claims, err := a.ParseRefresh(token)
	require.NoError(t, err)
	require.Equal(t, TypeRefresh, claims.Type)
	require.Empty(t, claims.Role)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, a.RefreshTTL(), claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenTypeMismatch(t *testing.T) {
	a, _ := newTestAuthority(t)

	refresh, err := a.IssueRefreshToken(7)
	require.NoError(t, err)
	_, err = a.ParseAccess(refresh)
	require.ErrorIs(t, err, ErrTokenTypeMismatch)

	access, err := a.IssueAccessToken(7, "")
	require.NoError(t, err)
	_, err = a.ParseRefresh(access)
	require.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestExpiry(t *testing.T) {
	a, clock := newTestAuthority(t)

	token, err := a.IssueAccessToken(42, "ROLE_USER")
	require.NoError(t, err)
	require.False(t, a.IsExpired(token))

	clock.Advance(14 * time.Minute)
	require.True(t, a.Validate(token))

	clock.Advance(time.Minute)
	require.False(t, a.Validate(token))
	require.True(t, a.IsExpired(token))

	_, err = a.ParseAccess(token)
	require.ErrorIs(t, err, ErrTokenExpired)

	// claims stay readable after expiry
	claims, err := a.ParseClaims(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.MemberID)
}

func TestMalformedTokens(t *testing.T) {
	a, _ := newTestAuthority(t)

	for _, token := range []string{"", "abc", "a.b.c", "Bearer x.y.z"} {
		require.False(t, a.Validate(token), token)
		require.True(t, a.IsExpired(token), token)
		_, err := a.ParseClaims(token)
		require.ErrorIs(t, err, ErrTokenParse, token)
	}
}

func TestForeignSignatureRejected(t *testing.T) {
	a, _ := newTestAuthority(t)
	other, err := NewAuthority(strings.Repeat("x", MinSecretLength), time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := other.IssueAccessToken(1, "")
	require.NoError(t, err)

	require.False(t, a.Validate(token))
	_, err = a.ParseClaims(token)
	require.ErrorIs(t, err, ErrTokenParse)
}

func TestOtherAlgorithmsRejected(t *testing.T) {
	a, clock := newTestAuthority(t)

	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: gojwt.NewNumericDate(clock.Now().Add(time.Minute)),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	require.False(t, a.Validate(token))
}

func TestNonNumericSubject(t *testing.T) {
	a, clock := newTestAuthority(t)

	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "member-1",
			ExpiresAt: gojwt.NewNumericDate(clock.Now().Add(time.Minute)),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = a.ParseClaims(token)
	require.ErrorIs(t, err, ErrTokenParse)
	require.False(t, a.Validate(token))
}

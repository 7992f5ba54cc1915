package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest signing secret accepted for HS512.
const MinSecretLength = 64

// Token types carried in the "type" claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const issuer = "genieq-api"

var (
	ErrTokenParse        = domain.ErrTokenParse
	ErrTokenExpired      = domain.ErrTokenExpired
	ErrTokenInvalid      = domain.ErrTokenInvalid
	ErrTokenTypeMismatch = domain.ErrTokenTypeMismatch
)

// Claims represents the JWT claims
type Claims struct {
	Role string `json:"role,omitempty"`
	Type string `json:"type"`
	jwt.RegisteredClaims

	// MemberID is decoded from the subject after parsing.
	MemberID uint `json:"-"`
}

// Authority issues and checks HS512 signed access and refresh tokens.
type Authority struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewAuthority validates the secret and returns a ready authority.
func NewAuthority(secret string, accessTTL, refreshTTL time.Duration) (*Authority, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: jwt secret must be at least %d characters", domain.ErrConfiguration, MinSecretLength)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", domain.ErrConfiguration)
	}
	return &Authority{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source, for tests.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	a.now = now
	return a
}

// AccessTTL returns the access token lifetime
func (a *Authority) AccessTTL() time.Duration { return a.accessTTL }

// RefreshTTL returns the refresh token lifetime
func (a *Authority) RefreshTTL() time.Duration { return a.refreshTTL }

// IssueAccessToken generates a short-lived token carrying the member's role
func (a *Authority) IssueAccessToken(memberID uint, role string) (string, error) {
	return a.sign(Claims{
		Role:             domain.NormalizeRole(role),
		Type:             TypeAccess,
		RegisteredClaims: a.registered(memberID, a.accessTTL, ""),
	})
}

// IssueRefreshToken generates a long-lived token without a role
func (a *Authority) IssueRefreshToken(memberID uint) (string, error) {
	return a.sign(Claims{
		Type:             TypeRefresh,
		RegisteredClaims: a.registered(memberID, a.refreshTTL, uuid.NewString()),
	})
}

func (a *Authority) registered(memberID uint, ttl time.Duration, id string) jwt.RegisteredClaims {
	now := a.now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(memberID), 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        id,
	}
}

func (a *Authority) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate reports whether the token has a good signature and is not expired
func (a *Authority) Validate(tokenString string) bool {
	_, err := a.parse(tokenString)
	return err == nil
}

// ParseClaims decodes a correctly signed token without checking expiry
func (a *Authority) ParseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, a.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenParse, err)
	}
	if err := claims.resolveMember(); err != nil {
		return nil, err
	}
	return claims, nil
}

// IsExpired reports whether the token is past its expiry. Unparseable
// tokens count as expired.
func (a *Authority) IsExpired(tokenString string) bool {
	claims, err := a.ParseClaims(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !a.now().Before(claims.ExpiresAt.Time)
}

// ParseAccess fully validates an access token
func (a *Authority) ParseAccess(tokenString string) (*Claims, error) {
	return a.parseTyped(tokenString, TypeAccess)
}

// ParseRefresh fully validates a refresh token
func (a *Authority) ParseRefresh(tokenString string) (*Claims, error) {
	return a.parseTyped(tokenString, TypeRefresh)
}

func (a *Authority) parseTyped(tokenString, tokenType string) (*Claims, error) {
	claims, err := a.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenType {
		return nil, ErrTokenTypeMismatch
	}
	return claims, nil
}

func (a *Authority) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, a.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if err := claims.resolveMember(); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (a *Authority) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrTokenInvalid
	}
	return a.secret, nil
}

func (c *Claims) resolveMember() error {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("%w: subject %q is not a member id", ErrTokenParse, c.Subject)
	}
	c.MemberID = uint(id)
	return nil
}

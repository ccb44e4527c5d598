package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/slatehub-api/internal/models"
)

// MockTokenPrefix marks the placeholder tokens handed out when no signing
// secret is configured.
const MockTokenPrefix = "mock_token_for_"

// TokenCookie is the cookie the login endpoint sets.
const TokenCookie = "token"

// TokenTTL is how long issued tokens are valid.
const TokenTTL = 24 * time.Hour

// Claims defines the JWT claims structure. Subject holds the person id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer hands out tokens and reads them back. With an empty secret it
// produces mock tokens; otherwise HS256 JWTs.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an Issuer for the given secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Signed reports whether the issuer produces real JWTs.
func (i *Issuer) Signed() bool {
	return len(i.secret) > 0
}

// Issue creates a token for a user.
func (i *Issuer) Issue(user models.MockUser) (string, error) {
	if !i.Signed() {
		return MockTokenPrefix + user.Username, nil
	}

	now := i.now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses and validates a signed token.
func (i *Issuer) Validate(tokenStr string) (*Claims, error) {
	if !i.Signed() {
		return nil, fmt.Errorf("token signing is not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Username extracts the username a token was issued for. Mock tokens are
// always understood; JWTs only when they validate.
func (i *Issuer) Username(tokenStr string) (string, bool) {
	if name, ok := strings.CutPrefix(tokenStr, MockTokenPrefix); ok {
		return name, name != ""
	}
	claims, err := i.Validate(tokenStr)
	if err != nil || claims.Username == "" {
		return "", false
	}
	return claims.Username, true
}

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back to the token cookie. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if tokenStr, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(tokenStr)
		}
	}

	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

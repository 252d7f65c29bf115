// Package auth provides the authenticated principal model, role policies, and
// JWT token management.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants for the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Token expiration durations.
const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// DefaultLeeway is the default leeway for token validation.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// ErrEmptyUsername is returned when the username is empty.
var ErrEmptyUsername = errors.New("username cannot be empty")

// ErrWrongTokenType is returned when a refresh token is presented where an
// access token is required, or vice versa.
var ErrWrongTokenType = errors.New("wrong token type")

// Claims represents custom JWT claims for the application. The claim shape is
// a public contract: username (sub), name, email, superuser flag, and role
// names are all that downstream permission checks rely on.
type Claims struct {
	jwt.RegisteredClaims
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Superuser bool     `json:"superuser,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Type      string   `json:"typ"` // "access" or "refresh"
}

// Principal builds the request principal carried by these claims.
func (c *Claims) Principal() *Principal {
	return &Principal{
		Username:  c.Subject,
		Name:      c.Name,
		Email:     c.Email,
		Superuser: c.Superuser,
		Roles:     c.Roles,
	}
}

// TokenService signs and validates JWT tokens with an HS256 secret.
type TokenService struct {
	secret []byte
	leeway time.Duration
}

// NewTokenService creates a TokenService with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		leeway: DefaultLeeway,
	}
}

// NewTokenServiceWithLeeway creates a TokenService with custom validation leeway.
func NewTokenServiceWithLeeway(secret string, leeway time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		leeway: leeway,
	}
}

// GenerateAccessToken creates an access token (15m expiry) carrying the full
// claim set for the principal.
func (s *TokenService) GenerateAccessToken(p *Principal) (string, error) {
	if p == nil || p.Username == "" {
		return "", ErrEmptyUsername
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiry)),
		},
		Name:      p.Name,
		Email:     p.Email,
		Superuser: p.Superuser,
		Roles:     p.Roles,
		Type:      TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// GenerateRefreshToken creates a refresh token (7d expiry). Refresh tokens
// carry only the subject; the claim set is rebuilt from storage on refresh so
// that role changes take effect.
func (s *TokenService) GenerateRefreshToken(username string) (string, error) {
	if username == "" {
		return "", ErrEmptyUsername
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenExpiry)),
		},
		Type: TokenTypeRefresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithLeeway(s.leeway))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken validates a token and additionally requires the access
// token type. Refresh tokens are rejected with ErrWrongTokenType.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ValidateRefreshToken validates a token and additionally requires the
// refresh token type.
func (s *TokenService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

const defaultTokenTTL = 5 * time.Minute

// ErrInvalidToken is returned for tokens that fail signature, audience or expiry checks.
var ErrInvalidToken = errors.New("invalid service token")

// serviceClaims are the claims carried by service tokens
type serviceClaims struct {
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// Claims is the verified identity extracted from a service token
type Claims struct {
	Subject   string
	DeviceID  string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService mints and verifies short-lived HS256 service tokens.
// The sync process signs calls to the online backend with it, and the local
// API verifies bearer tokens with the same secret.
type TokenService struct {
	secret   []byte
	issuer   string
	deviceID string
	ttl      time.Duration
	now      func() time.Time
}

// Config holds configuration for TokenService
type Config struct {
	Secret   string
	Issuer   string        // Defaults to "inventory-sync"
	DeviceID string        // Stamped into every token
	TTL      time.Duration // Lifetime of minted tokens (default: 5m)
	Clock    func() time.Time
}

// NewTokenService creates a token service. The secret is required.
func NewTokenService(cfg Config) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: token secret is required", domain.ErrInvalidInput)
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "inventory-sync"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   issuer,
		deviceID: cfg.DeviceID,
		ttl:      ttl,
		now:      now,
	}, nil
}

// Sign mints a token for subject, valid for audience only
func (s *TokenService) Sign(subject, audience string) (string, error) {
	issuedAt := s.now()
	claims := serviceClaims{
		DeviceID: s.deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
			ID:        domain.GenerateID(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token minted for audience and returns its claims
func (s *TokenService) Parse(tokenString, audience string) (*Claims, error) {
	var claims serviceClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject:   claims.Subject,
		DeviceID:  claims.DeviceID,
		Audience:  claims.Audience,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

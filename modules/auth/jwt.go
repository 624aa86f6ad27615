package auth

import (
	"errors"
	"time"

	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when the signature or structure is invalid.
	ErrMalformedToken = apperr.New(apperr.KindAuthentication, "invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = apperr.New(apperr.KindAuthentication, "token has expired")
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 24 * time.Hour

// JWTConfig holds JWT configuration. SecretKey has no default and must come
// from process configuration.
type JWTConfig struct {
	SecretKey string
	Issuer    string
	TTL       time.Duration
}

// JWTClaims represents the custom claims for JWT tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity returns the caller identity carried by the claims.
func (c *JWTClaims) Identity() domain.Identity {
	return domain.Identity{UserID: c.UserID, Username: c.Username}
}

// JWTManager issues and validates HS256 bearer tokens.
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.TTL <= 0 {
		config.TTL = DefaultTokenTTL
	}
	return &JWTManager{
		config: config,
		now:    time.Now,
	}
}

// TTL returns the lifetime used by Generate.
func (m *JWTManager) TTL() time.Duration {
	return m.config.TTL
}

// Generate issues a token for the identity with the configured lifetime.
func (m *JWTManager) Generate(identity domain.Identity) (string, time.Time, error) {
	return m.Issue(identity, m.config.TTL)
}

// Issue signs a token for the identity that expires after ttl.
func (m *JWTManager) Issue(identity domain.Identity, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token ttl must be positive")
	}
	if !identity.Valid() {
		return "", time.Time{}, errors.New("token identity requires a user id")
	}

	now := m.now()
	expiresAt := now.Add(ttl)
	claims := JWTClaims{
		UserID:   identity.UserID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies the signature, algorithm, issuer and expiry and
// returns the claims.
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return []byte(m.config.SecretKey), nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	return claims, nil
}

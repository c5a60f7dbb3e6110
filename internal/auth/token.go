package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// TokenManager handles issuing and verifying signed access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// ExtraClaims is the closed set of optional claims embedded alongside the
// registered ones. Arbitrary claim maps are deliberately not supported.
type ExtraClaims struct {
	Role  domain.Role `json:"role,omitempty"`
	Email string      `json:"email,omitempty"`
}

// Claims describes the token payload.
type Claims struct {
	ExtraClaims
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the subject, valid for the configured TTL.
func (tm *TokenManager) Issue(subject string, extra ExtraClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		ExtraClaims: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseAndVerify checks signature, structure and expiry, returning claims.
// Failures are one of ErrTokenExpired, ErrTokenMalformed,
// ErrTokenSignatureInvalid or ErrTokenUnsupported.
func (tm *TokenManager) ParseAndVerify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenUnsupported
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, classifyTokenError(errors.New("invalid token claims"))
	}
	return claims, nil
}

// ExtractSubject returns the token subject after full verification.
func (tm *TokenManager) ExtractSubject(tokenStr string) (string, error) {
	claims, err := tm.ParseAndVerify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractExpiry returns the token expiry after full verification.
func (tm *TokenManager) ExtractExpiry(tokenStr string) (time.Time, error) {
	claims, err := tm.ParseAndVerify(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenMalformed
	}
	return claims.ExpiresAt.Time, nil
}

// IsValidFor reports whether the token verifies, is unexpired and was issued
// for the expected subject. Verification failures collapse to false.
func (tm *TokenManager) IsValidFor(tokenStr, expectedSubject string) bool {
	claims, err := tm.ParseAndVerify(tokenStr)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}

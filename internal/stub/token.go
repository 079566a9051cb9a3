package stub

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/locker-client/internal/config"
	"github.com/spec-kit/locker-client/internal/domain"
)

// TokenManager issues and validates the stub server's JWT pairs. The access
// token carries {"sub", "role"}; the refresh token carries only the subject
// and is signed with a separate secret.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager builds a manager from the stub configuration.
func NewTokenManager(cfg config.StubConfig) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		refreshTTL:    time.Duration(cfg.RefreshTokenTTLMinutes) * time.Minute,
	}
}

// accessClaims describes the access token payload.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived access token for the subject.
func (tm *TokenManager) GenerateAccessToken(subjectID string, role domain.Role) (string, error) {
	claims := &accessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.accessSecret)
}

// GenerateRefreshToken signs a longer-lived refresh token for the subject.
func (tm *TokenManager) GenerateRefreshToken(subjectID string) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   subjectID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.refreshTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.refreshSecret)
}

// ParseAccessToken validates an access token and returns its identity.
func (tm *TokenManager) ParseAccessToken(tokenStr string) (string, domain.Role, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.accessSecret, nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return "", "", errors.New("invalid token claims")
	}
	return claims.Subject, domain.Role(claims.Role), nil
}

// ParseRefreshToken validates a refresh token and returns the subject id.
func (tm *TokenManager) ParseRefreshToken(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.refreshSecret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

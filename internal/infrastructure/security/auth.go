// Package security issues and verifies the bearer tokens that carry a user's session
package security

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/ports/outbound"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
	ErrMissingUser  = errors.New("user id is required")
)

const audience = "mealsync-api"

// Claims represents JWT claims structure
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed access token
type IssuedToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService turns bearer tokens into sessions
type AuthService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	revoked    outbound.CacheRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service. revoked may be nil,
// in which case tokens cannot be revoked before they expire.
func NewAuthService(cfg config.AuthConfig, revoked outbound.CacheRepository, logger *zap.Logger) (*AuthService, error) {
	logger = logger.Named("auth")
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		logger.Warn("No JWT secret configured, tokens will not survive a restart")
	}
	return &AuthService{
		secret:     secret,
		expiration: cfg.JWTExpiration,
		issuer:     cfg.Issuer,
		revoked:    revoked,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// IssueToken signs an access token for the given user
func (a *AuthService) IssueToken(userID, email string) (IssuedToken, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return IssuedToken{}, ErrMissingUser
	}

	now := a.now()
	expiresAt := now.Add(a.expiration)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// ParseToken validates a token and returns the session it carries
func (a *AuthService) ParseToken(ctx context.Context, tokenString string) (session.Session, *Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return session.Anonymous(), nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return session.Anonymous(), nil, ErrInvalidToken
	}

	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.Exists(ctx, revokedKey(claims.ID))
		if err != nil {
			a.logger.Warn("Failed to check token revocation", zap.Error(err))
		} else if revoked {
			return session.Anonymous(), nil, ErrTokenRevoked
		}
	}

	return session.New(claims.UserID, claims.Email), claims, nil
}

// Revoke rejects the token for the rest of its lifetime
func (a *AuthService) Revoke(ctx context.Context, claims *Claims) error {
	if a.revoked == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := claims.ExpiresAt.Sub(a.now()); left > 0 {
			ttl = left
		}
	}
	if err := a.revoked.Set(ctx, revokedKey(claims.ID), []byte(claims.UserID), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	a.logger.Info("Token revoked", zap.String("user_id", claims.UserID), zap.String("jti", claims.ID))
	return nil
}

func revokedKey(jti string) string {
	return "mealsync:revoked:" + jti
}

package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
	"github.com/san-edu/registrar-api/pkg/config"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
)

// AuthService validates bearer tokens issued by the campus identity service.
// This API never issues tokens itself.
type AuthService struct {
	cfg    config.JWTConfig
	logger *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{cfg: cfg, logger: logger}
}

// ValidateToken parses and verifies an HS256 token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if s.cfg.Issuer != "" {
		issuer, issErr := claims.GetIssuer()
		if issErr != nil || issuer != s.cfg.Issuer {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token issuer mismatch")
		}
	}
	return claims, nil
}

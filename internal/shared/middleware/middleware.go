package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"seatchart/internal/shared/config"
	"seatchart/internal/shared/utils/response"
	"seatchart/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var (
	errMissingHeader = errors.New("authorization header is required")
	errHeaderFormat  = errors.New("authorization header format must be Bearer {token}")
	errInvalidToken  = errors.New("invalid or expired token")
	errTokenType     = errors.New("invalid token type")
)

// CurrentUserID returns the authenticated user id, or "" when the request is anonymous.
func CurrentUserID(c *gin.Context) string {
	v, ok := c.Get("user_id")
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// accessClaims validates the request's bearer token and returns its claims. Only access
// tokens are accepted.
func accessClaims(c *gin.Context, secret string) (jwt.MapClaims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errHeaderFormat
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, errTokenType
	}
	return claims, nil
}

func setIdentity(c *gin.Context, claims jwt.MapClaims) {
	c.Set("user_id", claims["user_id"])
	c.Set("user_email", claims["email"])
	c.Set("user_role", claims["role"])
}

// JWTAuthWithConfig rejects requests without a valid access token.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := accessClaims(c, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, errInvalidToken) {
				logger.GetDefault().LogAuthFailure(c.Request.Context(), err.Error(), c.ClientIP())
			}
			response.Error(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuthWithConfig identifies the user when a valid access token is present and lets
// anonymous requests through otherwise.
func OptionalAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := accessClaims(c, cfg.JWT.Secret); err == nil {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, "user role not found in context", nil)
			return
		}

		if role, _ := userRole.(string); role != requiredRole {
			response.Error(c, http.StatusForbidden, "Insufficient permissions", nil)
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

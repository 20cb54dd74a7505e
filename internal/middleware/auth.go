package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vizwave/api/internal/config"
	"github.com/vizwave/api/pkg/response"
)

const localsClientKey = "clientId"

// ClientClaims are the HMAC-signed token claims for API access.
type ClientClaims struct {
	ClientID string `json:"clientId"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	cfg *config.AuthConfig
}

func NewAuthMiddleware(cfg *config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

// Authenticate validates the bearer token when auth is enabled. Disabled
// auth passes everything through with an anonymous client id so rate
// limiting still has a key.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.cfg.Enabled {
			c.Locals(localsClientKey, c.IP())
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims := &ClientClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			return response.Unauthorized(c, "Invalid token")
		}

		c.Locals(localsClientKey, claims.ClientID)
		return c.Next()
	}
}

// GetClientID returns the authenticated client id, or the request IP when
// auth is disabled.
func GetClientID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localsClientKey).(string); ok {
		return id
	}
	return ""
}

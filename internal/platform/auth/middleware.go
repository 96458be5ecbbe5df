package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims is the token payload: sub is the numeric user id, role the role id
// and hospital the user's hospital (null for unscoped users).
type Claims struct {
	UserID   int64  `json:"sub"`
	Role     Role   `json:"role"`
	Hospital *int64 `json:"hospital"`
	jwt.RegisteredClaims
}

type JWTConfig struct {
	Secret []byte
	Issuer string
	// Skipper lets public endpoints through without a token.
	Skipper func(c echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token no proporcionado")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Formato de token inválido")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.Secret, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token inválido o expirado")
			}
			if claims.UserID <= 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token inválido o expirado")
			}

			setPrincipal(c, Principal{UserID: claims.UserID, Role: claims.Role, HospitalID: claims.Hospital})
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as the seeded
// administrator. Requests that do carry a token are still verified.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	verify := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := verify(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				setPrincipal(c, Principal{UserID: 1, Role: RoleAdmin})
				return next(c)
			}
			return verified(c)
		}
	}
}

func setPrincipal(c echo.Context, p Principal) {
	c.Set("user_id", p.UserID)
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
}

package devserver

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const emailKey = "devserver.email"

// bearerAuth resolves the bearer token to the logged-in email. When the
// scenario requires auth, unknown or missing tokens get 401.
func (s *Server) bearerAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, _ := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			email, ok := s.state.authorize(token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, detail("Could not validate credentials"))
			}
			c.Set(emailKey, email)
			return next(c)
		}
	}
}

// mintToken builds an unsigned JWT-shaped token carrying the user claims.
func mintToken(u User, ttl time.Duration) string {
	enc := base64.RawURLEncoding
	header, _ := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	payload, _ := json.Marshal(map[string]any{
		"sub":  u.Email,
		"role": u.Role,
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(ttl).Unix(),
	})
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("devserver"))
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"codeauth/internal/dto"
	"codeauth/internal/service"

	"github.com/labstack/echo/v4"
)

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Principal, error)
}

type AuthMiddleware struct {
	Auth Authenticator
}

func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Auth == nil {
			return unauthorized(c)
		}
		token := extractBearerToken(c.Request())
		if token == "" {
			return unauthorized(c)
		}
		principal, err := m.Auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			var appErr *service.AppError
			if errors.As(err, &appErr) && appErr.Kind == service.KindUpstream {
				return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
			}
			return unauthorized(c)
		}
		SetPrincipal(c, principal)
		return next(c)
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Code:    service.ErrUnauthorized.Code,
		Message: service.ErrUnauthorized.Message,
	})
}

func extractBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

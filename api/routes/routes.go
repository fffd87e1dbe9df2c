package routes

import (
	"net/http"
	"time"

	"codeauth/api/handler"
	"codeauth/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	AuthMiddleware middleware.AuthMiddleware
	CodeRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
	Metrics        http.Handler
}

func NewRouter(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	authMiddleware middleware.AuthMiddleware,
	metrics http.Handler,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Users:          userHandler,
		AuthMiddleware: authMiddleware,
		CodeRate:       middleware.NewRateLimiter(rate.Limit(1), 5, 10*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 10, 10*time.Minute),
		Metrics:        metrics,
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	requireAuth := r.AuthMiddleware.RequireAuth

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	auth := e.Group("/api/auth")
	auth.POST("/send-code", r.Auth.SendCode, r.CodeRate.Middleware())
	auth.POST("/login/code", r.Auth.LoginWithCode, r.LoginRate.Middleware())
	auth.POST("/login/password", r.Auth.LoginWithPassword, r.LoginRate.Middleware())
	auth.POST("/register", r.Auth.Register, r.LoginRate.Middleware())
	auth.POST("/password/reset", r.Auth.PasswordReset, r.LoginRate.Middleware())
	auth.POST("/logout", r.Auth.Logout, requireAuth)
	auth.POST("/logout-all", r.Auth.LogoutAll, requireAuth)

	users := e.Group("/api/users", requireAuth)
	users.GET("/me", r.Users.Me)
	users.PUT("/me", r.Users.UpdateProfile)
	users.PUT("/me/avatar", r.Users.UpdateAvatar)
	users.PUT("/me/password", r.Users.ChangePassword)
	users.PUT("/me/email", r.Users.ChangeEmail)
}

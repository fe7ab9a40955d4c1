package sandbox

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(requestMetricsMiddleware)
	s.echo.Use(errorHandlingMiddleware())
	s.echo.Use(middleware.BodyLimit("64K"))

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limited := newRateLimiter(s.config.RateLimit, s.config.RateBurst)

	auth := s.echo.Group("/auth", limited)
	auth.POST("/login", s.handleLogin)
	auth.POST("/register", s.handleRegister)
	auth.POST("/otp/send", s.handleSendOTP)
	auth.POST("/otp/verify", s.handleVerifyOTP)
	auth.POST("/refresh", s.handleRefresh)
	auth.POST("/password/forgot", s.handleForgotPassword)
	auth.GET("/session", s.handleVerifySession, s.requireAuth)
	auth.POST("/logout", s.handleLogout, s.requireAuth)

	profile := s.echo.Group("/profile", limited, s.requireAuth)
	profile.GET("", s.handleGetProfile)
	profile.PATCH("", s.handleUpdateProfile)
	profile.POST("/contact", s.handleUpdateContact)

	if !s.config.IsProduction() {
		s.echo.GET("/dev/otp/:identifier", s.handlePendingCode)
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

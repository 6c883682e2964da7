// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking-api/internal/handler"
	"github.com/roamly/tour-booking-api/internal/middleware"
	"github.com/roamly/tour-booking-api/internal/model"
	"github.com/roamly/tour-booking-api/internal/token"
)

// RegisterRoutes registers routes that need no authentication state at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the authentication endpoints.
//
// The credential endpoints (signup, login, forgot/reset password) sit
// behind the rate limiter; limiter may be nil when Redis is unavailable.
// Protected endpoints run the access guard, and the admin wipe
// additionally runs the role gate.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *token.Codec, users middleware.UserLoader, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/users")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.GET("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.PATCH("/reset-password/:token", a.ResetPassword)

	guard := middleware.Protect(codec, users)

	p := e.Group("/v1/users", guard)
	p.PATCH("/update-password", a.UpdatePassword)
	p.GET("/me", a.Me)
	p.DELETE("", a.DeleteAllUsers, middleware.RequireRole(model.RoleAdmin))

	// Personalized-but-public surface: resolves a session when present,
	// serves anonymously otherwise.
	s := e.Group("/v1", middleware.OptionalAuth(codec, users))
	s.GET("/session", a.Session)
}

// Package router wires handlers and middleware onto the Echo instance.
// Public browse endpoints carry the Redis response cache; everything that
// mutates bookings sits behind JWT auth, role checks and the token-bucket
// rate limiter.  Gateway webhooks authenticate with a shared secret, not
// a member JWT.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/oakbridge/club-sessions/internal/config"
	"github.com/oakbridge/club-sessions/internal/handler"
	"github.com/oakbridge/club-sessions/internal/middleware"
	"github.com/oakbridge/club-sessions/internal/model"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Public  *handler.PublicHandler
	Booking *handler.BookingHandler
	Pass    *handler.PassHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminHandler
}

// Register mounts every route.  rdb may be nil; caching and rate limiting
// then degrade to pass-through.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// public browsing, cached
	pub := e.Group("/v1", cache)
	pub.GET("/sessions", h.Public.ListSessions)
	pub.GET("/sessions/:id/availability", h.Public.Availability)

	// auth endpoints issue and exchange tokens, no JWT required
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// member endpoints: any authenticated role, rate limited
	member := e.Group(
		"/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleMember, model.RoleAdmin),
		limiter,
	)
	member.GET("/me", h.Auth.Me)
	member.POST("/sessions/:id/registrations", h.Booking.CreateRegistration)
	member.GET("/my/registrations", h.Booking.MyRegistrations)
	member.GET("/registrations/:id", h.Booking.GetRegistration)
	member.DELETE("/registrations/:id", h.Booking.CancelRegistration)
	member.POST("/registrations/:id/guests", h.Booking.AddGuests)
	member.DELETE("/registrations/:id/guests", h.Booking.RemoveGuests)
	member.PATCH("/guests/:id", h.Booking.RenameGuest)
	member.GET("/sessions/:id/waitlist/me", h.Booking.MyWaitlist)
	member.PATCH("/waitlist/:id", h.Booking.ReduceWaitlist)
	member.DELETE("/waitlist/:id", h.Booking.LeaveWaitlist)
	member.GET("/registrations/:id/qr", h.Pass.CheckInQR)
	member.GET("/registrations/:id/pass", h.Pass.SessionPass)

	// gateway webhooks, shared-secret header auth inside the handler
	e.POST("/v1/payments/:ref/succeeded", h.Payment.Succeeded)
	e.POST("/v1/payments/:ref/cancelled", h.Payment.Cancelled)

	// staff endpoints
	admin := e.Group(
		"/v1/admin",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/sessions", h.Admin.CreateSession)
	admin.PATCH("/sessions/:id/status", h.Admin.SetSessionStatus)
	admin.GET("/sessions/:id/registrations", h.Admin.SessionRegistrations)
	admin.GET("/sessions/:id/waitlist", h.Admin.SessionWaitlist)
}

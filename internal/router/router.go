// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
)

// Deps are the collaborators routes are built from.  Redis may be nil,
// which turns rate limiting and caching off.
type Deps struct {
	Bookings  *handler.BookingHandler
	DB        handler.Pinger
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Logger    logrus.FieldLogger
}

// New builds an Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Logger))
	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes maps health probes at the top level and the booking API
// under /v1, behind the rate limiter.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}

	v1 := e.Group("/v1", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	v1.POST("/showtimes/:id/bookings", d.Bookings.Book)
	v1.GET("/showtimes/:id/seats/:seat_id/booked", d.Bookings.SeatBooked)
	// history is read far more often than it changes; entries expire after the cache TTL
	v1.GET("/customers/:id/history", d.Bookings.History, middleware.NewRedisCache(d.Cache, d.Redis, d.Logger))
}

// Package webapi provides the HTTP API of the monetary service.
// It is organized into sub-packages for different domains:
// - currency: Currency unit lookups
// - exchange: Exchange rate and conversion endpoints
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/monetary/infra/initializer"
	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/webapi/common"
	currencyweb "github.com/amirasaad/monetary/webapi/currency"
	exchangeweb "github.com/amirasaad/monetary/webapi/exchange"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(deps *initializer.Deps) *fiber.App {
	cfg := deps.Config

	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	// Configure rate limiting middleware
	// Uses X-Forwarded-For header when behind a proxy
	// Falls back to X-Real-IP or direct IP if needed
	if cfg.RateLimit != nil {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.MaxRequests,
			Expiration: cfg.RateLimit.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
					// Take the first IP in the chain
					if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
						return strings.TrimSpace(forwardedFor[:commaIndex])
					}
					return strings.TrimSpace(forwardedFor)
				}
				if realIP := c.Get("X-Real-IP"); realIP != "" {
					return realIP
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	if cfg.Env != "test" {
		fiberApp.Use(logger.New())
	}

	// Health check endpoint
	fiberApp.Get(
		"/",
		func(c *fiber.Ctx) error {
			return c.SendString("Monetary API is running! 🚀")
		},
	)

	// Debug endpoint to list all routes
	fiberApp.Get("/debug/routes", func(c *fiber.Ctx) error {
		routes := fiberApp.GetRoutes()
		var routeList []map[string]any
		for _, route := range routes {
			if route.Path != "" {
				routeList = append(routeList, map[string]any{
					"method": route.Method,
					"path":   route.Path,
				})
			}
		}
		return c.JSON(routeList)
	})

	if deps.Metrics != nil && cfg.Metrics != nil {
		fiberApp.Get(cfg.Metrics.Route, adaptor.HTTPHandler(
			promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}),
		))
	}

	defaultType := exchange.RateTypeDefault
	if cfg.Rates != nil && cfg.Rates.DefaultType != "" {
		defaultType = exchange.RateType(cfg.Rates.DefaultType)
	}

	currencyweb.Routes(fiberApp, deps.Currencies)
	exchangeweb.Routes(fiberApp, exchangeweb.Handlers{
		Currencies:  deps.Currencies,
		Rates:       deps.Rates,
		Converter:   deps.Converter,
		Rounding:    deps.Rounding,
		DefaultType: defaultType,
	})
	return fiberApp
}

package currency

import (
	"strings"
	"time"

	"github.com/amirasaad/monetary/pkg/currency"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/amirasaad/monetary/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers HTTP routes for currency lookups.
func Routes(app *fiber.App, currencies *currency.Provider) {
	currencyGroup := app.Group("/api/currencies")

	currencyGroup.Get("/", ListCurrencies(currencies))
	currencyGroup.Get("/namespaces", ListNamespaces(currencies))
	currencyGroup.Get("/:code", GetCurrency(currencies))
}

// ListCurrencies returns a Fiber handler for listing the currencies of a namespace.
// @Summary List currencies
// @Description List the currency units of a namespace (ISO-4217 by default)
// @Tags currencies
// @Produce json
// @Param namespace query string false "Currency namespace"
// @Success 200 {object} common.Response
// @Failure 429 {object} common.ProblemDetails
// @Router /api/currencies [get]
func ListCurrencies(currencies *currency.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list := currencies.Currencies(c.Query("namespace"))
		if list == nil {
			list = []money.Currency{}
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currencies fetched successfully", list)
	}
}

// ListNamespaces returns the namespaces with at least one provider.
// @Summary List currency namespaces
// @Tags currencies
// @Produce json
// @Success 200 {object} common.Response
// @Router /api/currencies/namespaces [get]
func ListNamespaces(currencies *currency.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Namespaces fetched successfully", currencies.Namespaces())
	}
}

// GetCurrency returns currency information by code
// @Summary Get currency by code
// @Description Get a currency unit, optionally the one valid at a point in time
// @Tags currencies
// @Produce json
// @Param code path string true "Currency code (e.g., USD, EUR)"
// @Param namespace query string false "Currency namespace"
// @Param at query string false "RFC 3339 timestamp"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/currencies/{code} [get]
func GetCurrency(currencies *currency.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := money.Code(strings.ToUpper(c.Params("code")))

		var at time.Time
		if raw := c.Query("at"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid timestamp", err, fiber.StatusBadRequest)
			}
			at = t
		}

		unit, err := currencies.GetAt(c.Query("namespace"), code, at)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Currency not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currency fetched successfully", unit)
	}
}

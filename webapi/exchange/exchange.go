package exchange

import (
	"strings"
	"time"

	"github.com/amirasaad/monetary/pkg/currency"
	"github.com/amirasaad/monetary/pkg/exchange"
	conversionsvc "github.com/amirasaad/monetary/pkg/exchange/service"
	"github.com/amirasaad/monetary/pkg/format"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/amirasaad/monetary/pkg/rounding"
	"github.com/amirasaad/monetary/webapi/common"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

// Handlers groups what the rate and conversion endpoints need.
type Handlers struct {
	Currencies  *currency.Provider
	Rates       *exchange.Registry
	Converter   *conversionsvc.Service
	Rounding    *rounding.Provider
	DefaultType exchange.RateType
}

// Routes registers HTTP routes for exchange rates and conversions.
func Routes(app *fiber.App, h Handlers) {
	rateGroup := app.Group("/api/rates")
	rateGroup.Get("/", ListRateTypes(h.Rates))
	rateGroup.Post("/reload", Reload(h.Currencies, h.Rates))
	rateGroup.Get("/:type/:from/:to", GetRate(h.Currencies, h.Rates))

	app.Post("/api/convert", Convert(h))
}

// ListRateTypes returns the registered rate types and their providers.
// @Summary List rate types
// @Tags rates
// @Produce json
// @Success 200 {object} common.Response
// @Router /api/rates [get]
func ListRateTypes(rates *exchange.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		types := rates.RateTypes()
		out := make([]RateTypeResponse, 0, len(types))
		for _, rt := range types {
			out = append(out, RateTypeResponse{RateType: rt, Providers: rates.ProviderNames(rt)})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rate types fetched successfully", out)
	}
}

// Reload asks the currency and rate registries to pick up new providers.
// @Summary Reload providers
// @Tags rates
// @Produce json
// @Success 200 {object} common.Response
// @Router /api/rates/reload [post]
func Reload(currencies *currency.Provider, rates *exchange.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out := ReloadResponse{
			Currencies: currencies.Reload(),
			Rates:      rates.Reload(),
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Providers reloaded", out)
	}
}

// GetRate returns the rate between two currencies, chain included.
// @Summary Get exchange rate
// @Description Get the rate of a rate type, optionally the one valid at a point in time
// @Tags rates
// @Produce json
// @Param type path string true "Rate type (e.g., ECB)"
// @Param from path string true "Source currency code"
// @Param to path string true "Target currency code"
// @Param namespace query string false "Currency namespace"
// @Param at query string false "RFC 3339 timestamp"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/rates/{type}/{from}/{to} [get]
func GetRate(currencies *currency.Provider, rates *exchange.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		at, err := parseAt(c.Query("at"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid timestamp", err, fiber.StatusBadRequest)
		}
		ns := c.Query("namespace")
		source, err := currencies.GetAt(ns, money.Code(strings.ToUpper(c.Params("from"))), at)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Currency not found", err)
		}
		target, err := currencies.GetAt(ns, money.Code(strings.ToUpper(c.Params("to"))), at)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Currency not found", err)
		}

		rateType := exchange.RateType(strings.ToUpper(c.Params("type")))
		provider, ok := rates.Provider(rateType)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unknown rate type", exchange.ErrNoProvider, fiber.StatusNotFound)
		}
		rate, ok := provider.Get(c.UserContext(), exchange.Query{Source: source, Target: target, At: at})
		if !ok {
			return common.ProblemDetailsJSON(c, "Exchange rate not found", exchange.ErrRateNotFound)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Exchange rate fetched successfully", rate)
	}
}

// Convert returns a Fiber handler for converting an amount.
// @Summary Convert an amount
// @Description Convert an amount with the rates of a rate type
// @Tags rates
// @Accept json
// @Produce json
// @Param request body ConvertRequest true "Conversion request"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /api/convert [post]
func Convert(h Handlers) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[ConvertRequest](c)
		if err != nil {
			return nil // error response already written
		}

		at, err := parseAt(input.At)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid timestamp", err, fiber.StatusBadRequest)
		}
		from, err := h.Currencies.GetAt(input.Namespace, money.Code(strings.ToUpper(input.From)), at)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Currency not found", err)
		}
		to, err := h.Currencies.GetAt(input.Namespace, money.Code(strings.ToUpper(input.To)), at)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Currency not found", err)
		}
		amount, err := money.NewFromString(input.Amount, from)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}

		rateType := h.DefaultType
		if input.RateType != "" {
			rateType = exchange.RateType(strings.ToUpper(input.RateType))
		}

		conv, err := h.Converter.Quote(c.UserContext(), rateType, amount, to, at)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Conversion failed", err)
		}

		resp := ConvertResponse{
			ID:   conv.ID,
			From: conv.From,
			To:   conv.To,
			Rate: conv.Rate,
			At:   conv.At,
		}
		if input.Round {
			resp.To = h.Rounding.Get(to)(resp.To)
		}
		if input.Locale != "" || input.Symbol != "" {
			resp.Formatted, err = formatted(resp.To, input.Locale, input.Symbol)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid locale", err, fiber.StatusBadRequest)
			}
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Amount converted successfully", resp)
	}
}

func formatted(m money.Money, locale, symbol string) (string, error) {
	style := format.Style{Attributes: map[string]string{}}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return "", err
		}
		style.Locale = tag
	}
	if symbol != "" {
		style.Attributes[format.AttrSymbol] = symbol
	}
	return format.NewFormatter(style).Format(m), nil
}

func parseAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

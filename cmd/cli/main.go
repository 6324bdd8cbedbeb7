package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/amirasaad/monetary/infra/initializer"
	"github.com/amirasaad/monetary/pkg/config"
	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/format"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/fatih/color"
	"golang.org/x/term"
	"golang.org/x/text/language"
)

const usage = `Usage: cli <command> [arguments]
Commands:
  convert <amount> <from> <to> [rate_type]
  rate <from> <to> [rate_type]
  currencies [namespace]
  rate-types`

var (
	headline = color.New(color.FgCyan, color.Bold)
	value    = color.New(color.FgGreen)
	failure  = color.New(color.FgRed)
)

func main() {
	color.NoColor = color.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))

	if len(os.Args) < 2 {
		fmt.Println(usage)
		return
	}

	cfg, err := config.Load(".env")
	if err != nil {
		_, _ = failure.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	deps, err := initializer.Build(cfg, logger)
	if err != nil {
		_, _ = failure.Fprintln(os.Stderr, "Failed to initialize:", err)
		os.Exit(1)
	}
	defer deps.Close() //nolint: errcheck

	c := &cli{
		deps:   deps,
		out:    os.Stdout,
		format: format.NewFormatter(format.Style{Locale: language.Make(config.GetEnv("MONETARY_LOCALE", "en"))}),
	}
	if err := c.run(context.Background(), os.Args[1:]); err != nil {
		_, _ = failure.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	deps   *initializer.Deps
	out    io.Writer
	format *format.Formatter
}

var errUsage = errors.New(usage)

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "convert":
		if len(args) < 4 {
			return errors.New("usage: convert <amount> <from> <to> [rate_type]")
		}
		return c.convert(ctx, args[1], args[2], args[3], c.rateType(args[4:]))
	case "rate":
		if len(args) < 3 {
			return errors.New("usage: rate <from> <to> [rate_type]")
		}
		return c.rate(ctx, args[1], args[2], c.rateType(args[3:]))
	case "currencies":
		ns := ""
		if len(args) > 1 {
			ns = args[1]
		}
		return c.currencies(ns)
	case "rate-types":
		for _, rt := range c.deps.Rates.RateTypes() {
			_, _ = headline.Fprint(c.out, rt)
			fmt.Fprintf(c.out, " %s\n", strings.Join(c.deps.Rates.ProviderNames(rt), ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *cli) rateType(args []string) exchange.RateType {
	if len(args) > 0 && args[0] != "" {
		return exchange.RateType(strings.ToUpper(args[0]))
	}
	return exchange.RateType(c.deps.Config.Rates.DefaultType)
}

func (c *cli) currency(code string) (money.Currency, error) {
	return c.deps.Currencies.Get(money.DefaultNamespace, money.Code(strings.ToUpper(code)))
}

func (c *cli) convert(ctx context.Context, amount, from, to string, rateType exchange.RateType) error {
	source, err := c.currency(from)
	if err != nil {
		return err
	}
	target, err := c.currency(to)
	if err != nil {
		return err
	}
	m, err := money.NewFromString(amount, source)
	if err != nil {
		return err
	}
	conv, err := c.deps.Converter.Quote(ctx, rateType, m, target, time.Time{})
	if err != nil {
		return err
	}
	rounded := c.deps.Rounding.Get(target)(conv.To)

	fmt.Fprintf(c.out, "%s = ", c.format.Format(conv.From))
	_, _ = value.Fprintln(c.out, c.format.Format(rounded))
	fmt.Fprintf(c.out, "rate %s\n", conv.Rate)
	return nil
}

func (c *cli) rate(ctx context.Context, from, to string, rateType exchange.RateType) error {
	source, err := c.currency(from)
	if err != nil {
		return err
	}
	target, err := c.currency(to)
	if err != nil {
		return err
	}
	provider, ok := c.deps.Rates.Provider(rateType)
	if !ok {
		return fmt.Errorf("%w: %s", exchange.ErrNoProvider, rateType)
	}
	rate, ok := provider.Get(ctx, exchange.Query{Source: source, Target: target})
	if !ok {
		return fmt.Errorf("%w: %s→%s (%s)", exchange.ErrRateNotFound, source, target, rateType)
	}

	_, _ = headline.Fprintln(c.out, rate)
	if rate.IsDerived() {
		for i, link := range rate.Chain() {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, link)
		}
	}
	return nil
}

func (c *cli) currencies(namespace string) error {
	list := c.deps.Currencies.Currencies(namespace)
	if len(list) == 0 {
		return fmt.Errorf("%w: no currencies in namespace %q", money.ErrUnknownCurrency, namespace)
	}
	for _, cur := range list {
		_, _ = headline.Fprint(c.out, cur.Code())
		name := ""
		if d, ok := cur.Display(); ok {
			name = d.DisplayName()
		}
		fmt.Fprintf(c.out, " %-3d %s\n", cur.DefaultFractionDigits(), name)
	}
	return nil
}

package config

import (
	"time"
)

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text" validate:"oneof=json text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[monetary]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http" validate:"oneof=http https"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100" validate:"min=1"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Rates configures the built-in rate providers.
type Rates struct {
	// DefaultType is used when a request does not name a rate type.
	DefaultType string `envconfig:"DEFAULT_TYPE" default:"DEFAULT" validate:"required"`
	// StaticType is the rate type the static table is registered under.
	StaticType string `envconfig:"STATIC_TYPE" default:"DEFAULT" validate:"required"`
	// Static is a comma separated "FROM:TO=factor" list.
	Static     string `envconfig:"STATIC" default:"USD:EUR=0.92,USD:CHF=0.88,USD:GBP=0.79,USD:JPY=151.5,EUR:CHF=0.96"`
	Base       string `envconfig:"BASE" default:"USD" validate:"omitempty,len=3,uppercase"`
	Reciprocal bool   `envconfig:"RECIPROCAL" default:"true"`
	// CurrenciesFile is an optional CSV of extra currencies in the ISO table layout.
	CurrenciesFile string `envconfig:"CURRENCIES_FILE" validate:"omitempty,file"`
}

//revive:disable
type ExchangeRateApi struct {
	Enabled     bool          `envconfig:"ENABLED" default:"false"`
	ApiKey      string        `envconfig:"API_KEY" validate:"required_if=Enabled true"`
	ApiUrl      string        `envconfig:"API_URL" default:"https://v6.exchangerate-api.com/v6" validate:"url"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	RefreshTTL  time.Duration `envconfig:"REFRESH_TTL" default:"1h"`
	RateType    string        `envconfig:"RATE_TYPE" default:"DEFAULT" validate:"required"`
}

//revive:enable

// Cache selects the rate cache. An empty Url keeps rates in memory.
type Cache struct {
	Enabled         bool          `envconfig:"ENABLED" default:"true"`
	Url             string        `envconfig:"URL" validate:"omitempty,url"`
	Prefix          string        `envconfig:"PREFIX" default:"monetary:rate:"`
	TTL             time.Duration `envconfig:"TTL" default:"15m"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`
	// WarmTargets is a comma separated list of codes whose rates from
	// Rates.Base are prefetched in the background.
	WarmTargets string `envconfig:"WARM_TARGETS"`
}

type Metrics struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Route   string `envconfig:"ROUTE" default:"/metrics" validate:"startswith=/"`
}

// Events publishes completed conversions. An empty Url dispatches them
// in process.
type Events struct {
	Enabled bool   `envconfig:"ENABLED" default:"false"`
	Url     string `envconfig:"URL" validate:"omitempty,url"`
	Stream  string `envconfig:"STREAM" default:"monetary:conversions" validate:"required"`
	Group   string `envconfig:"GROUP" default:"monetary" validate:"required"`
}

type App struct {
	Env             string           `envconfig:"APP_ENV" default:"development" validate:"oneof=development test production"`
	Server          *Server          `envconfig:"SERVER"`
	Log             *Log             `envconfig:"LOG"`
	RateLimit       *RateLimit       `envconfig:"RATE_LIMIT"`
	Rates           *Rates           `envconfig:"RATES"`
	ExchangeRateApi *ExchangeRateApi `envconfig:"EXCHANGE_RATE_API"`
	Cache           *Cache           `envconfig:"CACHE"`
	Metrics         *Metrics         `envconfig:"METRICS"`
	Events          *Events          `envconfig:"EVENTS"`
}

// Package config defines the plain value structs the embedding application
// fills in and passes to the connectivity core's constructors. There is no
// loader here: no YAML, no environment variables, no CLI flags. Credentials
// and endpoints are the caller's responsibility to obtain and supply.
package config

import "github.com/tradecore/binancefutures-core/internal/ratelimit"

// Venue identifies which Binance USD-M Futures environment a Config targets.
type Venue struct {
	Name      string // label used for logging and the rate-limiter registry, e.g. "binance-futures"
	RESTBase  string // e.g. "https://fapi.binance.com"
	WSBase    string // e.g. "wss://fstream.binance.com"
	IsTestnet bool
}

// Production and Testnet are the two supported Binance USD-M Futures venues.
var (
	Production = Venue{
		Name:     "binance-futures",
		RESTBase: "https://fapi.binance.com",
		WSBase:   "wss://fstream.binance.com",
	}
	Testnet = Venue{
		Name:      "binance-futures-testnet",
		RESTBase:  "https://testnet.binancefuture.com",
		WSBase:    "wss://stream.binancefuture.com",
		IsTestnet: true,
	}
)

// Credentials carries the API key pair used to sign authenticated requests.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Config is the complete set of values a caller supplies to construct a
// Gateway, its rate limiter, and its WebSocket streams.
type Config struct {
	Venue       Venue
	Credentials Credentials
	Limits      ratelimit.Limits
}

// DefaultLimits returns BinanceFuturesLimits if Limits was left zero-valued.
func (c Config) DefaultLimits() ratelimit.Limits {
	if c.Limits == (ratelimit.Limits{}) {
		return ratelimit.BinanceFuturesLimits
	}
	return c.Limits
}

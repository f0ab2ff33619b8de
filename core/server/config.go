package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// RateLimit is the sustained number of import requests per second allowed per client IP.
	RateLimit float64 `mapstructure:"rate_limit" default:"0.2"`
	// RateBurst is the number of import requests a client may issue back to back.
	RateBurst int `mapstructure:"rate_burst" default:"2"`
	// BodyLimitMB caps the size of an uploaded record set.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"32"`
}

// BodyLimit returns the request body limit in bytes.
func (c Config) BodyLimit() int {
	if c.BodyLimitMB <= 0 {
		return 4 * 1024 * 1024
	}
	return c.BodyLimitMB * 1024 * 1024
}

// IsRateLimited reports whether the import routes should be throttled.
func (c Config) IsRateLimited() bool {
	return c.RateLimit > 0 && c.RateBurst > 0
}

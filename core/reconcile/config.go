package reconcile

import "time"

// Config holds configuration for import runs.
type Config struct {
	// DefaultCategory is the canonical category used when a post's category cannot be resolved.
	DefaultCategory string `mapstructure:"default_category" default:"Technology Discussion"`
	// ReportPrefix is the storage prefix under which run results are uploaded.
	ReportPrefix string `mapstructure:"report_prefix" default:"reports/imports"`
	// CacheTTLSeconds is the lifetime of cached store indices used by previews.
	// Zero disables caching.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"60"`
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

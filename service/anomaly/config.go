package anomaly

import "time"

// FailureRate configures the failure-rate check.
type FailureRate struct {
	Enabled    bool    `yaml:"enabled"`
	MinSamples int     `yaml:"minSamples"`
	MaxRate    float64 `yaml:"maxRate"`
}

// Volume configures the execution volume check.
type Volume struct {
	Enabled    bool `yaml:"enabled"`
	MaxPerHour int  `yaml:"maxPerHour"`
}

// Config represents monitor configuration
type Config struct {
	Interval       time.Duration `yaml:"interval"`
	FailureRate    FailureRate   `yaml:"failureRate"`
	Volume         Volume        `yaml:"volume"`
	PauseOnAnomaly bool          `yaml:"pauseOnAnomaly"`
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() Config {
	return Config{
		Interval:       time.Minute,
		FailureRate:    FailureRate{Enabled: true, MinSamples: 5, MaxRate: 0.5},
		Volume:         Volume{Enabled: true, MaxPerHour: 100},
		PauseOnAnomaly: true,
	}
}

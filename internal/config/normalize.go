// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Serial.Parity = strings.ToUpper(cfg.Serial.Parity)

	// zero means "use the default", never "no timeout"
	if cfg.Serial.Timeout == 0 {
		cfg.Serial.Timeout = DefaultTimeout
	}
	if cfg.Bucket == 0 {
		cfg.Bucket = DefaultBucket
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

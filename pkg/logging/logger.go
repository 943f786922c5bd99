// Package logging builds the engine's root zap logger and provides helpers
// for keeping secrets out of log output.
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New constructs the root logger. Production environments get JSON output,
// everything else gets the human-readable development encoder.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(env) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

package pipeline

import (
	"log/slog"

	"github.com/tjfontaine/enrichment-gateway/internal/converter"
	"github.com/tjfontaine/enrichment-gateway/internal/pkg/config"
)

// NewRunnerFromConfig builds a runner from cfg. Fields already set in base
// are kept; a missing executor becomes an HTTP step executor and a missing
// converter becomes a converter client when a converter base URL is
// configured. Without a converter markup chains run without round-trip.
func NewRunnerFromConfig(cfg *config.Config, base RunnerConfig) *Runner {
	if base.Logger == nil {
		base.Logger = slog.Default()
	}

	if base.Executor == nil {
		base.Executor = NewHTTPStepExecutor(HTTPStepExecutorConfig{
			Timeout:   config.Duration(cfg.Pipeline.StepTimeout, DefaultStepTimeout),
			UserAgent: cfg.Pipeline.UserAgent,
			Logger:    base.Logger,
		})
	}

	if base.Converter == nil && cfg.Converter.BaseURL != "" {
		base.Converter = converter.New(converter.Config{
			BaseURL: cfg.Converter.BaseURL,
			Timeout: config.Duration(cfg.Converter.Timeout, 0),
			Logger:  base.Logger,
		})
	}

	return NewRunner(base)
}

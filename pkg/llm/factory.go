package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/config"
)

// NewFromConfig creates the provider client selected by configuration.
// Returns the Client interface to enable dependency injection of mocks.
func NewFromConfig(cfg *config.ProviderConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Vendor {
	case config.VendorOpenAI:
		client, err := NewOpenAIClient(&Config{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case config.VendorAnthropic:
		client, err := NewAnthropicClient(&Config{
			Model:  cfg.Model,
			APIKey: cfg.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider vendor %q", cfg.Vendor)
	}
}

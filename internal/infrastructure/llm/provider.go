// Package llm adapts hosted and local language models to the completion and
// analysis ports.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/defence-assistant/internal/core/ports"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/llm/ollama"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the vendor endpoint. Required for ollama.
	BaseURL string
	Timeout time.Duration
}

// NewCompleter builds the Completer for cfg.Provider.
func NewCompleter(cfg ProviderConfig) (ports.Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider != ProviderOllama && strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: api key for provider %q is not set", provider)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm: model for provider %q is not set", provider)
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderGoogle:
		return NewGoogle(cfg), nil
	case ProviderOllama:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("llm: ollama base url is not set")
		}
		return ollama.New(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

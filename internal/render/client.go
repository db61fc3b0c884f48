// Package render is the boundary to the AI rendering collaborator. The
// engine hands it a structured prompt context and gets back prose plus
// any dimension names the text echoes; everything else about the model
// is opaque, and there are no retries on this side of the boundary.
package render

import (
	"context"
	"fmt"

	"github.com/mostlycached/grain/internal/config"
)

// Client is the interface for rendering providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of a rendering call.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient creates a rendering client based on the config provider setting.
func NewClient(cfg config.RendererConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown renderer provider: %q", cfg.Provider)
	}
}

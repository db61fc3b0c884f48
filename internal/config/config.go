package config

import "fmt"

// Config holds all grain engine configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Renderer RendererConfig `toml:"renderer"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type RendererConfig struct {
	Provider     string `toml:"provider"`     // "anthropic", "ollama"
	Model        string `toml:"model"`        // e.g. "claude-haiku-4-5-20251001"
	OllamaURL    string `toml:"ollama_url"`
	OllamaModel  string `toml:"ollama_model"` // e.g. "llama3.2"
	AnthropicKey string `toml:"anthropic_key"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37878,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Renderer: RendererConfig{
			Provider: "ollama",
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

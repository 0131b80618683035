package llm

import (
	"github.com/Minggyul/AI-Image-Craft/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates a new OpenAI client from the application configuration.
func NewClient(cfg config.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(clientConfig)
}

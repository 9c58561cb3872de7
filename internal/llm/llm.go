package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/HemaCharanPyla/MAX-LLM/internal/config"
)

// NewClient creates a completion provider client from config. Any
// OpenAI-compatible endpoint works via base_url.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

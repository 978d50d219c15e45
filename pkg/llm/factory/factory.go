package factory

import (
	"fmt"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/llm/gemini"
	"ai-tutoring-be/pkg/llm/huggingface"
	"ai-tutoring-be/pkg/llm/ollama"
)

// NewLLMProvider selects the chat backend from config. Unknown provider
// names are a startup error, not a silent fallback.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(apiKey, modelName), nil
	case "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an API key")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// Package llm holds the language-understanding providers behind domain.LLMClient.
package llm

const (
	DefaultTemperature     float32 = 0.3
	DefaultMaxOutputTokens int32   = 500
)

// Provider names accepted in configuration.
const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

package screening

import (
	"fmt"
	"time"

	"hirelane/pipeline-service/internal/pipeline"
)

// Provider names a model vendor.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// New returns the scorer for provider. model may be empty for the
// provider's default.
func New(provider string, keys KeyResolver, model string, timeout time.Duration) (pipeline.Scorer, error) {
	switch provider {
	case "", ProviderGemini:
		return NewGemini(keys, model, timeout), nil
	case ProviderOpenAI:
		return NewOpenAI(keys, model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown scorer provider %q", provider)
	}
}

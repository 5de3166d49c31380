package insight

import (
	"strings"
	"time"
)

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	DefaultTemperature = 0.2
	DefaultTimeout     = 60 * time.Second
)

// Settings configures the remote capability
type Settings struct {
	Provider string
	// APIKey is required for the openai provider
	APIKey string
	// Model is the model name, or the deployment name on Azure OpenAI
	Model string
	// Endpoint optionally overrides the provider's base URL
	Endpoint string
	// APIVersion selects Azure OpenAI when set together with Endpoint
	APIVersion  string
	Temperature float32
	Timeout     time.Duration
}

// cacheKey identifies a constructed client. The model is sent per request and
// is not part of it.
type cacheKey struct {
	provider   string
	apiKey     string
	endpoint   string
	apiVersion string
}

func (s Settings) provider() string {
	p := strings.ToLower(strings.TrimSpace(s.Provider))
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

func (s Settings) key() cacheKey {
	return cacheKey{
		provider:   s.provider(),
		apiKey:     s.APIKey,
		endpoint:   s.Endpoint,
		apiVersion: s.APIVersion,
	}
}

func (s Settings) temperature() float32 {
	if s.Temperature <= 0 {
		return DefaultTemperature
	}
	return s.Temperature
}

func (s Settings) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// Validate checks that the settings are complete enough to build a client
func (s Settings) Validate() error {
	switch s.provider() {
	case ProviderOpenAI:
		if s.APIKey == "" {
			return &ConfigurationError{Msg: "OPENAI_API_KEY not configured"}
		}
		if s.Model == "" {
			return &ConfigurationError{Msg: "OPENAI_MODEL not configured"}
		}
	case ProviderOllama:
		if s.Model == "" {
			return &ConfigurationError{Msg: "OPENAI_MODEL not configured"}
		}
	default:
		return &ConfigurationError{Msg: "unknown LLM provider " + s.Provider}
	}
	return nil
}

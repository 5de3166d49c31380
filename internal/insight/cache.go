package insight

import (
	"context"
	"fmt"
	"sync"

	"github.com/zombar/knowledgeextractor/internal/ollama"
	"github.com/zombar/knowledgeextractor/internal/openai"
)

// Completer is a constructed remote capability
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string, temperature float32) (string, error)
	Variant() string
}

// Factory builds a Completer for validated settings
type Factory func(Settings) (Completer, error)

// NewCompleter is the default Factory
func NewCompleter(s Settings) (Completer, error) {
	if s.provider() == ProviderOllama {
		client, err := ollama.New(s.Endpoint)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := openai.New(openai.Config{
		APIKey:     s.APIKey,
		Endpoint:   s.Endpoint,
		APIVersion: s.APIVersion,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ClientCache holds at most one constructed client, keyed by
// (provider, credential, endpoint, API version). Lookups share a read lock;
// a changed key rebuilds the client under the write lock. A failed build
// leaves the cached client untouched.
type ClientCache struct {
	factory Factory

	mu     sync.RWMutex
	key    cacheKey
	client Completer
}

// DefaultCache is shared by every Service that does not bring its own cache
var DefaultCache = NewClientCache(NewCompleter)

// NewClientCache creates an empty cache
func NewClientCache(factory Factory) *ClientCache {
	if factory == nil {
		factory = NewCompleter
	}
	return &ClientCache{factory: factory}
}

// Get returns the client for s, building it if the cached one was built for
// different settings
func (c *ClientCache) Get(s Settings) (Completer, error) {
	key := s.key()

	c.mu.RLock()
	if c.client != nil && c.key == key {
		client := c.client
		c.mu.RUnlock()
		return client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have built it while we waited
	if c.client != nil && c.key == key {
		return c.client, nil
	}

	client, err := c.factory(s)
	if err != nil {
		return nil, &ConfigurationError{Msg: "failed to initialize LLM client", Err: err}
	}
	if client == nil {
		return nil, &ConfigurationError{Msg: "failed to initialize LLM client", Err: fmt.Errorf("factory returned no client")}
	}

	c.key = key
	c.client = client
	return client, nil
}

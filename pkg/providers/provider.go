// Package providers wraps the completion backends the agent consumes for
// planning and error analysis. The rest of the system is polymorphic over
// the Provider interface; concrete clients are built once at startup by the
// Registry.
package providers

import (
	"context"
	"fmt"
)

// Message is one turn of a conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Provider is a text-completion backend.
type Provider interface {
	Name() string
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CallWithHistory(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// ProviderError marks failures originating in a backend: unreachable,
// misconfigured, or missing credentials.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: name, Err: err}
}

func providerErrf(name, format string, args ...interface{}) error {
	return &ProviderError{Provider: name, Err: fmt.Errorf(format, args...)}
}

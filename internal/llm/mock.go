package llm

import (
	"context"
	"sync"
)

// Mock is a Generator for tests
type Mock struct {
	GenerateFunc func(ctx context.Context, prompt string, maxTokens int) (*Completion, error)

	mu      sync.Mutex
	prompts []string
}

// Generate implements Generator. Without GenerateFunc it echoes the prompt.
func (m *Mock) Generate(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, maxTokens)
	}
	return &Completion{Text: prompt, TokensUsed: len(prompt) / 4}, nil
}

// Prompts returns every prompt received so far
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

package chat

import "context"

// ModelProvider is the language-model call. Implementations return the
// model's text, which may be empty; the service decides what an empty or
// failed response turns into.
type ModelProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier nudges the sync engine after a local write.
type Notifier interface {
	Notify()
}

package push

import (
	"context"
	"log/slog"
)

// MockProvider is a logging provider for local development.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Subscribe logs the registration instead of performing it.
func (m *MockProvider) Subscribe(_ context.Context, token, topic string) (int, error) {
	m.logger.Info("MOCK SUBSCRIBE", "topic", topic, "token_length", len(token))
	return 0, nil
}

// Unsubscribe logs the removal instead of performing it.
func (m *MockProvider) Unsubscribe(_ context.Context, token, topic string) (int, error) {
	m.logger.Info("MOCK UNSUBSCRIBE", "topic", topic, "token_length", len(token))
	return 0, nil
}

// Send logs the message instead of delivering it.
func (m *MockProvider) Send(_ context.Context, msg Message) error {
	m.logger.Info("MOCK SEND",
		"topic", msg.Topic,
		"token_length", len(msg.Token),
		"fields", len(msg.Data))
	return nil
}

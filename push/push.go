// Package push handles topic registrations and notice delivery through a
// pluggable topic-messaging provider.
package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
)

// devSuffix is appended to topic names outside production so dev devices
// never receive production broadcasts.
const devSuffix = ".dev"

// Message is one delivery: either Topic or Token is set, never both.
type Message struct {
	Topic string
	Token string
	Data  map[string]string
}

// Provider defines the interface for topic-messaging implementations.
// Subscribe and Unsubscribe report how many registrations failed.
type Provider interface {
	Subscribe(ctx context.Context, token, topic string) (failures int, err error)
	Unsubscribe(ctx context.Context, token, topic string) (failures int, err error)
	Send(ctx context.Context, msg Message) error
}

// Service wraps a provider with the service's topic naming and payload
// contract.
type Service struct {
	provider       Provider
	logger         *slog.Logger
	deployEnv      string
	normalBaseURL  string
	libraryBaseURL string
}

// New creates a push service over the given provider.
func New(provider Provider, deployEnv, normalBaseURL, libraryBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		provider:       provider,
		logger:         logger,
		deployEnv:      deployEnv,
		normalBaseURL:  normalBaseURL,
		libraryBaseURL: libraryBaseURL,
	}
}

// Topic maps a category name to its topic name for this deployment.
func (s *Service) Topic(category string) string {
	if s.deployEnv != "prod" {
		return category + devSuffix
	}
	return category
}

// Subscribe registers a token on a category's topic. A response with a
// nonzero failure count is a failure.
func (s *Service) Subscribe(ctx context.Context, token, category string) error {
	topic := s.Topic(category)
	failures, err := s.provider.Subscribe(ctx, token, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	if failures > 0 {
		return fmt.Errorf("subscribe to %s: %d registrations failed", topic, failures)
	}
	s.logger.Info("Topic subscription registered", "topic", topic)
	return nil
}

// Unsubscribe removes a token from a category's topic.
func (s *Service) Unsubscribe(ctx context.Context, token, category string) error {
	topic := s.Topic(category)
	failures, err := s.provider.Unsubscribe(ctx, token, topic)
	if err != nil {
		return fmt.Errorf("unsubscribe from %s: %w", topic, err)
	}
	if failures > 0 {
		return fmt.Errorf("unsubscribe from %s: %d removals failed", topic, failures)
	}
	s.logger.Info("Topic subscription removed", "topic", topic)
	return nil
}

// SendToTopic broadcasts one notice to its category topic.
func (s *Service) SendToTopic(ctx context.Context, n kuring.Notice) error {
	msg := Message{
		Topic: s.Topic(n.Category),
		Data:  s.payload(n),
	}

	s.logger.Info("Sending notice to topic",
		"topic", msg.Topic,
		"article_id", n.ArticleID,
		"subject", n.Subject)

	return s.provider.Send(ctx, msg)
}

// SendToToken delivers one notice to a single device (targeted or test
// delivery).
func (s *Service) SendToToken(ctx context.Context, token string, n kuring.Notice) error {
	msg := Message{
		Token: token,
		Data:  s.payload(n),
	}

	s.logger.Info("Sending notice to token", "article_id", n.ArticleID)

	return s.provider.Send(ctx, msg)
}

// VerifyToken probes a token with an empty send; the provider rejects the
// message when the token is invalid.
func (s *Service) VerifyToken(ctx context.Context, token string) error {
	return s.provider.Send(ctx, Message{Token: token})
}

// payload is the flat string-keyed field set delivered with every notice.
// baseUrl depends on whether the notice came from the library source.
func (s *Service) payload(n kuring.Notice) map[string]string {
	baseURL := s.normalBaseURL
	if n.Category == kuring.LibraryCategory {
		baseURL = s.libraryBaseURL
	}

	return map[string]string{
		"articleId":  n.ArticleID,
		"postedDate": n.PostedDate,
		"subject":    n.Subject,
		"category":   n.Category,
		"baseUrl":    baseURL,
	}
}

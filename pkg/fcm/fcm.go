package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Sender delivers push notifications through Firebase Cloud Messaging.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error)
}

type sender struct {
	client *messaging.Client
	logger zerolog.Logger
}

// New constructs an FCM sender from a service-account credentials file.
func New(ctx context.Context, credentialsFile string, logger zerolog.Logger) (Sender, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("firebase credentials file must be provided")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fcm client: %w", err)
	}

	return &sender{
		client: client,
		logger: logger.With().Str("component", "fcm").Logger(),
	}, nil
}

func (s *sender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("fcm token must not be empty")
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	id, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}

	s.logger.Debug().Str("message_id", id).Msg("push delivered")
	return nil
}

func (s *sender) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	response, err := s.client.SendMulticast(ctx, message)
	if err != nil {
		return 0, fmt.Errorf("failed to send multicast push: %w", err)
	}

	if response.FailureCount > 0 {
		s.logger.Warn().
			Int("success", response.SuccessCount).
			Int("failure", response.FailureCount).
			Msg("multicast push partially failed")
	}

	return response.SuccessCount, nil
}

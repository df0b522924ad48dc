package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/observability"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/pkg/fcm"
)

const notificationBufferSize = 16

// NotificationInput describes a notification a domain service wants delivered.
type NotificationInput struct {
	UserUID string
	Type    string
	Title   string
	Message string
	Data    map[string]interface{}
}

// NotificationService persists and streams notifications to end users via SSE,
// and pushes them through FCM when the target has a registered device.
type NotificationService interface {
	Publish(ctx context.Context, input NotificationInput) (dto.NotificationResponse, error)
	Broadcast(ctx context.Context, userUIDs []string, input NotificationInput) ([]dto.NotificationResponse, error)
	List(ctx context.Context, userUID string, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, userUID string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userUID string) (int64, error)
	Subscribe(userUID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	users       repository.UserRepository
	push        fcm.Sender
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	UserUID      string                   `json:"user_uid"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service. push may be nil
// when FCM is not configured.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, push fcm.Sender, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		users:       users,
		push:        push,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/taskguru/taskguru-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, input NotificationInput) (dto.NotificationResponse, error) {
	if strings.TrimSpace(input.UserUID) == "" {
		return dto.NotificationResponse{}, errors.New("notification target is required")
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(input.Message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	attrs := []attribute.KeyValue{
		attribute.String("notification.user_uid", input.UserUID),
		attribute.String("notification.type", input.Type),
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(attrs...))
	defer span.End()

	model := models.Notification{
		UserUID: input.UserUID,
		Type:    input.Type,
		Title:   strings.TrimSpace(input.Title),
		Message: cleanMessage,
		Data:    datatypes.JSONMap(input.Data),
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.broker.broadcast(input.UserUID, response)
	if err := s.publish(spanCtx, input.UserUID, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}

	s.sendPush(spanCtx, input)

	observability.NotificationsPublished().WithLabelValues(response.Type).Inc()

	return response, nil
}

// Broadcast delivers the same notification to several recipients. Each
// recipient gets their own persisted row and SSE event, while registered
// devices are covered by a single multicast push.
func (s *notificationService) Broadcast(ctx context.Context, userUIDs []string, input NotificationInput) ([]dto.NotificationResponse, error) {
	recipients := make([]string, 0, len(userUIDs))
	seen := make(map[string]struct{}, len(userUIDs))
	for _, uid := range userUIDs {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		recipients = append(recipients, uid)
	}
	if len(recipients) == 0 {
		return nil, errors.New("broadcast requires at least one recipient")
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(input.Message))
	if cleanMessage == "" {
		return nil, errors.New("notification message empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.broadcast", trace.WithAttributes(
		attribute.String("notification.type", input.Type),
		attribute.Int("notification.recipients", len(recipients)),
	))
	defer span.End()

	responses := make([]dto.NotificationResponse, 0, len(recipients))
	for _, uid := range recipients {
		model := models.Notification{
			UserUID: uid,
			Type:    input.Type,
			Title:   strings.TrimSpace(input.Title),
			Message: cleanMessage,
			Data:    datatypes.JSONMap(input.Data),
		}

		if err := s.repo.Create(spanCtx, &model); err != nil {
			span.RecordError(err)
			return responses, err
		}

		response := dto.NewNotificationResponse(model)
		s.broker.broadcast(uid, response)
		if err := s.publish(spanCtx, uid, response); err != nil {
			s.logger.Warn().Err(err).Str("user_uid", uid).Msg("failed to publish notification to broker")
		}

		observability.NotificationsPublished().WithLabelValues(response.Type).Inc()
		responses = append(responses, response)
	}

	s.sendMulticastPush(spanCtx, recipients, input)

	return responses, nil
}

// sendPush is best effort: a missing token, a disabled account, or a
// provider failure never fails the triggering operation.
func (s *notificationService) sendPush(ctx context.Context, input NotificationInput) {
	if s.push == nil {
		return
	}

	user, err := s.users.FindByUID(ctx, input.UserUID)
	if err != nil {
		s.logger.Debug().Err(err).Str("user_uid", input.UserUID).Msg("push skipped, target not found")
		return
	}
	if !user.NotificationsEnabled || user.FCMToken == "" {
		return
	}

	data := make(map[string]string, len(input.Data))
	for key, value := range input.Data {
		data[key] = fmt.Sprintf("%v", value)
	}

	if err := s.push.Send(ctx, user.FCMToken, input.Title, input.Message, data); err != nil {
		observability.PushMessages().WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("user_uid", input.UserUID).Msg("push delivery failed")
		return
	}

	observability.PushMessages().WithLabelValues("ok").Inc()
}

// sendMulticastPush shares sendPush's best-effort contract. Recipients
// without a registered device, and those who opted out, are dropped before
// the provider call.
func (s *notificationService) sendMulticastPush(ctx context.Context, userUIDs []string, input NotificationInput) {
	if s.push == nil {
		return
	}

	users, err := s.users.FindByUIDs(ctx, userUIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("multicast push skipped, recipient lookup failed")
		return
	}

	tokens := make([]string, 0, len(users))
	for _, user := range users {
		if user.NotificationsEnabled && user.FCMToken != "" {
			tokens = append(tokens, user.FCMToken)
		}
	}
	if len(tokens) == 0 {
		return
	}

	data := make(map[string]string, len(input.Data))
	for key, value := range input.Data {
		data[key] = fmt.Sprintf("%v", value)
	}

	delivered, err := s.push.SendMulticast(ctx, tokens, input.Title, input.Message, data)
	if err != nil {
		observability.PushMessages().WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Int("tokens", len(tokens)).Msg("multicast push delivery failed")
		return
	}

	observability.PushMessages().WithLabelValues("ok").Add(float64(delivered))
}

func (s *notificationService) List(ctx context.Context, userUID string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(userUID) == "" {
		return nil, errors.New("user uid is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userUID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userUID string) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.user_uid", userUID),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userUID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userUID)
}

func (s *notificationService) Subscribe(userUID string) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userUID, channel)
	observability.SSEClients().Inc()

	cleanup := func() {
		s.broker.unsubscribe(userUID, channel)
		observability.SSEClients().Dec()
	}

	return channel, cleanup
}

func (s *notificationService) publish(ctx context.Context, userUID string, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		UserUID:      userUID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "taskguru-notifications", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broker.broadcast(event.UserUID, event.Notification)
}

func (b *notificationBroker) subscribe(userUID string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userUID]; !exists {
		b.subscribers[userUID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userUID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userUID string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userUID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userUID)
		}
	}
}

func (b *notificationBroker) broadcast(userUID string, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[userUID]
	for ch := range subscribers {
		select {
		case ch <- notification:
		default:
		}
	}
}

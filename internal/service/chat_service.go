package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/observability"
	"github.com/taskguru/taskguru-api/internal/repository"
)

const (
	chatRedisTTL       = 30 * time.Minute
	chatSendBufferSize = 32
	previewRuneLimit   = 30
)

// Chat error conditions surfaced to handlers.
var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrChatForbidden = errors.New("not a member of this chat")
	ErrMessageEmpty  = errors.New("message is empty")
	ErrSelfChat      = errors.New("cannot start a chat with yourself")
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserUID       string
	ChatID        uint
	CorrelationID string
	Context       context.Context
}

// ChatService manages conversations, message delivery, and websocket fanout.
type ChatService interface {
	StartChat(ctx context.Context, userUID string, payload dto.ChatStartRequest) (dto.ChatResponse, error)
	ListConversations(ctx context.Context, userUID string) ([]dto.ConversationResponse, error)
	MarkChatRead(ctx context.Context, chatID uint, userUID string) error
	SendMessage(ctx context.Context, chatID uint, senderUID string, payload dto.MessageSendRequest) (dto.MessageResponse, error)
	History(ctx context.Context, chatID uint, userUID string, query dto.ChatHistoryQuery) ([]dto.MessageResponse, error)
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	Start(ctx context.Context)
}

type chatService struct {
	repo          repository.ChatRepository
	users         repository.UserRepository
	notifications NotificationService
	redis         *redis.Client
	redisStream   string
	redisCache    string
	nats          *nats.Conn
	natsSubject   string
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	sanitizer     *bluemonday.Policy
	hub           *chatHub
	nodeID        string
}

// chatHub keeps track of active websocket clients per chat room.
type chatHub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*chatClient]struct{}
	log   zerolog.Logger
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan dto.MessageResponse
	options ChatConnectionOptions
	service *chatService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type chatEvent struct {
	Source  string              `json:"source"`
	ChatID  uint                `json:"chat_id"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// NewChatService creates the chat service instance.
func NewChatService(repo repository.ChatRepository, users repository.UserRepository, notifications NotificationService, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	hub := &chatHub{
		rooms: make(map[uint]map[*chatClient]struct{}),
		log:   logger.With().Str("component", "chat_hub").Logger(),
	}

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":chat"
		cachePrefix = channelBase + ":chat:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		repo:          repo,
		users:         users,
		notifications: notifications,
		redis:         redisClient,
		redisStream:   streamChannel,
		redisCache:    cachePrefix,
		nats:          natsConn,
		natsSubject:   natsSubject,
		validator:     validate,
		logger:        logger.With().Str("component", "chat_service").Logger(),
		tracer:        otel.Tracer("github.com/taskguru/taskguru-api/internal/service/chat"),
		sanitizer:     sanitizer,
		hub:           hub,
		nodeID:        uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *chatService) StartChat(ctx context.Context, userUID string, payload dto.ChatStartRequest) (dto.ChatResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatResponse{}, err
	}

	other := strings.TrimSpace(payload.MemberUID)
	if other == userUID {
		return dto.ChatResponse{}, ErrSelfChat
	}

	membersInfo := datatypes.JSONMap{}
	if users, err := s.users.FindByUIDs(ctx, []string{userUID, other}); err == nil {
		for _, user := range users {
			membersInfo[user.UID] = map[string]interface{}{
				"name":  ResolveDisplayName(user),
				"photo": user.PhotoURL,
			}
		}
	}

	memberA, memberB := models.SortMembers(userUID, other)
	chat, err := s.repo.EnsureChat(ctx, &models.Chat{
		ChatKey:     models.ChatKeyFor(userUID, other),
		MemberA:     memberA,
		MemberB:     memberB,
		MembersInfo: membersInfo,
	})
	if err != nil {
		return dto.ChatResponse{}, err
	}

	return dto.NewChatResponse(chat), nil
}

// ListConversations assembles the caller's inbox. A failing per-chat query
// degrades that chat to its denormalized preview with unread 0; the rest of
// the list still renders.
func (s *chatService) ListConversations(ctx context.Context, userUID string) ([]dto.ConversationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "chat.list_conversations", trace.WithAttributes(
		attribute.String("chat.user_uid", userUID),
	))
	defer span.End()

	chats, err := s.repo.ListByMember(spanCtx, userUID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	conversations := make([]dto.ConversationResponse, 0, len(chats))
	for _, chat := range chats {
		conversation := dto.ConversationResponse{
			ChatID:          chat.ID,
			CounterpartUID:  chat.OtherMember(userUID),
			CounterpartName: s.resolveCounterpartName(spanCtx, chat, userUID),
			LastMessage:     truncatePreview(chat.LastMessageText),
			LastMessageAt:   chat.LastMessageAt,
		}

		latest, latestErr := s.repo.LatestMessage(spanCtx, chat.ID)
		unread, unreadErr := s.repo.UnreadCount(spanCtx, chat.ID, userUID)
		if latestErr != nil || unreadErr != nil {
			if latestErr != nil && !errors.Is(latestErr, gorm.ErrRecordNotFound) {
				s.logger.Warn().Err(latestErr).Uint("chat_id", chat.ID).Msg("conversation degraded to cached preview")
			}
			if unreadErr != nil {
				s.logger.Warn().Err(unreadErr).Uint("chat_id", chat.ID).Msg("unread count unavailable")
			}
			conversations = append(conversations, conversation)
			continue
		}

		preview := latest.Text
		if preview == "" && latest.ImageURL != "" {
			preview = "[image]"
		}
		conversation.LastMessage = truncatePreview(preview)
		conversation.LastMessageAt = &latest.CreatedAt
		conversation.UnreadCount = unread
		conversations = append(conversations, conversation)
	}

	// Newest conversation first; chats without messages sink to the bottom.
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if a.LastMessageAt == nil {
			return false
		}
		if b.LastMessageAt == nil {
			return true
		}
		return a.LastMessageAt.After(*b.LastMessageAt)
	})

	return conversations, nil
}

func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRuneLimit {
		return text
	}
	return string(runes[:previewRuneLimit])
}

func (s *chatService) resolveCounterpartName(ctx context.Context, chat models.Chat, userUID string) string {
	counterpart := chat.OtherMember(userUID)

	user, err := s.users.FindByUID(ctx, counterpart)
	if err == nil {
		return ResolveDisplayName(user)
	}

	// Fall back to the members info captured when the chat was created.
	if info, ok := chat.MembersInfo[counterpart].(map[string]interface{}); ok {
		if name, ok := info["name"].(string); ok && name != "" {
			return name
		}
	}

	return UnknownUserName
}

func (s *chatService) MarkChatRead(ctx context.Context, chatID uint, userUID string) error {
	chat, err := s.memberChat(ctx, chatID, userUID)
	if err != nil {
		return err
	}

	flipped, err := s.repo.MarkRead(ctx, chat, userUID)
	if err != nil {
		return err
	}

	if flipped > 0 {
		s.logger.Debug().Uint("chat_id", chatID).Int64("messages", flipped).Msg("chat marked read")
	}

	return nil
}

func (s *chatService) SendMessage(ctx context.Context, chatID uint, senderUID string, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	chat, err := s.memberChat(ctx, chatID, senderUID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if clean == "" && payload.ImageURL == "" {
		return dto.MessageResponse{}, ErrMessageEmpty
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.Int64("chat.id", int64(chatID)),
		attribute.String("chat.sender_uid", senderUID),
	))
	defer span.End()

	message := models.Message{
		ChatID:    chatID,
		SenderUID: senderUID,
		Text:      clean,
		ImageURL:  payload.ImageURL,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SaveMessage(spanCtx, chat, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(message)
	s.cacheLastMessage(spanCtx, response)
	s.hub.broadcast(chatID, response)
	if err := s.publish(spanCtx, chatID, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}

	s.notifyCounterpart(spanCtx, chat, senderUID, response)

	observability.ChatMessages().WithLabelValues("local").Inc()

	return response, nil
}

// notifyCounterpart is best effort: the message is already persisted and
// broadcast, so a notification failure is only logged.
func (s *chatService) notifyCounterpart(ctx context.Context, chat models.Chat, senderUID string, message dto.MessageResponse) {
	if s.notifications == nil {
		return
	}

	senderName := placeholderPerson
	if sender, err := s.users.FindByUID(ctx, senderUID); err == nil {
		senderName = ResolveDisplayName(sender)
	}

	body := message.Text
	if body == "" {
		body = "Sent you an image"
	}

	_, err := s.notifications.Publish(ctx, NotificationInput{
		UserUID: chat.OtherMember(senderUID),
		Type:    models.NotificationTypeMessage,
		Title:   fmt.Sprintf("New message from %s", senderName),
		Message: truncatePreview(body),
		Data: map[string]interface{}{
			"chat_id": chat.ID,
		},
	})
	if err != nil {
		s.logger.Debug().Err(err).Uint("chat_id", chat.ID).Msg("message notification skipped")
	}
}

func (s *chatService) History(ctx context.Context, chatID uint, userUID string, query dto.ChatHistoryQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	if _, err := s.memberChat(ctx, chatID, userUID); err != nil {
		return nil, err
	}

	before := time.Time{}
	if query.Before != nil {
		before = *query.Before
	}

	messages, err := s.repo.ListMessages(ctx, chatID, before, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *chatService) memberChat(ctx context.Context, chatID uint, userUID string) (models.Chat, error) {
	chat, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Chat{}, ErrChatNotFound
		}
		return models.Chat{}, err
	}

	if !chat.HasMember(userUID) {
		return models.Chat{}, ErrChatForbidden
	}

	return chat, nil
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	if _, err := s.memberChat(baseCtx, opts.ChatID, opts.UserUID); err != nil {
		s.logger.Warn().Err(err).Uint("chat_id", opts.ChatID).Str("user_uid", opts.UserUID).Msg("websocket rejected")
		_ = conn.Close()
		return
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.MessageResponse, chatSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.ChatConnections().Inc()

	if last := s.fetchLastMessage(baseCtx, opts.ChatID); last != nil {
		select {
		case client.send <- *last:
		default:
			s.logger.Debug().Uint("chat_id", opts.ChatID).Msg("dropping cached chat message due to slow consumer")
		}
	}

	go client.writer()
	client.reader()
}

func (s *chatService) cacheLastMessage(ctx context.Context, message dto.MessageResponse) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}

	key := fmt.Sprintf("%s:%d", s.redisCache, message.ChatID)
	if err := s.redis.Set(ctx, key, payload, chatRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (s *chatService) fetchLastMessage(ctx context.Context, chatID uint) *dto.MessageResponse {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%d", s.redisCache, chatID)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.MessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}

	return &message
}

func (s *chatService) publish(ctx context.Context, chatID uint, message dto.MessageResponse) error {
	event := chatEvent{
		Source:  s.nodeID,
		ChatID:  chatID,
		Message: message,
		SentAt:  time.Now().UTC(),
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

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "taskguru-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.ChatMessages().WithLabelValues("remote").Inc()
	s.hub.broadcast(event.ChatID, event.Message)
}

func (h *chatHub) register(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.ChatID
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.log.Debug().Uint("chat_id", room).Str("user_uid", client.options.UserUID).Msg("chat client connected")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.ChatID
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Debug().Uint("chat_id", room).Str("user_uid", client.options.UserUID).Msg("chat client disconnected")
}

func (h *chatHub) broadcast(chatID uint, message dto.MessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[chatID]
	for client := range clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn().Uint("chat_id", chatID).Str("user_uid", client.options.UserUID).Msg("dropping chat message for slow client")
		}
	}
}

func (c *chatClient) reader() {
	defer c.close()

	connCtx := c.baseCtx
	if connCtx == nil {
		connCtx = context.Background()
	}

	for {
		var payload dto.MessageSendRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		response, err := c.service.SendMessage(connCtx, c.options.ChatID, c.options.UserUID, payload)
		if err != nil {
			c.service.logger.Warn().Err(err).Msg("failed to process chat message")
			continue
		}

		select {
		case <-c.closed:
			return
		default:
		}

		select {
		case c.send <- response:
		default:
			c.service.logger.Warn().Msg("sender queue full, dropping ack message")
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		observability.ChatConnections().Dec()
		_ = c.conn.Close()
	})
}

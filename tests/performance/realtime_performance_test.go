package performance_test

import (
	"bufio"
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/handler"
	"github.com/taskguru/taskguru-api/internal/middleware"
	"github.com/taskguru/taskguru-api/internal/service"
)

func TestChatWebsocketP95Under250ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	chatHandler := handler.NewChatHandler(&stubChatService{}, zerolog.Nop())

	chatGroup := app.Group("/api/v1/chats", func(c *fiber.Ctx) error {
		c.Locals("uid", "uid-perf")
		c.Locals("user_role", "client")
		return c.Next()
	})
	chatHandler.Register(chatGroup)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/chats/1/ws"
	clients := 500
	durations := make([]time.Duration, 0, clients)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		_, _, _ = conn.ReadMessage()
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected websocket P95 <= 250ms, got %s", p95)
	}
}

func TestNotificationSSEP95Under300ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	notifications := handler.NewNotificationHandler(&stubNotificationService{}, &stubFeedService{}, zerolog.Nop(), 30*time.Second)

	notificationsGroup := app.Group("/api/v1/notifications", func(c *fiber.Ctx) error {
		c.Locals("uid", "uid-perf")
		return c.Next()
	})
	notifications.Register(notificationsGroup)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	client := &http.Client{Timeout: 5 * time.Second}
	clients := 200
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/notifications/stream", nil)
		if err != nil {
			t.Fatalf("build request failed: %v", err)
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("sse request failed: %v", err)
		}

		reader := bufio.NewReader(resp.Body)
		deadline := time.Now().Add(2 * time.Second)

		for {
			if time.Now().After(deadline) {
				t.Fatalf("sse response timed out for client %d", i)
			}
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read sse line: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				durations = append(durations, time.Since(start))
				break
			}
		}

		resp.Body.Close()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 300*time.Millisecond {
		t.Fatalf("expected SSE P95 <= 300ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

type stubChatService struct{}

func (s *stubChatService) StartChat(context.Context, string, dto.ChatStartRequest) (dto.ChatResponse, error) {
	return dto.ChatResponse{ID: 1}, nil
}

func (s *stubChatService) ListConversations(context.Context, string) ([]dto.ConversationResponse, error) {
	return []dto.ConversationResponse{}, nil
}

func (s *stubChatService) MarkChatRead(context.Context, uint, string) error {
	return nil
}

func (s *stubChatService) SendMessage(context.Context, uint, string, dto.MessageSendRequest) (dto.MessageResponse, error) {
	return dto.MessageResponse{ID: 1}, nil
}

func (s *stubChatService) History(context.Context, uint, string, dto.ChatHistoryQuery) ([]dto.MessageResponse, error) {
	return []dto.MessageResponse{}, nil
}

func (s *stubChatService) ServeConnection(conn *fiberws.Conn, _ service.ChatConnectionOptions) {
	_ = conn.WriteMessage(fiberws.TextMessage, []byte(`{"type":"welcome"}`))
	_ = conn.Close()
}

func (s *stubChatService) Start(context.Context) {}

type stubNotificationService struct{}

func (s *stubNotificationService) Publish(_ context.Context, input service.NotificationInput) (dto.NotificationResponse, error) {
	return dto.NotificationResponse{ID: 1, Type: input.Type, Message: input.Message}, nil
}

func (s *stubNotificationService) Broadcast(_ context.Context, userUIDs []string, input service.NotificationInput) ([]dto.NotificationResponse, error) {
	responses := make([]dto.NotificationResponse, len(userUIDs))
	for i := range userUIDs {
		responses[i] = dto.NotificationResponse{ID: uint(i + 1), Type: input.Type, Message: input.Message}
	}
	return responses, nil
}

func (s *stubNotificationService) List(context.Context, string, int, int) ([]dto.NotificationResponse, error) {
	return []dto.NotificationResponse{{ID: 1, Type: "task_update", Message: "hello", CreatedAt: time.Now()}}, nil
}

func (s *stubNotificationService) MarkRead(_ context.Context, id uint, _ string) (dto.NotificationResponse, error) {
	return dto.NotificationResponse{ID: id, Type: "task_update", Message: "hello", Read: true, CreatedAt: time.Now()}, nil
}

func (s *stubNotificationService) MarkAllRead(context.Context, string) (int64, error) {
	return 0, nil
}

func (s *stubNotificationService) Subscribe(string) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse, 1)
	ch <- dto.NotificationResponse{ID: 99, Type: "application", Message: "new applicant", CreatedAt: time.Now()}
	cleanup := func() { close(ch) }
	return ch, cleanup
}

func (s *stubNotificationService) Start(context.Context) {}

type stubFeedService struct{}

func (s *stubFeedService) Feed(context.Context, string, string) (dto.FeedResponse, error) {
	return dto.FeedResponse{Items: []dto.FeedItem{}, Total: 0}, nil
}

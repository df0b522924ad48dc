package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

type chatFixture struct {
	db    *gorm.DB
	chats ChatService
	alice models.User
	bob   models.User
}

func newChatFixture(t *testing.T) chatFixture {
	t.Helper()

	db := setupServiceDB(t)
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	svc := NewChatService(chatRepo, userRepo, nil, nil, "", nil, testValidator(), zerolog.Nop())

	return chatFixture{
		db:    db,
		chats: svc,
		alice: seedUser(t, db, "uid-alice", models.RoleClient, "alice@example.com", "Alice", "Anders"),
		bob:   seedUser(t, db, "uid-bob", models.RoleTasker, "bob@example.com", "Bob", "Brown"),
	}
}

func TestChatServiceStartChatIsIdempotent(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	first, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: f.bob.UID})
	require.NoError(t, err)

	// Starting from the other side lands on the same chat.
	second, err := f.chats.StartChat(ctx, f.bob.UID, dto.ChatStartRequest{MemberUID: f.alice.UID})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&models.Chat{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestChatServiceStartChatSnapshotsBothMembers(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	started, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: f.bob.UID})
	require.NoError(t, err)

	var chat models.Chat
	require.NoError(t, f.db.First(&chat, started.ID).Error)
	require.Len(t, chat.MembersInfo, 2)

	aliceInfo, ok := chat.MembersInfo[f.alice.UID].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Alice Anders", aliceInfo["name"])

	bobInfo, ok := chat.MembersInfo[f.bob.UID].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Bob Brown", bobInfo["name"])
}

func TestChatServiceRejectsSelfChat(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chats.StartChat(context.Background(), f.alice.UID, dto.ChatStartRequest{MemberUID: f.alice.UID})
	require.ErrorIs(t, err, ErrSelfChat)
}

func TestChatServiceUnreadFlow(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	chat, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: f.bob.UID})
	require.NoError(t, err)

	for _, text := range []string{"Hello Bob", "Are you around?", "The gate code is 4417"} {
		_, err := f.chats.SendMessage(ctx, chat.ID, f.alice.UID, dto.MessageSendRequest{Text: text})
		require.NoError(t, err)
	}

	// The sender's own inbox shows no unread messages.
	aliceInbox, err := f.chats.ListConversations(ctx, f.alice.UID)
	require.NoError(t, err)
	require.Len(t, aliceInbox, 1)
	require.EqualValues(t, 0, aliceInbox[0].UnreadCount)

	bobInbox, err := f.chats.ListConversations(ctx, f.bob.UID)
	require.NoError(t, err)
	require.Len(t, bobInbox, 1)
	require.EqualValues(t, 3, bobInbox[0].UnreadCount)
	require.Equal(t, "Alice Anders", bobInbox[0].CounterpartName)
	require.Equal(t, "The gate code is 4417", bobInbox[0].LastMessage)

	require.NoError(t, f.chats.MarkChatRead(ctx, chat.ID, f.bob.UID))

	bobInbox, err = f.chats.ListConversations(ctx, f.bob.UID)
	require.NoError(t, err)
	require.EqualValues(t, 0, bobInbox[0].UnreadCount)

	// Reading does not touch the counterpart's counter.
	aliceInbox, err = f.chats.ListConversations(ctx, f.alice.UID)
	require.NoError(t, err)
	require.EqualValues(t, 0, aliceInbox[0].UnreadCount)
}

func TestChatServicePreviewTruncation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	chat, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: f.bob.UID})
	require.NoError(t, err)

	long := strings.Repeat("water the plants twice a day ", 4)
	_, err = f.chats.SendMessage(ctx, chat.ID, f.alice.UID, dto.MessageSendRequest{Text: long})
	require.NoError(t, err)

	inbox, err := f.chats.ListConversations(ctx, f.bob.UID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.Len(t, []rune(inbox[0].LastMessage), 30)
	require.True(t, strings.HasPrefix(long, inbox[0].LastMessage))
}

func TestChatServiceConversationsNewestFirst(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	carol := seedUser(t, f.db, "uid-carol", models.RoleTasker, "carol@example.com", "Carol", "Carter")
	dave := seedUser(t, f.db, "uid-dave", models.RoleTasker, "dave@example.com", "Dave", "Dunn")

	withBob, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: f.bob.UID})
	require.NoError(t, err)
	withCarol, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: carol.UID})
	require.NoError(t, err)
	_, err = f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: dave.UID})
	require.NoError(t, err)

	_, err = f.chats.SendMessage(ctx, withBob.ID, f.bob.UID, dto.MessageSendRequest{Text: "earlier"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = f.chats.SendMessage(ctx, withCarol.ID, carol.UID, dto.MessageSendRequest{Text: "later"})
	require.NoError(t, err)

	inbox, err := f.chats.ListConversations(ctx, f.alice.UID)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	require.Equal(t, carol.UID, inbox[0].CounterpartUID)
	require.Equal(t, f.bob.UID, inbox[1].CounterpartUID)
	// The chat with no messages yet sinks to the bottom.
	require.Equal(t, dave.UID, inbox[2].CounterpartUID)
	require.Nil(t, inbox[2].LastMessageAt)
}

func TestChatServiceCounterpartNameFallbacks(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Only a display name set.
	nicknameOnly := models.User{UID: "uid-nick", Role: models.RoleTasker, Email: "nick@example.com", PasswordHash: "x", DisplayName: "Handy Nick", IsActive: true}
	require.NoError(t, f.db.Create(&nicknameOnly).Error)

	chat, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: nicknameOnly.UID})
	require.NoError(t, err)
	_, err = f.chats.SendMessage(ctx, chat.ID, nicknameOnly.UID, dto.MessageSendRequest{Text: "On my way"})
	require.NoError(t, err)

	inbox, err := f.chats.ListConversations(ctx, f.alice.UID)
	require.NoError(t, err)
	require.Equal(t, "Handy Nick", inbox[0].CounterpartName)

	// A vanished account falls back to the snapshot taken at chat creation.
	ghostChat := models.Chat{
		ChatKey: models.ChatKeyFor(f.alice.UID, "uid-ghost"),
		MemberA: f.alice.UID,
		MemberB: "uid-ghost",
		MembersInfo: datatypes.JSONMap{
			"uid-ghost": map[string]interface{}{"name": "Old Ghost"},
		},
	}
	require.NoError(t, f.db.Create(&ghostChat).Error)

	inbox, err = f.chats.ListConversations(ctx, f.alice.UID)
	require.NoError(t, err)

	names := map[string]string{}
	for _, conversation := range inbox {
		names[conversation.CounterpartUID] = conversation.CounterpartName
	}
	require.Equal(t, "Old Ghost", names["uid-ghost"])

	// No snapshot either.
	bareChat := models.Chat{
		ChatKey: models.ChatKeyFor(f.alice.UID, "uid-missing"),
		MemberA: f.alice.UID,
		MemberB: "uid-missing",
	}
	require.NoError(t, f.db.Create(&bareChat).Error)

	inbox, err = f.chats.ListConversations(ctx, f.alice.UID)
	require.NoError(t, err)
	for _, conversation := range inbox {
		if conversation.CounterpartUID == "uid-missing" {
			require.Equal(t, UnknownUserName, conversation.CounterpartName)
		}
	}
}

func TestChatServiceMembershipEnforced(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	stranger := seedUser(t, f.db, "uid-eve", models.RoleTasker, "eve@example.com", "Eve", "")

	chat, err := f.chats.StartChat(ctx, f.alice.UID, dto.ChatStartRequest{MemberUID: f.bob.UID})
	require.NoError(t, err)

	_, err = f.chats.SendMessage(ctx, chat.ID, stranger.UID, dto.MessageSendRequest{Text: "Let me in"})
	require.ErrorIs(t, err, ErrChatForbidden)

	require.ErrorIs(t, f.chats.MarkChatRead(ctx, chat.ID, stranger.UID), ErrChatForbidden)

	_, err = f.chats.History(ctx, chat.ID, stranger.UID, dto.ChatHistoryQuery{})
	require.ErrorIs(t, err, ErrChatForbidden)

	_, err = f.chats.SendMessage(ctx, chat.ID, f.alice.UID, dto.MessageSendRequest{})
	require.ErrorIs(t, err, ErrMessageEmpty)
}

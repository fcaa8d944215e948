package bot

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"bharat-rewards/internal/config"
	"bharat-rewards/internal/handler"
	"bharat-rewards/internal/model"
)

func newOfflineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func messageContext(b *tele.Bot, chatID int64, chatType tele.ChatType, senderID int64) tele.Context {
	return b.NewContext(tele.Update{
		Message: &tele.Message{
			Text:   "/me",
			Sender: &tele.User{ID: senderID, Username: "player"},
			Chat:   &tele.Chat{ID: chatID, Type: chatType},
		},
	})
}

// TestWhitelistEnforcementProperty checks a chat is allowed iff it is listed.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatIDs := rapid.SliceOfN(rapid.Int64Range(-1000000000, -1), 1, 10).Draw(t, "chatIDs")
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chatIDs}}

		testChatID := rapid.Int64Range(-1000000000, -1).Draw(t, "testChatID")

		if got, want := cfg.IsChatAllowed(testChatID), slices.Contains(chatIDs, testChatID); got != want {
			t.Fatalf("chat %d in %v: expected allowed=%v, got %v", testChatID, chatIDs, want, got)
		}

		known := chatIDs[rapid.IntRange(0, len(chatIDs)-1).Draw(t, "knownIndex")]
		if !cfg.IsChatAllowed(known) {
			t.Fatalf("listed chat %d should be allowed", known)
		}
	})
}

// TestEmptyWhitelistAllowsAllProperty checks an empty whitelist admits every chat.
func TestEmptyWhitelistAllowsAllProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{}
		chatID := rapid.Int64().Draw(t, "chatID")
		if !cfg.IsChatAllowed(chatID) {
			t.Fatalf("chat %d should be allowed with an empty whitelist", chatID)
		}
	})
}

func TestWhitelistMiddleware_GroupChats(t *testing.T) {
	b := newOfflineBot(t)
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}

	var calls int
	next := func(c tele.Context) error {
		calls++
		return nil
	}
	mw := WhitelistMiddleware(cfg)(next)

	require.NoError(t, mw(messageContext(b, -200, tele.ChatGroup, 9001)))
	assert.Equal(t, 0, calls, "non-whitelisted group must be ignored")
	assert.False(t, IsPrivateUserAllowed(9001))

	require.NoError(t, mw(messageContext(b, -100, tele.ChatGroup, 9001)))
	assert.Equal(t, 1, calls)
	assert.True(t, IsPrivateUserAllowed(9001), "group members unlock private chat")

	require.NoError(t, mw(messageContext(b, 9001, tele.ChatPrivate, 9001)))
	assert.Equal(t, 2, calls)

	require.NoError(t, mw(messageContext(b, 9002, tele.ChatPrivate, 9002)))
	assert.Equal(t, 2, calls, "unknown private user must be ignored")
}

func TestWhitelistMiddleware_EmptyWhitelistAllowsPrivate(t *testing.T) {
	b := newOfflineBot(t)

	var calls int
	mw := WhitelistMiddleware(&config.Config{})(func(c tele.Context) error {
		calls++
		return nil
	})

	require.NoError(t, mw(messageContext(b, 9100, tele.ChatPrivate, 9100)))
	assert.Equal(t, 1, calls)
}

func TestAuthMiddleware_StoresUser(t *testing.T) {
	b := newOfflineBot(t)
	want := &model.User{ID: "u-1", Name: "Asha", Role: model.RoleUser}

	var gotKey string
	current := func(ctx context.Context, sessionKey string) (*model.User, error) {
		gotKey = sessionKey
		return want, nil
	}

	var seen *model.User
	mw := AuthMiddleware(current)(func(c tele.Context) error {
		seen = handler.CurrentUser(c)
		return nil
	})

	require.NoError(t, mw(messageContext(b, 42, tele.ChatPrivate, 42)))
	assert.Equal(t, "tg:42", gotKey)
	assert.Same(t, want, seen)
}

func TestAdminMiddleware_AllowsAdmin(t *testing.T) {
	b := newOfflineBot(t)
	c := messageContext(b, 7, tele.ChatPrivate, 7)
	c.Set(handler.ContextUserKey, &model.User{ID: "admin-1", Role: model.RoleAdmin})

	var called bool
	mw := AdminMiddleware()(func(c tele.Context) error {
		called = true
		return nil
	})

	require.NoError(t, mw(c))
	assert.True(t, called)
}

// TestAdminRoleProperty checks only the ADMIN role passes the admin check.
func TestAdminRoleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		role := rapid.SampledFrom([]model.Role{model.RoleUser, model.RoleAdmin, "", "admin"}).Draw(t, "role")
		u := &model.User{ID: "u", Role: role}
		if u.IsAdmin() != (role == model.RoleAdmin) {
			t.Fatalf("role %q: IsAdmin=%v", role, u.IsAdmin())
		}
	})
}

func TestRedactCredentials(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/login a@x.com secret", "/login [redacted]"},
		{"/login@BharatRewardsBot a@x.com secret", "/login@BharatRewardsBot [redacted]"},
		{"/register a@x.com pw Asha Rao", "/register [redacted]"},
		{"/LOGIN a@x.com pw", "/LOGIN [redacted]"},
		{"/login", "/login"},
		{"/answer 42", "/answer 42"},
		{"hello there", "hello there"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, redactCredentials(tt.text), tt.text)
	}
}

// Package bot provides middleware for the Telegram bot.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/config"
	"bharat-rewards/internal/handler"
	"bharat-rewards/internal/model"
	"bharat-rewards/internal/repository"
)

// privateUserCache tracks users who have used the bot in whitelisted groups.
// This allows them to use the bot in private chat.
var (
	privateUserCache = make(map[int64]bool)
	privateUserMu    sync.RWMutex
)

// AllowPrivateUser marks a user as allowed to use private chat.
func AllowPrivateUser(userID int64) {
	privateUserMu.Lock()
	defer privateUserMu.Unlock()
	privateUserCache[userID] = true
}

// IsPrivateUserAllowed checks if a user is allowed to use private chat.
func IsPrivateUserAllowed(userID int64) bool {
	privateUserMu.RLock()
	defer privateUserMu.RUnlock()
	return privateUserCache[userID]
}

// WhitelistMiddleware creates a middleware that checks if the chat is whitelisted.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				// Allow if user has previously used bot in whitelisted group
				if IsPrivateUserAllowed(sender.ID) {
					return next(c)
				}

				// If whitelist is empty, allow all private chats
				if len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}

				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not in whitelist cache")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			AllowPrivateUser(sender.ID)

			return next(c)
		}
	}
}

// CurrentUserFunc resolves the user logged in under a session key.
type CurrentUserFunc func(ctx context.Context, sessionKey string) (*model.User, error)

// AuthMiddleware creates a middleware that requires a logged-in session and
// stores the user on the context for handlers.
func AuthMiddleware(current CurrentUserFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil {
				return nil
			}

			user, err := current(context.Background(), handler.SessionKey(c))
			if err != nil {
				if errors.Is(err, repository.ErrNoSession) {
					return c.Reply("🔒 Please /login or /register first")
				}
				log.Error().Err(err).Msg("Failed to load session")
				return c.Reply("❌ Could not load your account, please try again later")
			}

			c.Set(handler.ContextUserKey, user)
			return next(c)
		}
	}
}

// AdminMiddleware creates a middleware that requires the logged-in user to
// have the ADMIN role. It must run after AuthMiddleware.
func AdminMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := handler.CurrentUser(c)
			if !user.IsAdmin() {
				evt := log.Warn().Str("command", c.Text())
				if user != nil {
					evt = evt.Str("user_id", user.ID)
				}
				evt.Msg("Non-admin attempted admin command")
				return c.Reply("❌ Permission denied: admin only")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", redactCredentials(c.Text())).
				Msg("Received message")

			return next(c)
		}
	}
}

// credentialCommands carry a password in their payload.
var credentialCommands = map[string]bool{
	"/login":    true,
	"/register": true,
}

// redactCredentials hides the payload of commands that carry a password.
func redactCredentials(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return text
	}
	command, _, _ := strings.Cut(fields[0], "@")
	if !credentialCommands[strings.ToLower(command)] {
		return text
	}
	return fields[0] + " [redacted]"
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}

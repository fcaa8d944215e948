// Package handler provides Telegram bot command handlers.
package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/model"
)

// ContextUserKey is where the auth middleware stores the logged-in user.
const ContextUserKey = "user"

// SessionKey returns the session key bound to the sender of c.
func SessionKey(c tele.Context) string {
	sender := c.Sender()
	if sender == nil {
		return ""
	}
	return SessionKeyFor(sender.ID)
}

// SessionKeyFor returns the session key for a Telegram user id.
func SessionKeyFor(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}

// CurrentUser returns the user stored on c by the auth middleware.
func CurrentUser(c tele.Context) *model.User {
	u, _ := c.Get(ContextUserKey).(*model.User)
	return u
}

// formatRupees renders a currency amount.
func formatRupees(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

// displayName falls back to the email when the name is blank.
func displayName(u *model.User) string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// shortID trims uuids for display; commands accept any unique prefix of
// at least this length.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveID matches ref against ids exactly or as a unique prefix.
func resolveID(ids []string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("missing id")
	}
	var match string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", fmt.Errorf("id %q is ambiguous", ref)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("no match for id %q", ref)
	}
	return match, nil
}

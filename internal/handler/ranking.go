package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/service"
)

// RankingHandler handles the leaderboard command.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// HandleTop handles the /top command.
// Displays the top 10 players by points.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	users, err := h.rankingService.GetTopUsers(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, please try again later")
	}

	if len(users) == 0 {
		return c.Reply("📊 No players yet")
	}

	msg := "🏆 Leaderboard TOP 10\n"
	msg += "━━━━━━━━━━━━━━━\n"

	medals := []string{"🥇", "🥈", "🥉"}
	for i := range users {
		rank := fmt.Sprintf("%d.", i+1)
		if i < 3 {
			rank = medals[i]
		}
		msg += fmt.Sprintf("%s %s: %d pts (%d solved)\n", rank, displayName(&users[i]), users[i].Points, users[i].SolvedCount)
	}

	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/repository"
	"bharat-rewards/internal/service"
)

// RedeemHandler handles point redemption commands.
type RedeemHandler struct {
	redeemService *service.RedeemService
	adminService  *service.AdminService
}

// NewRedeemHandler creates a new RedeemHandler.
func NewRedeemHandler(redeemService *service.RedeemService, adminService *service.AdminService) *RedeemHandler {
	return &RedeemHandler{
		redeemService: redeemService,
		adminService:  adminService,
	}
}

// HandleRedeem handles the /redeem command.
// Format: /redeem <points>. Without arguments the current terms are shown.
func (h *RedeemHandler) HandleRedeem(c tele.Context) error {
	ctx := context.Background()
	user := CurrentUser(c)
	if user == nil {
		return nil
	}

	args := c.Args()
	if len(args) == 0 {
		settings, err := h.adminService.GetSettings(ctx)
		if err != nil {
			return c.Reply("❌ Could not load redemption terms, please try again later")
		}
		return c.Reply(fmt.Sprintf(
			"💱 Redemption\n"+
				"━━━━━━━━━━━━━━━\n"+
				"Minimum: %d points\n"+
				"Rate: %.2f points = ₹1\n"+
				"Your points: %d (≈ %s)\n"+
				"━━━━━━━━━━━━━━━\n"+
				"Usage: /redeem <points>",
			settings.MinRedeemPoints, settings.CurrencyRate, user.Points,
			formatRupees(settings.PointsToCurrency(user.Points)),
		))
	}

	points, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || points <= 0 {
		return c.Reply("❌ Points must be a positive number")
	}

	req, err := h.redeemService.Request(ctx, user.ID, points)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBelowMinimum):
			settings, _ := h.adminService.GetSettings(ctx)
			return c.Reply(fmt.Sprintf("❌ You need to redeem at least %d points", settings.MinRedeemPoints))
		case errors.Is(err, service.ErrInsufficientPoints):
			return c.Reply(fmt.Sprintf("❌ Not enough points. You have %d", user.Points))
		case errors.Is(err, service.ErrUserBusy):
			return c.Reply("⏳ Another operation is in progress, please retry")
		default:
			log.Error().Err(err).Str("user_id", user.ID).Msg("Redeem request failed")
			return c.Reply("❌ Redemption failed, please try again later")
		}
	}

	return c.Reply(fmt.Sprintf(
		"✅ Redeem request %s filed\n💎 %d points → %s\n⏳ Waiting for admin approval",
		shortID(req.ID), req.Points, formatRupees(req.Amount),
	))
}

// HandleMyRedeems handles the /myredeems command.
func (h *RedeemHandler) HandleMyRedeems(c tele.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return nil
	}

	requests, err := h.redeemService.ListByUser(context.Background(), user.ID)
	if err != nil {
		return c.Reply("❌ Could not load your requests, please try again later")
	}
	if len(requests) == 0 {
		return c.Reply("📭 No redeem requests yet")
	}

	return c.Reply("🧾 Your redeem requests\n━━━━━━━━━━━━━━━\n" + formatRequests(requests, false))
}

func formatRequests(requests []model.RedeemRequest, withUser bool) string {
	icons := map[model.RedeemStatus]string{
		model.RedeemPending:  "⏳",
		model.RedeemApproved: "✅",
		model.RedeemRejected: "❌",
	}
	msg := ""
	for _, r := range requests {
		line := fmt.Sprintf("%s %s %d pts → %s", icons[r.Status], shortID(r.ID), r.Points, formatRupees(r.Amount))
		if withUser {
			line += " · " + r.UserName
		}
		msg += line + " · " + r.CreatedAt.Format("2006-01-02") + "\n"
	}
	return msg
}

// requestNotFound reports whether err means the request id did not resolve.
func requestNotFound(err error) bool {
	return errors.Is(err, repository.ErrRedeemNotFound)
}

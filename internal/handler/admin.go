package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
	"bharat-rewards/internal/service"
)

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	adminService  *service.AdminService
	redeemService *service.RedeemService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService, redeemService *service.RedeemService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		redeemService: redeemService,
	}
}

// logAdmin records an admin operation.
func logAdmin(c tele.Context, operation string) *zerolog.Event {
	e := log.Info().Str("operation", operation)
	if admin := CurrentUser(c); admin != nil {
		e = e.Str("admin_id", admin.ID)
	}
	return e
}

// HandleUsers handles the /admin_users command.
func (h *AdminHandler) HandleUsers(c tele.Context) error {
	users, err := h.adminService.ListUsers(context.Background())
	if err != nil {
		return c.Reply("❌ Could not load users")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Users (%d)\n━━━━━━━━━━━━━━━\n", len(users))
	for i := range users {
		u := &users[i]
		role := ""
		if u.IsAdmin() {
			role = " 👑"
		}
		fmt.Fprintf(&b, "%s%s · %s · %d pts · %s\n", displayName(u), role, u.Email, u.Points, formatRupees(u.WalletBalance))
	}
	return c.Reply(b.String())
}

// HandleRequests handles the /admin_requests command.
// Format: /admin_requests [PENDING|APPROVED|REJECTED|ALL]
func (h *AdminHandler) HandleRequests(c tele.Context) error {
	status := model.RedeemPending
	if args := c.Args(); len(args) > 0 {
		switch s := strings.ToUpper(args[0]); s {
		case "ALL":
			status = ""
		case string(model.RedeemPending), string(model.RedeemApproved), string(model.RedeemRejected):
			status = model.RedeemStatus(s)
		default:
			return c.Reply("❌ usage: /admin_requests [PENDING|APPROVED|REJECTED|ALL]")
		}
	}

	requests, err := h.redeemService.List(context.Background(), status)
	if err != nil {
		return c.Reply("❌ Could not load requests")
	}
	if len(requests) == 0 {
		return c.Reply("📭 No matching requests")
	}
	return c.Reply("🧾 Redeem requests\n━━━━━━━━━━━━━━━\n" + formatRequests(requests, true) + "\n/approve <id> · /reject <id>")
}

// resolveRequest finds the request referenced by the first argument.
func (h *AdminHandler) resolveRequest(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing request id")
	}
	requests, err := h.redeemService.List(ctx, "")
	if err != nil {
		return "", err
	}
	ids := make([]string, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	return resolveID(ids, args[0])
}

// HandleApprove handles the /approve command.
// Format: /approve <request id>
func (h *AdminHandler) HandleApprove(c tele.Context) error {
	return h.decide(c, "approve", h.redeemService.Approve)
}

// HandleReject handles the /reject command.
// Format: /reject <request id>
func (h *AdminHandler) HandleReject(c tele.Context) error {
	return h.decide(c, "reject", h.redeemService.Reject)
}

func (h *AdminHandler) decide(c tele.Context, op string, fn func(context.Context, string) (*model.RedeemRequest, error)) error {
	ctx := context.Background()

	id, err := h.resolveRequest(ctx, c.Args())
	if err != nil {
		return c.Reply(fmt.Sprintf("❌ %v\nusage: /%s <id>", err, op))
	}

	req, err := fn(ctx, id)
	if err != nil {
		switch {
		case requestNotFound(err):
			return c.Reply("❌ Request not found")
		case errors.Is(err, repository.ErrRedeemFinalized):
			return c.Reply("ℹ️ That request was already decided")
		case req == nil && errors.Is(err, service.ErrUserBusy):
			return c.Reply("⏳ The user is busy, the request is still pending: try again")
		case req != nil:
			// The decision is stored but the follow-up balance change failed.
			log.Error().Err(err).Str("request_id", id).Msg("Redeem follow-up failed")
			return c.Reply(fmt.Sprintf("⚠️ Request %s is %s but the balance update failed: check the user manually", shortID(id), req.Status))
		default:
			log.Error().Err(err).Str("request_id", id).Msg("Redeem decision failed")
			return c.Reply("❌ Operation failed")
		}
	}

	logAdmin(c, op).Str("request_id", req.ID).Str("user_id", req.UserID).Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("✅ Request %s %s · %s · %d pts → %s", shortID(req.ID), req.Status, req.UserName, req.Points, formatRupees(req.Amount)))
}

// parseSettingsArgs parses "<minRedeemPoints> <pointsPerQuestion> <currencyRate>".
func parseSettingsArgs(args []string) (model.AppSettings, error) {
	if len(args) != 3 {
		return model.AppSettings{}, fmt.Errorf("usage: /admin_settings <min_points> <points_per_question> <currency_rate>")
	}
	minPoints, err1 := strconv.ParseInt(args[0], 10, 64)
	perQuestion, err2 := strconv.ParseInt(args[1], 10, 64)
	rate, err3 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return model.AppSettings{}, fmt.Errorf("all values must be numbers")
	}
	return model.AppSettings{MinRedeemPoints: minPoints, PointsPerQuestion: perQuestion, CurrencyRate: rate}, nil
}

// HandleSettings handles the /admin_settings command.
// Without arguments the current settings are shown.
// Format: /admin_settings <min_points> <points_per_question> <currency_rate>
func (h *AdminHandler) HandleSettings(c tele.Context) error {
	ctx := context.Background()

	if len(c.Args()) == 0 {
		s, err := h.adminService.GetSettings(ctx)
		if err != nil {
			return c.Reply("❌ Could not load settings")
		}
		return c.Reply(fmt.Sprintf(
			"⚙️ Settings\n"+
				"━━━━━━━━━━━━━━━\n"+
				"Min redeem points: %d\n"+
				"Points per question: %d\n"+
				"Currency rate: %.2f points = ₹1",
			s.MinRedeemPoints, s.PointsPerQuestion, s.CurrencyRate,
		))
	}

	settings, err := parseSettingsArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}
	if err := h.adminService.UpdateSettings(ctx, settings); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return c.Reply("❌ All values must be greater than zero")
		}
		return c.Reply("❌ Could not save settings")
	}

	logAdmin(c, "settings").Msg("Admin operation executed")
	return c.Reply("✅ Settings saved")
}

// parseQuestionArgs parses "<CATEGORY> <question> | <answer> [| opt1; opt2; opt3; opt4]".
func parseQuestionArgs(payload string) (model.Question, error) {
	usage := fmt.Errorf("usage: /addq <CATEGORY> <question> | <answer> [| opt1; opt2; opt3; opt4]")

	head, rest, ok := strings.Cut(strings.TrimSpace(payload), " ")
	if !ok {
		return model.Question{}, usage
	}
	category, err := model.ParseCategory(head)
	if err != nil {
		return model.Question{}, err
	}

	parts := strings.Split(rest, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return model.Question{}, usage
	}

	q := model.Question{
		Type:          category,
		QuestionText:  strings.TrimSpace(parts[0]),
		CorrectAnswer: strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		for _, opt := range strings.Split(parts[2], ";") {
			if opt = strings.TrimSpace(opt); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
	}
	return q, nil
}

// HandleAddQuestion handles the /addq command.
func (h *AdminHandler) HandleAddQuestion(c tele.Context) error {
	q, err := parseQuestionArgs(c.Message().Payload)
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}

	added, err := h.adminService.AddQuestion(context.Background(), q)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrUnknownCategory):
			return c.Reply("❌ Unknown category")
		case errors.Is(err, service.ErrInvalidInput):
			return c.Reply(fmt.Sprintf("❌ Invalid question. QUIZ questions need %d options including the answer.", quiz.OptionCount))
		default:
			return c.Reply("❌ Could not save the question")
		}
	}

	logAdmin(c, "add_question").Str("question_id", added.ID).Str("category", string(added.Type)).Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("✅ Question %s added to %s", shortID(added.ID), added.Type))
}

// HandleQuestions handles the /questions command.
// Format: /questions [category]
func (h *AdminHandler) HandleQuestions(c tele.Context) error {
	var category model.Category
	if args := c.Args(); len(args) > 0 {
		parsed, err := model.ParseCategory(args[0])
		if err != nil {
			return c.Reply("❌ " + err.Error())
		}
		category = parsed
	}

	questions, err := h.adminService.ListQuestions(context.Background(), category)
	if err != nil {
		return c.Reply("❌ Could not load questions")
	}
	if len(questions) == 0 {
		return c.Reply("📭 No custom questions")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 Custom questions (%d)\n━━━━━━━━━━━━━━━\n", len(questions))
	for _, q := range questions {
		fmt.Fprintf(&b, "%s [%s] %s → %s\n", shortID(q.ID), q.Type, q.QuestionText, q.CorrectAnswer)
	}
	return c.Reply(b.String())
}

// HandleDeleteQuestion handles the /delq command.
// Format: /delq <question id>
func (h *AdminHandler) HandleDeleteQuestion(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ usage: /delq <id>")
	}

	questions, err := h.adminService.ListQuestions(ctx, "")
	if err != nil {
		return c.Reply("❌ Could not load questions")
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	id, err := resolveID(ids, args[0])
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}

	q, err := h.adminService.DeleteQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return c.Reply("ℹ️ Question already removed")
		}
		return c.Reply("❌ Could not delete the question")
	}

	logAdmin(c, "delete_question").Str("question_id", id).Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("🗑️ Deleted %s question: %s", q.Type, q.QuestionText))
}

// HandlePoints handles the /admin_points command.
// Format: /admin_points <email> <delta>
func (h *AdminHandler) HandlePoints(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) != 2 {
		return c.Reply("❌ usage: /admin_points <email> <delta>")
	}

	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || delta == 0 {
		return c.Reply("❌ Delta must be a non-zero number")
	}

	target, err := h.adminService.FindUserByEmail(ctx, args[0])
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Could not load the user")
	}

	user, err := h.adminService.AdjustPoints(ctx, target.ID, delta)
	if err != nil {
		return c.Reply("❌ Operation failed")
	}

	logAdmin(c, "adjust_points").Str("target_id", user.ID).Int64("delta", delta).Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("✅ %s now has %d points", displayName(user), user.Points))
}

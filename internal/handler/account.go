package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/repository"
	"bharat-rewards/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
	rankingService *service.RankingService
	redeemService  *service.RedeemService
	quizService    *service.QuizService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	accountService *service.AccountService,
	rankingService *service.RankingService,
	redeemService *service.RedeemService,
	quizService *service.QuizService,
) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		rankingService: rankingService,
		redeemService:  redeemService,
		quizService:    quizService,
	}
}

const helpText = "Available commands:\n" +
	"/register <email> <password|-> <name> - Create an account\n" +
	"/login <email> [password] - Log in\n" +
	"/logout - Log out\n" +
	"/me - Your profile\n" +
	"/top - Leaderboard\n" +
	"/quiz [category] [count] - Play a quiz round\n" +
	"/answer <text> - Answer the current question\n" +
	"/quit - Leave the current round\n" +
	"/redeem <points> - Convert points to money\n" +
	"/myredeems - Your redeem requests"

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()

	user, err := h.accountService.Current(ctx, SessionKey(c))
	if err == nil {
		return c.Reply(fmt.Sprintf("👋 Welcome back, %s!\n\n💎 Points: %d\n\n%s", displayName(user), user.Points, helpText))
	}

	return c.Reply("🙏 Welcome to BharatRewards!\n\nSolve quizzes, earn points and redeem them for cash.\n\n" + helpText)
}

// parseRegisterArgs parses "<email> <password|-> <name...>".
func parseRegisterArgs(args []string) (service.RegisterRequest, error) {
	if len(args) < 3 {
		return service.RegisterRequest{}, fmt.Errorf("usage: /register <email> <password|-> <name>")
	}
	password := args[1]
	if password == "-" {
		password = ""
	}
	return service.RegisterRequest{
		Email:    args[0],
		Password: password,
		Name:     strings.Join(args[2:], " "),
	}, nil
}

// HandleRegister handles the /register command and logs the new user in.
// Format: /register <email> <password|-> <name>
func (h *AccountHandler) HandleRegister(c tele.Context) error {
	ctx := context.Background()

	req, err := parseRegisterArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}
	hideCredentials(c)

	user, err := h.accountService.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return c.Send("❌ That email is already registered. Use /login instead.")
		case errors.Is(err, service.ErrInvalidInput):
			return c.Send("❌ Please provide a valid email and a name.")
		default:
			log.Error().Err(err).Msg("Registration failed")
			return c.Send("❌ Registration failed, please try again later")
		}
	}

	if _, err := h.accountService.Login(ctx, SessionKey(c), user.Email, req.Password); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Login after registration failed")
		return c.Send("✅ Account created. Please /login to continue.")
	}

	return c.Send(fmt.Sprintf("🎉 Welcome, %s! Your account is ready.\n\nStart earning with /quiz.", displayName(user)))
}

// HandleLogin handles the /login command.
// Format: /login <email> [password]
func (h *AccountHandler) HandleLogin(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ usage: /login <email> [password]")
	}
	password := ""
	if len(args) > 1 {
		password = args[1]
	}
	hideCredentials(c)

	user, err := h.accountService.Login(ctx, SessionKey(c), args[0], password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			return c.Send("❌ Invalid email or password")
		}
		log.Error().Err(err).Msg("Login failed")
		return c.Send("❌ Login failed, please try again later")
	}

	role := ""
	if user.IsAdmin() {
		role = " (admin)"
	}
	return c.Send(fmt.Sprintf("✅ Logged in as %s%s\n💎 Points: %d", displayName(user), role, user.Points))
}

// HandleLogout handles the /logout command.
func (h *AccountHandler) HandleLogout(c tele.Context) error {
	key := SessionKey(c)
	h.quizService.Quit(key)

	if err := h.accountService.Logout(context.Background(), key); err != nil {
		log.Error().Err(err).Msg("Logout failed")
		return c.Reply("❌ Logout failed, please try again later")
	}
	return c.Reply("👋 Logged out")
}

// HandleMe handles the /me command.
// Displays the logged-in user's profile.
func (h *AccountHandler) HandleMe(c tele.Context) error {
	ctx := context.Background()
	user := CurrentUser(c)
	if user == nil {
		return nil
	}

	rank, _ := h.rankingService.GetRank(ctx, user.ID)
	rankStr := "-"
	if rank > 0 {
		rankStr = fmt.Sprintf("#%d", rank)
	}

	pending := 0
	if requests, err := h.redeemService.ListByUser(ctx, user.ID); err == nil {
		for _, r := range requests {
			if r.Status == model.RedeemPending {
				pending++
			}
		}
	}

	return c.Reply(fmt.Sprintf(
		"📊 Profile\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👤 %s\n"+
			"📧 %s\n"+
			"💎 Points: %d\n"+
			"💰 Wallet: %s\n"+
			"✅ Solved: %d\n"+
			"🏆 Rank: %s\n"+
			"⏳ Pending redeems: %d\n"+
			"━━━━━━━━━━━━━━━",
		displayName(user), user.Email, user.Points, formatRupees(user.WalletBalance),
		user.SolvedCount, rankStr, pending,
	))
}

// hideCredentials removes a message carrying a password from group chats.
// Replies after this must use Send since the original message may be gone.
func hideCredentials(c tele.Context) {
	chat := c.Chat()
	if chat == nil || chat.Type == tele.ChatPrivate {
		return
	}
	if err := c.Delete(); err != nil {
		log.Debug().Err(err).Int64("chat_id", chat.ID).Msg("Could not delete credentials message")
	}
}

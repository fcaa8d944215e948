// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/config"
	"bharat-rewards/internal/handler"
	"bharat-rewards/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountService *service.AccountService

	// Handlers
	accountHandler *handler.AccountHandler
	rankingHandler *handler.RankingHandler
	quizHandler    *handler.QuizHandler
	redeemHandler  *handler.RedeemHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	RankingService *service.RankingService
	QuizService    *service.QuizService
	RedeemService  *service.RedeemService
	AdminService   *service.AdminService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		accountService: deps.AccountService,
	}

	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.RankingService, deps.RedeemService, deps.QuizService)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.quizHandler = handler.NewQuizHandler(deps.QuizService, deps.AccountService)
	b.redeemHandler = handler.NewRedeemHandler(deps.RedeemService, deps.AdminService)
	b.adminHandler = handler.NewAdminHandler(deps.AdminService, deps.RedeemService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Public commands
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleStart)
	b.bot.Handle("/register", b.accountHandler.HandleRegister)
	b.bot.Handle("/login", b.accountHandler.HandleLogin)
	b.bot.Handle("/logout", b.accountHandler.HandleLogout)
	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	// Quiz answers work without a session lookup: the round already knows its user.
	b.bot.Handle("/answer", b.quizHandler.HandleAnswer)
	b.bot.Handle("/quit", b.quizHandler.HandleQuit)
	b.bot.Handle(tele.OnText, b.quizHandler.HandleText)

	auth := AuthMiddleware(b.accountService.Current)

	// Logged-in commands
	userGroup := b.bot.Group()
	userGroup.Use(auth)
	userGroup.Handle("/me", b.accountHandler.HandleMe)
	userGroup.Handle("/quiz", b.quizHandler.HandleQuiz)
	userGroup.Handle("/redeem", b.redeemHandler.HandleRedeem)
	userGroup.Handle("/myredeems", b.redeemHandler.HandleMyRedeems)

	// Admin commands
	adminGroup := b.bot.Group()
	adminGroup.Use(auth, AdminMiddleware())
	adminGroup.Handle("/admin_users", b.adminHandler.HandleUsers)
	adminGroup.Handle("/admin_requests", b.adminHandler.HandleRequests)
	adminGroup.Handle("/approve", b.adminHandler.HandleApprove)
	adminGroup.Handle("/reject", b.adminHandler.HandleReject)
	adminGroup.Handle("/admin_settings", b.adminHandler.HandleSettings)
	adminGroup.Handle("/admin_points", b.adminHandler.HandlePoints)
	adminGroup.Handle("/addq", b.adminHandler.HandleAddQuestion)
	adminGroup.Handle("/delq", b.adminHandler.HandleDeleteQuestion)
	adminGroup.Handle("/questions", b.adminHandler.HandleQuestions)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	if strings.HasPrefix(data, "quiz_") {
		return b.quizHandler.HandleCallback(c)
	}
	return c.Respond()
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("bot", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

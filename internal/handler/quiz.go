package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
	"bharat-rewards/internal/service"
)

// QuizHandler runs quiz rounds in chat.
type QuizHandler struct {
	quizService    *service.QuizService
	accountService *service.AccountService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, accountService *service.AccountService) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		accountService: accountService,
	}
}

// parseQuizArgs parses "[category] [count]". A zero count means default.
func parseQuizArgs(args []string) (model.Category, int, error) {
	if len(args) == 0 {
		return "", 0, nil
	}
	category, err := model.ParseCategory(args[0])
	if err != nil {
		return "", 0, err
	}
	count := 0
	if len(args) > 1 {
		count, err = strconv.Atoi(args[1])
		if err != nil || count <= 0 {
			return "", 0, fmt.Errorf("count must be a positive number")
		}
	}
	return category, count, nil
}

// HandleQuiz handles the /quiz command.
// Format: /quiz [category] [count]. Without a category a picker is shown.
func (h *QuizHandler) HandleQuiz(c tele.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return nil
	}

	category, count, err := parseQuizArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error() + "\nCategories: MATH, QUIZ, PUZZLE, TYPING")
	}
	if category == "" {
		return c.Reply("🎯 Pick a category:", BuildCategoryPanel(h.quizService.Categories()))
	}

	return h.startRound(c, user, category, count)
}

func (h *QuizHandler) startRound(c tele.Context, user *model.User, category model.Category, count int) error {
	ctx := context.Background()

	round, err := h.quizService.Start(ctx, SessionKey(c), user.ID, category, count)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrUnknownCategory):
			return c.Send("❌ Unknown category")
		case errors.Is(err, service.ErrNoQuestions):
			return c.Send("😕 No questions available for this category right now")
		default:
			log.Error().Err(err).Str("category", string(category)).Msg("Failed to start quiz round")
			return c.Send("❌ Could not start the quiz, please try again later")
		}
	}

	intro := fmt.Sprintf("🚀 %s round: %d questions. Answer with a message, /answer <text> or the buttons.", category, round.Total())
	if err := c.Send(intro); err != nil {
		return err
	}
	return sendQuestion(c, round.Current(), round.Index+1, round.Total())
}

// formatQuestion renders a question for chat.
func formatQuestion(q *model.Question, number, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ Question %d/%d [%s]\n\n", number, total, q.Type)
	if q.Type == model.CategoryTyping {
		b.WriteString("⌨️ Type this exactly:\n")
	}
	b.WriteString(q.QuestionText)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%c) %s", 'A'+i, opt)
	}
	return b.String()
}

func sendQuestion(c tele.Context, q *model.Question, number, total int) error {
	if q == nil {
		return nil
	}
	return c.Send(formatQuestion(q, number, total), BuildOptionsPanel(q))
}

// normalizeOptionAnswer maps a single option letter ("b") to the option
// text for multiple-choice questions.
func normalizeOptionAnswer(q *model.Question, answer string) string {
	a := strings.TrimSpace(answer)
	if !q.IsMultipleChoice() || len(a) != 1 {
		return answer
	}
	idx := int(strings.ToUpper(a)[0] - 'A')
	if idx >= 0 && idx < len(q.Options) {
		return q.Options[idx]
	}
	return answer
}

// HandleAnswer handles the /answer command.
// Format: /answer <text>
func (h *QuizHandler) HandleAnswer(c tele.Context) error {
	answer := strings.TrimSpace(c.Message().Payload)
	if answer == "" {
		return c.Reply("❌ usage: /answer <text>")
	}
	return h.submit(c, answer)
}

// HandleText treats plain messages as answers while a round is active.
func (h *QuizHandler) HandleText(c tele.Context) error {
	if _, ok := h.quizService.Round(SessionKey(c)); !ok {
		return nil
	}
	return h.submit(c, c.Text())
}

func (h *QuizHandler) submit(c tele.Context, answer string) error {
	ctx := context.Background()
	key := SessionKey(c)

	round, ok := h.quizService.Round(key)
	if !ok {
		return c.Send("ℹ️ No active round. Start one with /quiz")
	}
	if q := round.Current(); q != nil {
		answer = normalizeOptionAnswer(q, answer)
	}

	result, err := h.quizService.Answer(ctx, key, answer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveRound):
			return c.Send("ℹ️ No active round. Start one with /quiz")
		case errors.Is(err, service.ErrUserBusy):
			return c.Send("⏳ Still processing your previous answer")
		case errors.Is(err, service.ErrSessionEnded):
			return c.Send("🔒 Your round ended because you are no longer logged in. Please /login and start a new /quiz")
		default:
			log.Error().Err(err).Str("session", key).Msg("Failed to submit answer")
			return c.Send("❌ Could not record your answer, please try again")
		}
	}

	var msg string
	if result.Correct {
		msg = fmt.Sprintf("✅ Correct! +%d points", result.Awarded)
		if result.User != nil {
			msg += fmt.Sprintf(" (total %d)", result.User.Points)
		}
	} else {
		msg = fmt.Sprintf("❌ Wrong. The answer was: %s", result.Expected)
	}

	if result.Finished {
		r := result.Round
		msg += fmt.Sprintf("\n\n🏁 Round over: %d/%d correct, %d points earned.\nPlay again with /quiz", r.Correct, r.Total(), r.Earned)
		return c.Send(msg)
	}

	if err := c.Send(msg); err != nil {
		return err
	}
	return sendQuestion(c, result.Next, result.Round.Index+1, result.Round.Total())
}

// HandleQuit handles the /quit command.
func (h *QuizHandler) HandleQuit(c tele.Context) error {
	round, ok := h.quizService.Quit(SessionKey(c))
	if !ok {
		return c.Send("ℹ️ No active round")
	}
	return c.Send(fmt.Sprintf("🚪 Round ended: %d/%d correct, %d points earned.", round.Correct, round.Total(), round.Earned))
}

// HandleCallback handles quiz inline buttons.
func (h *QuizHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}
	data := parseCallback(callback.Data)

	switch {
	case strings.HasPrefix(data, CallbackQuizCategory):
		_ = c.Respond()
		user, err := h.accountService.Current(context.Background(), SessionKey(c))
		if err != nil {
			if errors.Is(err, repository.ErrNoSession) {
				return c.Send("🔒 Please /login or /register first")
			}
			return c.Send("❌ Could not load your account, please try again later")
		}
		category, err := model.ParseCategory(strings.TrimPrefix(data, CallbackQuizCategory))
		if err != nil {
			return c.Send("❌ Unknown category")
		}
		return h.startRound(c, user, category, 0)

	case strings.HasPrefix(data, CallbackQuizOption):
		round, ok := h.quizService.Round(SessionKey(c))
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "No active round"})
		}
		answer, err := optionFromCallback(round.Current(), data)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "That question has passed"})
		}
		_ = c.Respond()
		return h.submit(c, answer)

	case data == CallbackQuizQuit:
		_ = c.Respond()
		return h.HandleQuit(c)
	}

	return c.Respond()
}

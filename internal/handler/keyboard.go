package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/quiz"
)

// Callback data prefixes
const (
	CallbackQuizCategory = "quiz_cat:" // quiz_cat:MATH
	CallbackQuizOption   = "quiz_opt:" // quiz_opt:2:<question id>
	CallbackQuizQuit     = "quiz_quit"
)

// BuildCategoryPanel creates one button per question kind, two per row.
func BuildCategoryPanel(kinds []*quiz.Kind) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var currentRow []tele.Btn
	for i, k := range kinds {
		btn := markup.Data(categoryLabel(k), CallbackQuizCategory+string(k.Category))
		currentRow = append(currentRow, btn)

		if len(currentRow) == 2 || i == len(kinds)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	markup.Inline(rows...)
	return markup
}

// BuildOptionsPanel creates the answer buttons for a multiple-choice
// question plus a quit button. Plain questions only get the quit button.
func BuildOptionsPanel(q *model.Question) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for i, opt := range q.Options {
		data := CallbackQuizOption + strconv.Itoa(i) + ":" + q.ID
		rows = append(rows, markup.Row(markup.Data(opt, data)))
	}
	rows = append(rows, markup.Row(markup.Data("🚪 Quit", CallbackQuizQuit)))

	markup.Inline(rows...)
	return markup
}

// parseCallback strips the telebot marker and any payload separator.
func parseCallback(data string) string {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	return data
}

// optionFromCallback maps an option callback back to the option text of q.
// Buttons left over from an earlier question are rejected.
func optionFromCallback(q *model.Question, data string) (string, error) {
	if q == nil {
		return "", fmt.Errorf("no current question")
	}
	idxStr, qid, ok := strings.Cut(strings.TrimPrefix(data, CallbackQuizOption), ":")
	if !ok || qid != q.ID {
		return "", fmt.Errorf("stale option %q", data)
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(q.Options) {
		return "", fmt.Errorf("invalid option %q", data)
	}
	return q.Options[idx], nil
}

func categoryLabel(k *quiz.Kind) string {
	emoji := map[model.Category]string{
		model.CategoryMath:   "➗",
		model.CategoryQuiz:   "🇮🇳",
		model.CategoryPuzzle: "🧩",
		model.CategoryTyping: "⌨️",
	}[k.Category]
	if emoji == "" {
		emoji = "❓"
	}
	return fmt.Sprintf("%s %s", emoji, k.Title)
}

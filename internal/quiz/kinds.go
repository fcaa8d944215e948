package quiz

import "bharat-rewards/internal/model"

// BuiltinKinds returns the MATH, QUIZ, PUZZLE and TYPING kinds.
func BuiltinKinds() []*Kind {
	return []*Kind{
		{
			Category: model.CategoryMath,
			Title:    "Math",
			Prompt:   `Generate %d math problems. JSON: [{"questionText": "5+5", "correctAnswer": "10"}]`,
			Fallback: []Draft{
				{QuestionText: "12 + 15 = ?", CorrectAnswer: "27"},
				{QuestionText: "10 * 5 = ?", CorrectAnswer: "50"},
				{QuestionText: "100 / 4 = ?", CorrectAnswer: "25"},
			},
			Match: numericMatch,
		},
		{
			Category:       model.CategoryQuiz,
			Title:          "India Quiz",
			Prompt:         `Generate %d Indian trivia questions. JSON: [{"questionText": "Q?", "options": ["A","B","C","D"], "correctAnswer": "A"}]`,
			MultipleChoice: true,
			Fallback: []Draft{
				{QuestionText: "National Bird of India?", Options: []string{"Peacock", "Parrot", "Eagle", "Crow"}, CorrectAnswer: "Peacock"},
				{QuestionText: "Currency of India?", Options: []string{"Dollar", "Yen", "Rupee", "Euro"}, CorrectAnswer: "Rupee"},
			},
			Match: foldMatch,
		},
		{
			Category: model.CategoryPuzzle,
			Title:    "Puzzle",
			Prompt:   `Generate %d riddles. JSON: [{"questionText": "Riddle?", "correctAnswer": "Ans"}]`,
			Fallback: []Draft{
				{QuestionText: "What comes once in a minute, twice in a moment, but never in a thousand years?", CorrectAnswer: "m"},
			},
			Match: foldMatch,
		},
		{
			Category: model.CategoryTyping,
			Title:    "Typing",
			Prompt:   `Generate %d short facts about India. JSON: [{"questionText": "Fact.", "correctAnswer": "Fact."}]`,
			Fallback: []Draft{
				{QuestionText: "India is the seventh-largest country by area.", CorrectAnswer: "India is the seventh-largest country by area."},
			},
			Match: typedMatch,
		},
	}
}

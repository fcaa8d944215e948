// Package model defines the data models for the BharatRewards bot.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the access level of a user account.
type Role string

// User roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a player (or administrator) account.
// Email uniqueness is case-insensitive and enforced at registration.
type User struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Password      string  `json:"password,omitempty"`
	Name          string  `json:"name"`
	Role          Role    `json:"role"`
	Points        int64   `json:"points"`
	WalletBalance float64 `json:"walletBalance"`
	SolvedCount   int64   `json:"solvedCount"`
}

// IsAdmin reports whether the user has the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session is the snapshot of an authenticated user bound to a session key.
// The snapshot is refreshed when the user is saved through the user
// repository; other write paths leave it stale.
type Session struct {
	Key       string    `json:"key"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// RedeemStatus is the lifecycle state of a redeem request.
type RedeemStatus string

// Redeem request states. APPROVED and REJECTED are terminal.
const (
	RedeemPending  RedeemStatus = "PENDING"
	RedeemApproved RedeemStatus = "APPROVED"
	RedeemRejected RedeemStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is allowed.
func (s RedeemStatus) IsTerminal() bool {
	return s == RedeemApproved || s == RedeemRejected
}

// RedeemRequest is a user's request to convert points into currency.
type RedeemRequest struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId" validate:"required"`
	UserName  string       `json:"userName"`
	Points    int64        `json:"points" validate:"gt=0"`
	Amount    float64      `json:"amount" validate:"gte=0"`
	Status    RedeemStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	DecidedAt *time.Time   `json:"decidedAt,omitempty"`
}

// AppSettings holds the reward economy parameters.
type AppSettings struct {
	MinRedeemPoints   int64   `json:"minRedeemPoints" validate:"gt=0"`
	PointsPerQuestion int64   `json:"pointsPerQuestion" validate:"gt=0"`
	CurrencyRate      float64 `json:"currencyRate" validate:"gt=0"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() AppSettings {
	return AppSettings{
		MinRedeemPoints:   14000,
		PointsPerQuestion: 10,
		CurrencyRate:      35,
	}
}

// PointsToCurrency converts a point amount into currency at the configured rate.
func (s AppSettings) PointsToCurrency(points int64) float64 {
	if s.CurrencyRate <= 0 {
		return 0
	}
	return float64(points) / s.CurrencyRate
}

// Category is the question type (and the quiz category it belongs to).
type Category string

// Question categories.
const (
	CategoryMath   Category = "MATH"
	CategoryQuiz   Category = "QUIZ"
	CategoryPuzzle Category = "PUZZLE"
	CategoryTyping Category = "TYPING"
)

// Categories returns all recognised categories in display order.
func Categories() []Category {
	return []Category{CategoryMath, CategoryQuiz, CategoryPuzzle, CategoryTyping}
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Question is a single quiz item. Options is only set for multiple-choice
// (QUIZ) questions.
type Question struct {
	ID            string   `json:"id"`
	Type          Category `json:"type" validate:"oneof=MATH QUIZ PUZZLE TYPING"`
	QuestionText  string   `json:"questionText" validate:"required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Options       []string `json:"options,omitempty"`
}

// IsMultipleChoice reports whether the question carries answer options.
func (q *Question) IsMultipleChoice() bool {
	return len(q.Options) > 0
}

package service

import "errors"

// Service errors surfaced to handlers.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidAmount      = errors.New("invalid amount: must be positive")
	ErrBelowMinimum       = errors.New("points below the redemption minimum")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrNoActiveRound      = errors.New("no active quiz round")
	ErrSessionEnded       = errors.New("session no longer belongs to the round player")
	ErrNoQuestions        = errors.New("no questions available")
	ErrUserBusy           = errors.New("another operation is in progress for this user")
)

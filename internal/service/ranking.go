package service

import (
	"context"
	"fmt"
	"sort"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/repository"
)

// RankingService handles the points leaderboard.
type RankingService struct {
	users *repository.UserRepository
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(users *repository.UserRepository) *RankingService {
	return &RankingService{users: users}
}

// GetTopUsers returns up to limit players ordered by points, then solved
// count, then name. Administrators are not ranked.
func (s *RankingService) GetTopUsers(ctx context.Context, limit int) ([]model.User, error) {
	ranked, err := s.ranked(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// GetRank returns the 1-based leaderboard position of userID, or 0 when the
// user is not ranked.
func (s *RankingService) GetRank(ctx context.Context, userID string) (int, error) {
	ranked, err := s.ranked(ctx)
	if err != nil {
		return 0, err
	}
	for i, u := range ranked {
		if u.ID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *RankingService) ranked(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	players := users[:0]
	for _, u := range users {
		if !u.IsAdmin() {
			players = append(players, u)
		}
	}

	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.SolvedCount != b.SolvedCount {
			return a.SolvedCount > b.SolvedCount
		}
		return a.Name < b.Name
	})
	return players, nil
}

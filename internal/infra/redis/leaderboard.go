package redis

import (
	"context"
	"strconv"

	"adaptive-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LeaderboardKey is the sorted set holding every user's score.
const LeaderboardKey = "leaderboard:score"

// Leaderboard mirrors ledger scores into a Redis ZSet for cheap top-N reads.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

// SetScore overwrites the user's score in the ZSet.
func (l *Leaderboard) SetScore(ctx context.Context, userID int64, score int) error {
	return l.client.ZAdd(ctx, LeaderboardKey, redis.Z{
		Score:  float64(score),
		Member: strconv.FormatInt(userID, 10),
	}).Err()
}

// Remove deletes the user from the ZSet.
func (l *Leaderboard) Remove(ctx context.Context, userID int64) error {
	return l.client.ZRem(ctx, LeaderboardKey, strconv.FormatInt(userID, 10)).Err()
}

// Top returns up to limit users, highest score first.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	results, err := l.client.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(results))
	for _, result := range results {
		member, ok := result.Member.(string)
		if !ok {
			continue
		}
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Score: int(result.Score)})
	}
	return entries, nil
}

// Seed loads existing ledger scores, so a fresh Redis ranks users that
// answered before it was attached.
func (l *Leaderboard) Seed(ctx context.Context, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := l.client.Pipeline()
	for _, e := range entries {
		pipe.ZAdd(ctx, LeaderboardKey, redis.Z{
			Score:  float64(e.Score),
			Member: strconv.FormatInt(e.UserID, 10),
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Package leaderboard keeps the append-only record of completed sessions and
// per-player aggregates. Postgres is authoritative; a redis sorted set
// mirrors entry scores for top-N reads.
package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
	"github.com/victornm/pairup/internal/event"
)

const defaultLimit = 10

// EntryStore is the durable side of the leaderboard.
type EntryStore interface {
	// InsertEntry appends the entry and fills in its id. It reports false
	// when an entry for the same player pair already exists, in which case
	// nothing is written.
	InsertEntry(ctx context.Context, e *domain.LeaderboardEntry) (bool, error)
	ListTop(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.LeaderboardEntry, error)
	UpsertStats(ctx context.Context, username string, matches int) error
	GetStats(ctx context.Context, username string) (*domain.PlayerStats, error)
}

type Config struct {
	Store    EntryStore
	Redis    redis.UniversalClient
	EventBus *event.Bus
	Prefix   string
}

type Service struct {
	store  EntryStore
	redis  redis.UniversalClient
	eb     *event.Bus
	prefix string
}

func NewService(c Config) *Service {
	return &Service{
		store:  c.Store,
		redis:  c.Redis,
		eb:     c.EventBus,
		prefix: c.Prefix,
	}
}

// Record appends one completed session. The first completed session per
// player pair wins; later pairs are dropped by the store's uniqueness
// constraint, so recording is safe to call from concurrent completions.
func (s *Service) Record(ctx context.Context, e domain.LeaderboardEntry) error {
	inserted, err := s.store.InsertEntry(ctx, &e)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if !inserted {
		slog.InfoContext(ctx, "leaderboard: entry exists for pair, skipping",
			"player1", e.Player1, "player2", e.Player2)
		return nil
	}

	for _, name := range []string{e.Player1, e.Player2} {
		if err := s.store.UpsertStats(ctx, name, e.MatchingAnswers); err != nil {
			return fmt.Errorf("update stats: player=%s: %w", name, err)
		}
	}

	// The zset is a mirror, not the record; losing a write only degrades
	// top-N reads until the store fallback kicks in.
	if err := s.redis.ZAdd(ctx, s.scoresKey(), redis.Z{
		Score:  float64(e.Score),
		Member: strconv.FormatInt(e.ID, 10),
	}).Err(); err != nil {
		slog.WarnContext(ctx, "leaderboard: mirror score failed", "entry", e.ID, "error", err)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventLeaderboardUpdated{Entry: e})
	}

	return nil
}

type TopEntriesRequest struct {
	Limit int
}

// TopEntries returns up to Limit entries ordered by descending score. The
// redis mirror serves the ordering; an empty or failing mirror falls back to
// the store.
func (s *Service) TopEntries(ctx context.Context, req TopEntriesRequest) ([]domain.LeaderboardEntry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	members, err := s.redis.ZRevRange(ctx, s.scoresKey(), 0, int64(limit)-1).Result()
	if err != nil || len(members) == 0 {
		if err != nil {
			slog.WarnContext(ctx, "leaderboard: mirror read failed, using store", "error", err)
		}
		return s.store.ListTop(ctx, limit)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return s.store.ListTop(ctx, limit)
		}
		ids = append(ids, id)
	}

	entries, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.LeaderboardEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	ordered := make([]domain.LeaderboardEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}

	return ordered, nil
}

type PlayerStatsRequest struct {
	Username string
}

// PlayerStats returns a player's aggregates. An unknown player gets zero
// stats rather than an error.
func (s *Service) PlayerStats(ctx context.Context, req PlayerStatsRequest) (*domain.PlayerStats, error) {
	st, err := s.store.GetStats(ctx, req.Username)
	if errors.Is(err, errors.CodeNotFound) {
		return &domain.PlayerStats{
			Username:       req.Username,
			AverageMatches: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if st.GamesPlayed > 0 {
		st.AverageMatches = decimal.NewFromInt(int64(st.TotalMatches)).
			Div(decimal.NewFromInt(int64(st.GamesPlayed)))
	}

	return st, nil
}

func (s *Service) scoresKey() string {
	return fmt.Sprintf("%s:scores", s.prefix)
}

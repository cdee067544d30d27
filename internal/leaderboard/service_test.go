package leaderboard_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
	"github.com/victornm/pairup/internal/event"
	"github.com/victornm/pairup/internal/leaderboard"
)

func TestService_Record(t *testing.T) {
	t.Run("should append the entry and update both players' stats", func(t *testing.T) {
		s, store, _ := makeService(t)

		err := s.Record(context.Background(), domain.LeaderboardEntry{
			Player1:         "alice",
			Player2:         "bob",
			MatchingAnswers: 7,
			Score:           70,
			CreatedAt:       time.Now(),
		})
		require.NoError(t, err)

		require.Len(t, store.entries, 1)
		require.Equal(t, 1, store.stats["alice"].GamesPlayed)
		require.Equal(t, 7, store.stats["alice"].TotalMatches)
		require.Equal(t, 1, store.stats["bob"].GamesPlayed)
	})

	t.Run("should keep only the first entry per pair", func(t *testing.T) {
		s, store, _ := makeService(t)

		for i := 0; i < 3; i++ {
			err := s.Record(context.Background(), domain.LeaderboardEntry{
				Player1:         "alice",
				Player2:         "bob",
				MatchingAnswers: i,
				Score:           i * 10,
				CreatedAt:       time.Now(),
			})
			require.NoError(t, err)
		}

		require.Len(t, store.entries, 1)
		require.Equal(t, 0, store.entries[0].MatchingAnswers)
		require.Equal(t, 1, store.stats["alice"].GamesPlayed, "duplicates should not bump stats")
	})

	t.Run("should publish a leaderboard.updated event on a fresh entry", func(t *testing.T) {
		eb := event.NewBus()

		var (
			mu        sync.Mutex
			published []domain.EventLeaderboardUpdated
		)
		eb.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
			mu.Lock()
			published = append(published, e.(domain.EventLeaderboardUpdated))
			mu.Unlock()
			return nil
		})

		s, _, _ := makeService(t, withEventBus(eb))

		err := s.Record(context.Background(), domain.LeaderboardEntry{
			Player1: "alice", Player2: "bob", MatchingAnswers: 5, Score: 50, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
		err = s.Record(context.Background(), domain.LeaderboardEntry{
			Player1: "alice", Player2: "bob", MatchingAnswers: 9, Score: 90, CreatedAt: time.Now(),
		})
		require.NoError(t, err)

		eb.Stop()

		require.Len(t, published, 1, "the duplicate should not publish")
		require.Equal(t, 50, published[0].Entry.Score)
	})
}

func TestService_TopEntries(t *testing.T) {
	t.Run("should order by descending score and bound the length", func(t *testing.T) {
		s, _, _ := makeService(t)

		pairs := []struct {
			p1, p2 string
			score  int
		}{
			{"alice", "bob", 30},
			{"carol", "dan", 90},
			{"erin", "frank", 60},
			{"grace", "heidi", 10},
		}
		for _, p := range pairs {
			err := s.Record(context.Background(), domain.LeaderboardEntry{
				Player1: p.p1, Player2: p.p2, MatchingAnswers: p.score / 10, Score: p.score, CreatedAt: time.Now(),
			})
			require.NoError(t, err)
		}

		entries, err := s.TopEntries(context.Background(), leaderboard.TopEntriesRequest{Limit: 3})
		require.NoError(t, err)

		require.Len(t, entries, 3)
		require.Equal(t, []int{90, 60, 30}, scores(entries))
	})

	t.Run("should fall back to the store when the mirror is empty", func(t *testing.T) {
		s, store, mr := makeService(t)

		err := s.Record(context.Background(), domain.LeaderboardEntry{
			Player1: "alice", Player2: "bob", MatchingAnswers: 4, Score: 40, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
		require.Len(t, store.entries, 1)

		mr.FlushAll()

		entries, err := s.TopEntries(context.Background(), leaderboard.TopEntriesRequest{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, []int{40}, scores(entries))
	})
}

func TestService_PlayerStats(t *testing.T) {
	t.Run("unknown player gets zero stats", func(t *testing.T) {
		s, _, _ := makeService(t)

		st, err := s.PlayerStats(context.Background(), leaderboard.PlayerStatsRequest{Username: "nobody"})
		require.NoError(t, err)

		require.Equal(t, "nobody", st.Username)
		require.Zero(t, st.GamesPlayed)
		require.True(t, st.AverageMatches.IsZero())
	})

	t.Run("average is total matches over games played", func(t *testing.T) {
		s, _, _ := makeService(t)

		records := []struct {
			p2      string
			matches int
		}{
			{"bob", 10},
			{"carol", 5},
		}
		for _, r := range records {
			err := s.Record(context.Background(), domain.LeaderboardEntry{
				Player1: "alice", Player2: r.p2, MatchingAnswers: r.matches, Score: r.matches * 10, CreatedAt: time.Now(),
			})
			require.NoError(t, err)
		}

		st, err := s.PlayerStats(context.Background(), leaderboard.PlayerStatsRequest{Username: "alice"})
		require.NoError(t, err)

		require.Equal(t, 2, st.GamesPlayed)
		require.Equal(t, 15, st.TotalMatches)
		require.Equal(t, 10, st.BestMatches)
		require.True(t, decimal.NewFromFloat(7.5).Equal(st.AverageMatches))
	})
}

func makeService(t *testing.T, opts ...option) (*leaderboard.Service, *memStore, *miniredis.Miniredis) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	store := newMemStore()

	c := leaderboard.Config{
		Store:    store,
		Redis:    rc,
		EventBus: event.NewBus(),
		Prefix:   "test:leaderboard",
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewService(c), store, mr
}

type option func(c *leaderboard.Config)

func withEventBus(eb *event.Bus) option {
	return func(c *leaderboard.Config) {
		c.EventBus = eb
	}
}

// memStore is an in-memory EntryStore with the same pair-uniqueness rule as
// the postgres implementation.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.LeaderboardEntry
	stats   map[string]*domain.PlayerStats
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, stats: make(map[string]*domain.PlayerStats)}
}

func (s *memStore) InsertEntry(_ context.Context, e *domain.LeaderboardEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.Player1 == e.Player1 && existing.Player2 == e.Player2 {
			return false, nil
		}
	}

	e.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, *e)
	return true, nil
}

func (s *memStore) ListTop(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LeaderboardEntry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetByIDs(_ context.Context, ids []int64) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var out []domain.LeaderboardEntry
	for _, e := range s.entries {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) UpsertStats(_ context.Context, username string, matches int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[username]
	if !ok {
		st = &domain.PlayerStats{Username: username}
		s.stats[username] = st
	}

	st.GamesPlayed++
	st.TotalMatches += matches
	if matches > st.BestMatches {
		st.BestMatches = matches
	}
	return nil
}

func (s *memStore) GetStats(_ context.Context, username string) (*domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[username]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("player not found: username=%s", username))
	}

	cp := *st
	return &cp, nil
}

func scores(entries []domain.LeaderboardEntry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Score)
	}
	return out
}

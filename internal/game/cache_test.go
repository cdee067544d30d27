package game_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/game"
)

func TestMemoryCache(t *testing.T) {
	t.Run("miss", func(t *testing.T) {
		c := game.NewMemoryCache()

		_, ok := c.Get("001")
		require.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		c := game.NewMemoryCache()
		c.Put("001", &domain.Session{Code: "001", Status: domain.StatusWaiting})

		got, ok := c.Get("001")
		require.True(t, ok)
		require.Equal(t, "001", got.Code)
	})

	t.Run("entries are snapshots, not aliases", func(t *testing.T) {
		c := game.NewMemoryCache()
		ss := &domain.Session{
			Code:    "001",
			Player1: domain.Player{Name: "alice", Answers: []int{1}},
		}
		c.Put("001", ss)

		ss.Player1.Answers = append(ss.Player1.Answers, 2)

		got, ok := c.Get("001")
		require.True(t, ok)
		require.Equal(t, []int{1}, got.Player1.Answers)

		got.Player1.Answers[0] = 2
		again, _ := c.Get("001")
		require.Equal(t, []int{1}, again.Player1.Answers)
	})

	t.Run("evict", func(t *testing.T) {
		c := game.NewMemoryCache()
		c.Put("001", &domain.Session{Code: "001"})
		c.Evict("001")

		_, ok := c.Get("001")
		require.False(t, ok)
	})
}

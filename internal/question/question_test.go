package question_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/pairup/internal/question"
)

func TestFallback(t *testing.T) {
	t.Run("should return exactly n questions", func(t *testing.T) {
		qs := question.Fallback(10)
		require.Len(t, qs, 10)
	})

	t.Run("should be deterministic", func(t *testing.T) {
		require.Equal(t, question.Fallback(10), question.Fallback(10))
	})

	t.Run("should clamp to the pool size", func(t *testing.T) {
		all := question.Fallback(1000)
		require.NotEmpty(t, all)
		require.Equal(t, all, question.Fallback(len(all)))
	})

	t.Run("should return copies", func(t *testing.T) {
		qs := question.Fallback(3)
		qs[0].Text = "mutated"
		require.NotEqual(t, "mutated", question.Fallback(3)[0].Text)
	})
}

func TestIsFallback(t *testing.T) {
	t.Run("fallback prefixes are detected", func(t *testing.T) {
		require.True(t, question.IsFallback(question.Fallback(10)))
		require.True(t, question.IsFallback(question.Fallback(3)))
	})

	t.Run("personalized lists are not", func(t *testing.T) {
		qs := question.Fallback(10)
		qs[4].Option1 = "something else"
		require.False(t, question.IsFallback(qs))
	})

	t.Run("empty list is not", func(t *testing.T) {
		require.False(t, question.IsFallback(nil))
	})
}

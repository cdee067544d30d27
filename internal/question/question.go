// Package question provides the question source for game sessions: an
// OpenAI-compatible generator plus a deterministic fallback list. Generation
// errors always surface to the caller; applying the fallback is the caller's
// job, so the "upstream failure never escapes the service" contract lives in
// exactly one place per call site.
package question

import (
	"context"

	"github.com/victornm/pairup/internal/domain"
)

// Source generates an ordered list of questions, personalized to the players
// when the backing model cooperates.
type Source interface {
	Generate(ctx context.Context, req GenerateRequest) ([]domain.Question, error)
}

// GenerateRequest asks for Count questions personalized to one or two
// players. Player2 and Topic are optional.
type GenerateRequest struct {
	Player1 string
	Player2 string
	Count   int
	Topic   string
}

// defaults is the fixed fallback pool. Order matters: Fallback returns a
// prefix of this list, and the join flow compares against the same prefix to
// detect a still-generic session.
var defaults = []domain.Question{
	{Text: "Would you rather...", Option1: "Read a new book", Option2: "Re-read your favorite book"},
	{Text: "Would you rather...", Option1: "Do a science project", Option2: "Write a short story"},
	{Text: "Would you rather...", Option1: "Have extra art class", Option2: "Have extra music class"},
	{Text: "Would you rather...", Option1: "Study with a friend", Option2: "Study by yourself"},
	{Text: "Would you rather...", Option1: "Present to the class", Option2: "Make a poster"},
	{Text: "Would you rather...", Option1: "Join the chess club", Option2: "Join the robotics club"},
	{Text: "Would you rather...", Option1: "Do math puzzles", Option2: "Do word puzzles"},
	{Text: "Would you rather...", Option1: "Have a field trip to a museum", Option2: "Have a field trip to a zoo"},
	{Text: "Would you rather...", Option1: "Write with a pen", Option2: "Write with a pencil"},
	{Text: "Would you rather...", Option1: "Learn a new language", Option2: "Learn to code"},
	{Text: "Would you rather...", Option1: "Do a group project", Option2: "Do an individual project"},
	{Text: "Would you rather...", Option1: "Have homework on weekdays only", Option2: "Have a small assignment every day"},
	{Text: "Would you rather...", Option1: "Create a comic", Option2: "Create a slideshow"},
	{Text: "Would you rather...", Option1: "Learn about space", Option2: "Learn about oceans"},
	{Text: "Would you rather...", Option1: "Do a science experiment", Option2: "Build a model"},
	{Text: "Would you rather...", Option1: "Have a quiet reading time", Option2: "Have a fun quiz game"},
	{Text: "Would you rather...", Option1: "Practice typing", Option2: "Practice handwriting"},
	{Text: "Would you rather...", Option1: "Draw a picture", Option2: "Take a photo"},
	{Text: "Would you rather...", Option1: "Do a history timeline", Option2: "Build a geography map"},
	{Text: "Would you rather...", Option1: "Watch an educational video", Option2: "Listen to a podcast"},
	{Text: "Would you rather...", Option1: "Practice multiplication", Option2: "Practice fractions"},
	{Text: "Would you rather...", Option1: "Have a class debate", Option2: "Have a class survey"},
	{Text: "Would you rather...", Option1: "Read fiction", Option2: "Read non-fiction"},
	{Text: "Would you rather...", Option1: "Write a poem", Option2: "Write a letter"},
	{Text: "Would you rather...", Option1: "Do a nature walk", Option2: "Do a science lab"},
}

// Fallback returns the first n default questions. n larger than the pool
// returns the whole pool.
func Fallback(n int) []domain.Question {
	if n > len(defaults) {
		n = len(defaults)
	}
	if n < 0 {
		n = 0
	}

	qs := make([]domain.Question, n)
	copy(qs, defaults[:n])
	return qs
}

// IsFallback reports whether qs is exactly a prefix of the default pool,
// meaning the session never received a personalized list.
func IsFallback(qs []domain.Question) bool {
	if len(qs) == 0 || len(qs) > len(defaults) {
		return false
	}

	for i, q := range qs {
		if q != defaults[i] {
			return false
		}
	}

	return true
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of a game session. Transitions are driven by the game service only:
// waiting -> in_progress on join, in_progress -> completed once both players
// have answered every question.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Question is one "Would you rather" prompt with its two options.
type Question struct {
	Text    string
	Option1 string
	Option2 string
}

// Player holds one participant's slot within a session.
type Player struct {
	Name    string
	Answers []int
	Score   int
}

// Session represents one two-player game round, identified by a short
// numeric code. Questions live only in the cache; the store persists
// everything else.
type Session struct {
	Code            string
	Player1         Player
	Player2         Player
	Status          Status
	CurrentQuestion int
	Questions       []Question
	CreatedAt       time.Time
}

// PlayerByNumber returns the slot for player 1 or 2.
func (s *Session) PlayerByNumber(n int) *Player {
	if n == 1 {
		return &s.Player1
	}
	return &s.Player2
}

// Clone returns a deep copy, so cache entries and returned snapshots never
// alias each other's slices.
func (s *Session) Clone() *Session {
	c := *s
	c.Player1.Answers = append([]int(nil), s.Player1.Answers...)
	c.Player2.Answers = append([]int(nil), s.Player2.Answers...)
	c.Questions = append([]Question(nil), s.Questions...)
	return &c
}

// LeaderboardEntry is the immutable record of one completed session.
type LeaderboardEntry struct {
	ID              int64
	Player1         string
	Player2         string
	MatchingAnswers int
	Score           int
	CreatedAt       time.Time
}

// PlayerStats aggregates a player's completed games.
type PlayerStats struct {
	PlayerID       string
	Username       string
	GamesPlayed    int
	TotalMatches   int
	BestMatches    int
	AverageMatches decimal.Decimal
}

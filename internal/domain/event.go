package domain

const (
	EventNameSessionCompleted   = "session.completed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventSessionCompleted struct {
	Session Session
}

func (EventSessionCompleted) Name() string { return EventNameSessionCompleted }

type EventLeaderboardUpdated struct {
	Entry LeaderboardEntry
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }

package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/pairup/internal/domain"
)

const maxConcurrent = 100

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishSessionCompleted notifies both players of a finished session on
// their own channels.
func (a *API) PublishSessionCompleted(ctx context.Context, e domain.EventSessionCompleted) error {
	ss := e.Session
	data := SessionResponse{
		SessionCode: ss.Code,
		SessionData: toSessionData(&ss),
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, name := range []string{ss.Player1.Name, ss.Player2.Name} {
		name := name
		eg.Go(func() error {
			return a.publishNotification(ctx, a.playerChannel(name), e.Name(), data)
		})
	}

	return eg.Wait()
}

// PublishLeaderboardUpdated broadcasts a fresh leaderboard entry.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	return a.publishNotification(ctx, a.leaderboardChannel(), e.Name(), toEntryData(e.Entry))
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) playerChannel(name string) string {
	return fmt.Sprintf("%s:player:%s", a.prefix, name)
}

func (a *API) leaderboardChannel() string {
	return fmt.Sprintf("%s:leaderboard", a.prefix)
}

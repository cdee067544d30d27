// Package api exposes the game over HTTP and fans out completion
// notifications over redis pub/sub.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
	"github.com/victornm/pairup/internal/event"
	"github.com/victornm/pairup/internal/game"
	"github.com/victornm/pairup/internal/leaderboard"
)

const dateFormat = "01/02/2006"

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Game         *game.Service
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	gs *game.Service
	ls *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		gs:     c.Game,
		ls:     c.Leaderboard,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	r := c.Router
	r.POST("/api/create_session", a.createSession)
	r.POST("/api/join_session", a.joinSession)
	r.POST("/api/submit_answer", a.submitAnswer)
	r.GET("/api/get_session", a.getSession)
	r.GET("/api/get_leaderboard", a.getLeaderboard)
	r.GET("/api/leaderboard/player_stats/:username", a.getPlayerStats)

	if c.EventBus != nil {
		c.EventBus.Subscribe(domain.EventNameSessionCompleted, func(ctx context.Context, e event.Event) error {
			return a.PublishSessionCompleted(ctx, e.(domain.EventSessionCompleted))
		})
		c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
		})
	}

	return a
}

type (
	SessionResponse struct {
		SessionCode string      `json:"session_code"`
		SessionData SessionData `json:"session_data"`
		Message     string      `json:"message,omitempty"`
	}

	SessionData struct {
		Player1         PlayerData     `json:"player1"`
		Player2         PlayerData     `json:"player2"`
		Status          string         `json:"status"`
		CurrentQuestion int            `json:"current_question"`
		Questions       []QuestionData `json:"questions"`
		CreatedAt       string         `json:"created_at"`
	}

	PlayerData struct {
		Name    string `json:"name"`
		Answers []int  `json:"answers"`
		Score   int    `json:"score"`
	}

	QuestionData struct {
		Question string `json:"question"`
		Option1  string `json:"option1"`
		Option2  string `json:"option2"`
	}

	LeaderboardEntryData struct {
		Player1         string `json:"player1"`
		Player2         string `json:"player2"`
		MatchingAnswers int    `json:"matching_answers"`
		Score           int    `json:"score"`
		Date            string `json:"date"`
	}

	PlayerStatsData struct {
		Username          string `json:"username"`
		GamesPlayed       int    `json:"games_played"`
		TotalMatches      int    `json:"total_matches"`
		BestMatchScore    int    `json:"best_match_score"`
		AverageMatchScore string `json:"average_match_score"`
	}
)

func (a *API) createSession(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err), errors.WithMessagef("malformed request body")))
		return
	}

	ss, err := a.gs.CreateSession(c.Request.Context(), game.CreateSessionRequest{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		SessionCode: ss.Code,
		SessionData: toSessionData(ss),
	})
}

func (a *API) joinSession(c *gin.Context) {
	var req struct {
		SessionCode string `json:"session_code"`
		Name        string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err), errors.WithMessagef("malformed request body")))
		return
	}

	ss, err := a.gs.JoinSession(c.Request.Context(), game.JoinSessionRequest{
		SessionCode: req.SessionCode,
		Name:        req.Name,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		SessionCode: ss.Code,
		SessionData: toSessionData(ss),
	})
}

func (a *API) submitAnswer(c *gin.Context) {
	var req struct {
		SessionCode  string `json:"session_code"`
		PlayerNumber int    `json:"player_number"`
		Answer       int    `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err), errors.WithMessagef("malformed request body")))
		return
	}

	resp, err := a.gs.SubmitAnswer(c.Request.Context(), game.SubmitAnswerRequest{
		SessionCode:  req.SessionCode,
		PlayerNumber: req.PlayerNumber,
		Answer:       req.Answer,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := SessionResponse{
		SessionCode: resp.Session.Code,
		SessionData: toSessionData(resp.Session),
	}
	if resp.AlreadyAnswered {
		out.Message = "All questions already answered"
	}

	c.JSON(http.StatusOK, out)
}

func (a *API) getSession(c *gin.Context) {
	code := c.Query("session_code")
	if code == "" {
		writeError(c, errors.New(errors.CodeNotFound, errors.WithMessagef("session code is required")))
		return
	}

	ss, err := a.gs.GetSession(c.Request.Context(), game.GetSessionRequest{SessionCode: code})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionData(ss))
}

func (a *API) getLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := a.ls.TopEntries(c.Request.Context(), leaderboard.TopEntriesRequest{Limit: limit})
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]LeaderboardEntryData, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryData(e))
	}

	c.JSON(http.StatusOK, out)
}

func (a *API) getPlayerStats(c *gin.Context) {
	st, err := a.ls.PlayerStats(c.Request.Context(), leaderboard.PlayerStatsRequest{
		Username: c.Param("username"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PlayerStatsData{
		Username:          st.Username,
		GamesPlayed:       st.GamesPlayed,
		TotalMatches:      st.TotalMatches,
		BestMatchScore:    st.BestMatches,
		AverageMatchScore: st.AverageMatches.StringFixed(2),
	})
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed", "error", err)
	}

	c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}

func toSessionData(s *domain.Session) SessionData {
	return SessionData{
		Player1:         toPlayerData(s.Player1),
		Player2:         toPlayerData(s.Player2),
		Status:          string(s.Status),
		CurrentQuestion: s.CurrentQuestion,
		Questions:       toQuestionData(s.Questions),
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func toPlayerData(p domain.Player) PlayerData {
	answers := p.Answers
	if answers == nil {
		answers = []int{}
	}

	return PlayerData{
		Name:    p.Name,
		Answers: answers,
		Score:   p.Score,
	}
}

func toQuestionData(qs []domain.Question) []QuestionData {
	out := make([]QuestionData, 0, len(qs))
	for _, q := range qs {
		out = append(out, QuestionData{
			Question: q.Text,
			Option1:  q.Option1,
			Option2:  q.Option2,
		})
	}
	return out
}

func toEntryData(e domain.LeaderboardEntry) LeaderboardEntryData {
	return LeaderboardEntryData{
		Player1:         e.Player1,
		Player2:         e.Player2,
		MatchingAnswers: e.MatchingAnswers,
		Score:           e.Score,
		Date:            e.CreatedAt.Format(dateFormat),
	}
}

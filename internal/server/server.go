package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/pairup/internal/api"
	"github.com/victornm/pairup/internal/event"
	"github.com/victornm/pairup/internal/game"
	"github.com/victornm/pairup/internal/leaderboard"
	"github.com/victornm/pairup/internal/question"
	"github.com/victornm/pairup/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Session struct {
			Addr string
			User string
			Pass string
			Name string
		}

		Leaderboard struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Question struct {
		BaseURL string
		APIKey  string
		Model   string
	}

	Game struct {
		RoundLength int
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			session     *pgxpool.Pool
			leaderboard *pgxpool.Pool
		}
	}

	service struct {
		game        *game.Service
		leaderboard *leaderboard.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(addr, user, pass, name string) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", user, pass, addr, name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.session, err = connect(s.c.Postgres.Session.Addr, s.c.Postgres.Session.User, s.c.Postgres.Session.Pass, s.c.Postgres.Session.Name)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	s.infra.postgres.leaderboard, err = connect(s.c.Postgres.Leaderboard.Addr, s.c.Postgres.Leaderboard.User, s.c.Postgres.Leaderboard.Pass, s.c.Postgres.Leaderboard.Name)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		Store:    leaderboard.NewPostgresStore(s.infra.postgres.leaderboard),
		Redis:    s.infra.redis.leaderboard,
		EventBus: s.eb,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	s.service.game = game.NewService(game.Config{
		Store: game.NewPostgresStore(s.infra.postgres.session),
		Cache: game.NewMemoryCache(),
		Questions: question.NewClient(question.ClientConfig{
			BaseURL: s.c.Question.BaseURL,
			APIKey:  s.c.Question.APIKey,
			Model:   s.c.Question.Model,
		}),
		Leaderboard: s.service.leaderboard,
		EventBus:    s.eb,
		RoundLength: s.c.Game.RoundLength,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPMiddleware())

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Game:         s.service.game,
		Leaderboard:  s.service.leaderboard,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.session.Close()
	s.infra.postgres.leaderboard.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}

package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
)

// PostgresStore persists leaderboard entries and player stats.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertEntry(ctx context.Context, e *domain.LeaderboardEntry) (bool, error) {
	const stmt = `
INSERT INTO leaderboard_entries (player1_name, player2_name, matching_answers, score, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (player1_name, player2_name) DO NOTHING
RETURNING id;`

	err := s.db.QueryRow(ctx, stmt, e.Player1, e.Player2, e.MatchingAnswers, e.Score, e.CreatedAt).Scan(&e.ID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert leaderboard entry: %w", err)
	}

	return true, nil
}

func (s *PostgresStore) ListTop(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	const stmt = `
SELECT id, player1_name, player2_name, matching_answers, score, created_at
FROM leaderboard_entries
ORDER BY score DESC, id ASC
LIMIT $1;`

	rows, err := s.db.Query(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("list top entries: %w", err)
	}

	return pgx.CollectRows(rows, scanEntry)
}

func (s *PostgresStore) GetByIDs(ctx context.Context, ids []int64) ([]domain.LeaderboardEntry, error) {
	const stmt = `
SELECT id, player1_name, player2_name, matching_answers, score, created_at
FROM leaderboard_entries
WHERE id = ANY($1);`

	rows, err := s.db.Query(ctx, stmt, ids)
	if err != nil {
		return nil, fmt.Errorf("get entries by ids: %w", err)
	}

	return pgx.CollectRows(rows, scanEntry)
}

func scanEntry(r pgx.CollectableRow) (domain.LeaderboardEntry, error) {
	var e domain.LeaderboardEntry
	if err := r.Scan(&e.ID, &e.Player1, &e.Player2, &e.MatchingAnswers, &e.Score, &e.CreatedAt); err != nil {
		return domain.LeaderboardEntry{}, err
	}
	return e, nil
}

// UpsertStats bumps the player's aggregates, creating the player row on
// first sight.
func (s *PostgresStore) UpsertStats(ctx context.Context, username string, matches int) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const insPlayerStmt = `
INSERT INTO players (id, username) VALUES ($1, $2)
ON CONFLICT (username) DO NOTHING;`

	_, err = tx.Exec(ctx, insPlayerStmt, uuid.NewString(), username)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}

	var playerID string
	err = tx.QueryRow(ctx, `SELECT id FROM players WHERE username = $1;`, username).Scan(&playerID)
	if err != nil {
		return fmt.Errorf("select player: %w", err)
	}

	const upsertStmt = `
INSERT INTO player_stats (player_id, games_played, total_matches, best_matches)
VALUES ($1, 1, $2, $2)
ON CONFLICT (player_id) DO UPDATE
SET games_played  = player_stats.games_played + 1,
    total_matches = player_stats.total_matches + EXCLUDED.total_matches,
    best_matches  = GREATEST(player_stats.best_matches, EXCLUDED.best_matches);`

	_, err = tx.Exec(ctx, upsertStmt, playerID, matches)
	if err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetStats(ctx context.Context, username string) (*domain.PlayerStats, error) {
	const stmt = `
SELECT p.id, p.username, ps.games_played, ps.total_matches, ps.best_matches
FROM players p
JOIN player_stats ps ON ps.player_id = p.id
WHERE p.username = $1;`

	var st domain.PlayerStats
	err := s.db.QueryRow(ctx, stmt, username).Scan(
		&st.PlayerID, &st.Username, &st.GamesPlayed, &st.TotalMatches, &st.BestMatches,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("player not found: username=%s", username))
	}
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}

	return &st, nil
}

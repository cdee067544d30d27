package game

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
)

// Store is the durable side of a session. It is authoritative for names,
// answer sequences, scores, status and progress; it never sees the resolved
// question list.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, code string) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
}

// PostgresStore persists sessions in a single table keyed by code. Answer
// sequences are stored as JSON arrays of small integers.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, ss *domain.Session) error {
	const stmt = `
INSERT INTO sessions (code, player1_name, player2_name, player1_answers, player2_answers, player1_score, player2_score, status, current_question, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	a1, err := encodeAnswers(ss.Player1.Answers)
	if err != nil {
		return err
	}
	a2, err := encodeAnswers(ss.Player2.Answers)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, stmt,
		ss.Code,
		ss.Player1.Name, ss.Player2.Name,
		a1, a2,
		ss.Player1.Score, ss.Player2.Score,
		string(ss.Status), ss.CurrentQuestion, ss.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*domain.Session, error) {
	const stmt = `
SELECT code, player1_name, player2_name, player1_answers, player2_answers, player1_score, player2_score, status, current_question, created_at
FROM sessions WHERE code = $1;`

	var (
		ss     domain.Session
		status string
		a1, a2 []byte
	)
	err := s.db.QueryRow(ctx, stmt, code).Scan(
		&ss.Code,
		&ss.Player1.Name, &ss.Player2.Name,
		&a1, &a2,
		&ss.Player1.Score, &ss.Player2.Score,
		&status, &ss.CurrentQuestion, &ss.CreatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: code=%s", code))
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	ss.Status = domain.Status(status)
	if ss.Player1.Answers, err = decodeAnswers(a1); err != nil {
		return nil, err
	}
	if ss.Player2.Answers, err = decodeAnswers(a2); err != nil {
		return nil, err
	}

	return &ss, nil
}

// Update writes every mutable field in one statement, so sequence and
// status/score mutations land together.
func (s *PostgresStore) Update(ctx context.Context, ss *domain.Session) error {
	const stmt = `
UPDATE sessions
SET player2_name = $2, player1_answers = $3, player2_answers = $4,
    player1_score = $5, player2_score = $6, status = $7, current_question = $8
WHERE code = $1;`

	a1, err := encodeAnswers(ss.Player1.Answers)
	if err != nil {
		return err
	}
	a2, err := encodeAnswers(ss.Player2.Answers)
	if err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx, stmt,
		ss.Code,
		ss.Player2.Name,
		a1, a2,
		ss.Player1.Score, ss.Player2.Score,
		string(ss.Status), ss.CurrentQuestion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: code=%s", ss.Code))
	}

	return nil
}

func encodeAnswers(a []int) ([]byte, error) {
	if a == nil {
		a = []int{}
	}

	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	return b, nil
}

func decodeAnswers(b []byte) ([]int, error) {
	if len(b) == 0 {
		return nil, nil
	}

	var a []int
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}

	return a, nil
}

package storage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eliasbr/fanvoice/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS dead_letters (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			stage TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dead_letters_stage ON dead_letters(stage)`,
		`CREATE INDEX IF NOT EXISTS idx_dead_letters_created ON dead_letters(created_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) CreateDeadLetter(ctx context.Context, d *models.DeadLetter) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, chat_id, user_id, text, stage, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ChatID, d.UserID, d.Text, string(d.Stage), d.Error, d.CreatedAt,
	)
	return err
}

func (s *SQLiteStorage) GetDeadLetter(ctx context.Context, id string) (*models.DeadLetter, error) {
	var d models.DeadLetter
	var stage string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, user_id, text, stage, error, created_at FROM dead_letters WHERE id = ?`, id,
	).Scan(&d.ID, &d.ChatID, &d.UserID, &d.Text, &stage, &d.Error, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Stage = models.Stage(stage)
	return &d, nil
}

func (s *SQLiteStorage) ListDeadLetters(ctx context.Context, limit, offset int) ([]models.DeadLetter, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, user_id, text, stage, error, created_at FROM dead_letters ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []models.DeadLetter
	for rows.Next() {
		var d models.DeadLetter
		var stage string
		if err := rows.Scan(&d.ID, &d.ChatID, &d.UserID, &d.Text, &stage, &d.Error, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Stage = models.Stage(stage)
		letters = append(letters, d)
	}
	return letters, rows.Err()
}

func (s *SQLiteStorage) DeleteDeadLetter(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, id)
	return err
}

func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStage: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&stats.TotalDeadLetters); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM dead_letters GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var stage string
		var count int64
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		stats.ByStage[stage] = count
	}
	return stats, rows.Err()
}

package storage

import (
	"context"

	"github.com/eliasbr/fanvoice/internal/models"
)

type Storage interface {
	// Dead letters
	CreateDeadLetter(ctx context.Context, d *models.DeadLetter) error
	GetDeadLetter(ctx context.Context, id string) (*models.DeadLetter, error)
	ListDeadLetters(ctx context.Context, limit, offset int) ([]models.DeadLetter, error)
	DeleteDeadLetter(ctx context.Context, id string) error

	// Stats
	GetStats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

type Stats struct {
	TotalDeadLetters int64            `json:"total_dead_letters"`
	ByStage          map[string]int64 `json:"by_stage"`
}

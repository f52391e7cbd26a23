package repositories

import (
	"context"
	"medwatch/internal/database"
	"medwatch/internal/logger"

	"gorm.io/gorm"
)

type CounterRepository interface {
	NextValue(ctx context.Context, tx *gorm.DB, name string) (int64, error)
}

type counterRepository struct {
	db  database.DB
	log logger.Logger
}

func NewCounterRepository(db database.DB) CounterRepository {
	return &counterRepository{
		db:  db,
		log: logger.New("counterRepository"),
	}
}

// NextValue atomically increments the named counter and returns the new
// value. The upsert seeds the counter at 1 on first use; concurrent callers
// serialize on the row and never see the same value twice.
func (r *counterRepository) NextValue(
	ctx context.Context,
	tx *gorm.DB,
	name string,
) (int64, error) {
	log := r.log.Function("NextValue")

	var value int64
	err := tx.Raw(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, log.Err("failed to increment counter", err, "name", name)
	}

	return value, nil
}

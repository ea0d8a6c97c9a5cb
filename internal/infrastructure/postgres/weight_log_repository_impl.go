package postgres

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/domain/repository"
)

type WeightLogRepository struct {
	pool *pgxpool.Pool
}

func NewWeightLogRepository(pool *pgxpool.Pool) *WeightLogRepository {
	return &WeightLogRepository{pool: pool}
}

// AppendWeightEntry inserts only when the owning user exists, so a missing user
// surfaces as repository.ErrNotFound instead of a foreign-key violation.
func (r *WeightLogRepository) AppendWeightEntry(ctx context.Context, userID string, e entity.WeightLogEntry) error {
	pid, err := parseID(userID)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO weight_log_entries (user_id, weight, logged_on)
		SELECT id, $2, $3 FROM users WHERE id = $1
	`, pid, *e.Weight, e.Date.In(time.UTC))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *WeightLogRepository) ListWeightEntries(ctx context.Context, userID string) ([]entity.WeightLogEntry, error) {
	pid, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT weight, logged_on
		FROM weight_log_entries
		WHERE user_id = $1
		ORDER BY id
	`, pid)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.WeightLogEntry, error) {
		var (
			weight   float64
			loggedOn time.Time
		)
		if err := row.Scan(&weight, &loggedOn); err != nil {
			return entity.WeightLogEntry{}, err
		}
		d := civil.DateOf(loggedOn)
		return entity.WeightLogEntry{Weight: &weight, Date: &d}, nil
	})
}

var _ repository.WeightLogRepository = (*WeightLogRepository)(nil)

package repository

import (
	"context"
	"errors"

	"github.com/calcount/calcount-api/internal/domain/entity"
)

var (
	// ErrNotFound is returned by stores when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique username/email/id constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the persistence operations for user records.
// Save is an idempotent upsert keyed by ID. SaveAll persists every record as
// one atomic unit: either all are durably written or none are.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SearchByUsername(ctx context.Context, fragment string, limit int) ([]*entity.User, error)
	ListUsernames(ctx context.Context) ([]string, error)
	Save(ctx context.Context, u *entity.User) error
	SaveAll(ctx context.Context, users ...*entity.User) error
}

// WeightLogRepository stores the append-only weight log of each user.
type WeightLogRepository interface {
	AppendWeightEntry(ctx context.Context, userID string, e entity.WeightLogEntry) error
	ListWeightEntries(ctx context.Context, userID string) ([]entity.WeightLogEntry, error)
}

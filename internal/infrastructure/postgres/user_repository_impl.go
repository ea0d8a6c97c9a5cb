package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id::text, username, email, first_name, middle_name, last_name, password_hash,
	sent_requests, friend_requests, friends, created_at, updated_at`

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, first_name, middle_name, last_name, password_hash,
			sent_requests, friend_requests, friends)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, u.ID, u.Username, u.Email, u.FullName.FirstName, u.FullName.MiddleName, u.FullName.LastName,
		u.PasswordHash, nonNil(u.SentRequests), nonNil(u.FriendRequests), nonNil(u.Friends))

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, pid)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *UserRepository) SearchByUsername(ctx context.Context, fragment string, limit int) ([]*entity.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(username) LIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY username
		LIMIT $2
	`, escapeLike(strings.ToLower(fragment)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT username FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	return upsertUser(ctx, r.pool, u)
}

// SaveAll writes every record inside one transaction.
func (r *UserRepository) SaveAll(ctx context.Context, users ...*entity.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, u := range users {
			if err := upsertUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertUser(ctx context.Context, db execer, u *entity.User) error {
	u.UpdatedAt = time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = u.UpdatedAt
	}
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, username, email, first_name, middle_name, last_name, password_hash,
			sent_requests, friend_requests, friends, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name,
			password_hash = EXCLUDED.password_hash,
			sent_requests = EXCLUDED.sent_requests,
			friend_requests = EXCLUDED.friend_requests,
			friends = EXCLUDED.friends,
			updated_at = EXCLUDED.updated_at
	`, u.ID, u.Username, u.Email, u.FullName.FirstName, u.FullName.MiddleName, u.FullName.LastName,
		u.PasswordHash, nonNil(u.SentRequests), nonNil(u.FriendRequests), nonNil(u.Friends),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, mapErr(err))
	}
	return nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email,
		&u.FullName.FirstName, &u.FullName.MiddleName, &u.FullName.LastName, &u.PasswordHash,
		&u.SentRequests, &u.FriendRequests, &u.Friends, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// parseID validates a user id before it reaches an indexed uuid column. An id
// that is not a uuid cannot match any row.
func parseID(id string) (uuid.UUID, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, repository.ErrNotFound
	}
	return pid, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Package memory provides a process-local user store. It backs the "memory"
// store driver for local development and is the store used by service tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*entity.User
	order   []string
	weights map[string][]entity.WeightLogEntry
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*entity.User),
		weights: make(map[string][]entity.WeightLogEntry),
	}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return repository.ErrDuplicate
	}
	if r.conflictLocked(u) {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = u.Clone()
	r.order = append(r.order, u.ID)
	return nil
}

// conflictLocked reports whether another record already owns u's username or
// email. Usernames match exactly; emails ignore case.
func (r *UserRepository) conflictLocked(u *entity.User) bool {
	for id, other := range r.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return true
		}
	}
	return false
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(func(u *entity.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) findOne(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if u := r.users[id]; match(u) {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *UserRepository) SearchByUsername(ctx context.Context, fragment string, limit int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(fragment)
	out := make([]*entity.User, 0)
	for _, id := range r.order {
		u := r.users[id]
		if !strings.Contains(strings.ToLower(u.Username), needle) {
			continue
		}
		out = append(out, u.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id].Username)
	}
	return out, nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	return r.SaveAll(ctx, u)
}

// SaveAll validates every record before writing any of them, so a rejected
// record leaves the store untouched.
func (r *UserRepository) SaveAll(ctx context.Context, users ...*entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		if r.conflictLocked(u) {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	for _, u := range users {
		u.UpdatedAt = now
		if _, ok := r.users[u.ID]; !ok {
			if u.CreatedAt.IsZero() {
				u.CreatedAt = now
			}
			r.order = append(r.order, u.ID)
		}
		r.users[u.ID] = u.Clone()
	}
	return nil
}

func (r *UserRepository) AppendWeightEntry(ctx context.Context, userID string, e entity.WeightLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return repository.ErrNotFound
	}
	r.weights[userID] = append(r.weights[userID], cloneEntry(e))
	return nil
}

func (r *UserRepository) ListWeightEntries(ctx context.Context, userID string) ([]entity.WeightLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.users[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]entity.WeightLogEntry, 0, len(r.weights[userID]))
	for _, e := range r.weights[userID] {
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

// Delete drops a user record without touching references held by others.
// It exists so stale friend references can be reproduced.
func (r *UserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	delete(r.weights, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
}

func cloneEntry(e entity.WeightLogEntry) entity.WeightLogEntry {
	out := entity.WeightLogEntry{}
	if e.Weight != nil {
		w := *e.Weight
		out.Weight = &w
	}
	if e.Date != nil {
		d := *e.Date
		out.Date = &d
	}
	return out
}

var (
	_ repository.UserRepository      = (*UserRepository)(nil)
	_ repository.WeightLogRepository = (*UserRepository)(nil)
)

package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/calcount/calcount-api/internal/domain/entity"
	repo "github.com/calcount/calcount-api/internal/domain/repository"
	"github.com/calcount/calcount-api/pkg/helpers"
)

const defaultSearchLimit = 50

// UserSearcher is an optional secondary index used for partial-username search.
type UserSearcher interface {
	IndexUser(ctx context.Context, u *entity.User) error
	SearchUsernames(ctx context.Context, fragment string, limit int) ([]string, error)
}

type Service struct {
	Repo    repo.UserRepository
	Weights repo.WeightLogRepository
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Logger  *logrus.Logger
	Search  UserSearcher
}

func NewService(users repo.UserRepository, weights repo.WeightLogRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, search UserSearcher) *Service {
	return &Service{
		Repo:    users,
		Weights: weights,
		JWT:     jwt,
		Redis:   rdb,
		Logger:  logger,
		Search:  search,
	}
}

type RegisterInput struct {
	Username string
	FullName entity.FullName
	Email    string
	Password string
}

// Register creates a user after checking username and email uniqueness.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if taken, err := s.Repo.ExistsByUsername(ctx, in.Username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}
	if taken, err := s.Repo.ExistsByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		ID:             uuid.NewString(),
		Username:       in.Username,
		FullName:       in.FullName,
		Email:          strings.TrimSpace(in.Email),
		PasswordHash:   hash,
		SentRequests:   []string{},
		FriendRequests: []string{},
		Friends:        []string{},
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// lost a race with a concurrent registration
			taken, err := s.Repo.ExistsByUsername(ctx, in.Username)
			if err != nil {
				return nil, fmt.Errorf("check username: %w", err)
			}
			if taken {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.Search != nil {
		if err := s.Search.IndexUser(ctx, u); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).WithField("username", u.Username).Info("user registered")
	}
	return u, nil
}

// Authenticate validates username/password and returns the user without issuing a token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

type LoginResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates and issues a token. When Redis is configured the token
// is bound to a server-side session that Logout revokes.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	tok, err := s.JWT.IssueToken(u.Username)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return nil, err
	}

	if s.Redis != nil {
		sess := helpers.Session{
			SessionID: tok.SessionID,
			UserID:    u.ID,
			Username:  u.Username,
			CreatedAt: time.Now().UTC(),
		}
		key := helpers.SessionKey(u.Username)
		if err := helpers.RedisSetJSON(ctx, s.Redis, key, sess, time.Until(tok.ExpiresAt)); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("key", key).Error("store session failed")
			}
			return nil, fmt.Errorf("store session: %w", err)
		}
	}
	return &LoginResult{User: u, Token: tok.Value, ExpiresAt: tok.ExpiresAt}, nil
}

// Logout revokes the active session of username.
func (s *Service) Logout(ctx context.Context, username string) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, helpers.SessionKey(username))
}

// Identity is the authenticated actor resolved from a bearer token.
type Identity struct {
	UserID   string
	Username string
}

// ResolveToken validates token and maps it to the acting user. With Redis the
// token's session id must match the active session; without Redis the user
// is looked up by the token subject.
func (s *Service) ResolveToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.JWT.Parse(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	username := claims.Username()

	if s.Redis != nil {
		var sess helpers.Session
		found, err := helpers.RedisGetJSON(ctx, s.Redis, helpers.SessionKey(username), &sess)
		if err != nil {
			return Identity{}, fmt.Errorf("load session: %w", err)
		}
		if !found || sess.SessionID != claims.SessionID() {
			return Identity{}, ErrSessionNotFound
		}
		return Identity{UserID: sess.UserID, Username: username}, nil
	}

	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, fmt.Errorf("load user: %w", err)
	}
	return Identity{UserID: u.ID, Username: u.Username}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.lookup(func() (*entity.User, error) { return s.Repo.GetByID(ctx, id) })
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.lookup(func() (*entity.User, error) { return s.Repo.GetByUsername(ctx, username) })
}

func (s *Service) lookup(get func() (*entity.User, error)) (*entity.User, error) {
	u, err := get()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// SearchByUsername returns users whose username contains fragment, ignoring
// case, ordered by username. The search index is consulted first; a page
// shorter than the limit is completed from the store, which stays
// authoritative for users the index never saw.
func (s *Service) SearchByUsername(ctx context.Context, fragment string) ([]*entity.User, error) {
	fragment = strings.TrimSpace(fragment)
	if s.Search == nil {
		return s.Repo.SearchByUsername(ctx, fragment, defaultSearchLimit)
	}

	indexed, err := s.searchIndexed(ctx, fragment)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("fragment", fragment).Warn("es search failed; falling back to store")
		}
		return s.Repo.SearchByUsername(ctx, fragment, defaultSearchLimit)
	}
	if len(indexed) >= defaultSearchLimit {
		return indexed, nil
	}

	stored, err := s.Repo.SearchByUsername(ctx, fragment, defaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}
	return mergeUsers(indexed, stored, defaultSearchLimit), nil
}

// mergeUsers unions a and b by id, sorts by username and caps at limit.
func mergeUsers(a, b []*entity.User, limit int) []*entity.User {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]*entity.User, 0, len(a)+len(b))
	for _, list := range [][]*entity.User{a, b} {
		for _, u := range list {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	slices.SortStableFunc(out, func(x, y *entity.User) int { return strings.Compare(x.Username, y.Username) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Service) searchIndexed(ctx context.Context, fragment string) ([]*entity.User, error) {
	ids, err := s.Search.SearchUsernames(ctx, fragment, defaultSearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Repo.GetByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Service) ListUsernames(ctx context.Context) ([]string, error) {
	return s.Repo.ListUsernames(ctx)
}

// AddWeightLogEntry rejects empty entries and negative weights before checking
// that the user exists.
func (s *Service) AddWeightLogEntry(ctx context.Context, userID string, e entity.WeightLogEntry) (err error) {
	defer func() { weightEntriesTotal.WithLabelValues(outcome(err)).Inc() }()

	if e.IsEmpty() {
		return ErrEmptyEntry
	}
	if *e.Weight < 0 {
		return ErrInvalidWeight
	}
	if err := s.Weights.AppendWeightEntry(ctx, userID, e); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("append weight entry: %w", err)
	}
	return nil
}

// GetWeightLog returns a copy of the user's weight log in insertion order.
func (s *Service) GetWeightLog(ctx context.Context, userID string) ([]entity.WeightLogEntry, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.Weights.ListWeightEntries(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("list weight entries: %w", err)
	}
	return entries, nil
}

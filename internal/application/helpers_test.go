package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/infrastructure/memory"
)

func seedUser(t *testing.T, store *memory.UserRepository, username string) *entity.User {
	t.Helper()
	u := &entity.User{
		ID:       uuid.NewString(),
		Username: username,
		FullName: entity.FullName{FirstName: "Test", LastName: username},
		Email:    username + "@example.com",
	}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func mustGet(t *testing.T, store *memory.UserRepository, id string) *entity.User {
	t.Helper()
	u, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func entry(weight float64, y int, m int, d int) entity.WeightLogEntry {
	date := civil.Date{Year: y, Month: time.Month(m), Day: d}
	return entity.WeightLogEntry{Weight: &weight, Date: &date}
}

// MockNotifier records notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) FriendRequestSent(ctx context.Context, sender, receiver *entity.User) {
	m.Called(sender.ID, receiver.ID)
}

func (m *MockNotifier) FriendRequestAccepted(ctx context.Context, accepter, requester *entity.User) {
	m.Called(accepter.ID, requester.ID)
}

// failingSaveStore rejects every SaveAll while delegating everything else.
type failingSaveStore struct {
	*memory.UserRepository
}

var errStoreDown = errors.New("store unavailable")

func (s failingSaveStore) SaveAll(ctx context.Context, users ...*entity.User) error {
	return errStoreDown
}

// brokenLookupStore fails GetByID for one id with a non-not-found error.
type brokenLookupStore struct {
	*memory.UserRepository
	brokenID string
}

func (s brokenLookupStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if id == s.brokenID {
		return nil, errStoreDown
	}
	return s.UserRepository.GetByID(ctx, id)
}

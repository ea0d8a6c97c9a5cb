package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/calcount/calcount-api/internal/domain/entity"
	repo "github.com/calcount/calcount-api/internal/domain/repository"
)

// FriendService runs the friend-request state machine. Every mutation touches
// exactly two user records and persists them with one SaveAll call.
type FriendService struct {
	Repo     repo.UserRepository
	Weights  repo.WeightLogRepository
	Notifier Notifier
	Logger   *logrus.Logger
}

func NewFriendService(users repo.UserRepository, weights repo.WeightLogRepository, notifier Notifier, logger *logrus.Logger) *FriendService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &FriendService{Repo: users, Weights: weights, Notifier: notifier, Logger: logger}
}

// SendFriendRequest records a pending request from sender to receiver.
func (s *FriendService) SendFriendRequest(ctx context.Context, senderID, receiverID string) (err error) {
	defer s.observe("send", senderID, receiverID, &err)

	if senderID == receiverID {
		return ErrSelfRequest
	}
	sender, receiver, err := s.loadPair(ctx, senderID, receiverID, ErrUserNotFound, ErrReceiverNotFound)
	if err != nil {
		return err
	}

	switch {
	case sender.IsFriendOf(receiverID) || receiver.IsFriendOf(senderID):
		return ErrAlreadyFriends
	case sender.HasSentRequestTo(receiverID) || receiver.HasRequestFrom(senderID):
		return ErrRequestAlreadySent
	case sender.HasRequestFrom(receiverID) || receiver.HasSentRequestTo(senderID):
		return ErrRequestPendingFromOther
	}

	sender.SentRequests = entity.AppendUnique(sender.SentRequests, receiverID)
	receiver.FriendRequests = entity.AppendUnique(receiver.FriendRequests, senderID)
	if err := s.Repo.SaveAll(ctx, sender, receiver); err != nil {
		return fmt.Errorf("save friend request: %w", err)
	}

	s.Notifier.FriendRequestSent(ctx, sender, receiver)
	return nil
}

// AcceptFriendRequest turns the pending request from requester into a friendship.
func (s *FriendService) AcceptFriendRequest(ctx context.Context, accepterID, requesterID string) (err error) {
	defer s.observe("accept", accepterID, requesterID, &err)

	accepter, requester, err := s.loadPair(ctx, accepterID, requesterID, ErrUserNotFound, ErrRequesterNotFound)
	if err != nil {
		return err
	}
	if accepter.IsFriendOf(requesterID) || requester.IsFriendOf(accepterID) {
		return ErrAlreadyFriends
	}
	if !accepter.HasRequestFrom(requesterID) {
		return ErrNoRequestFound
	}

	accepter.Friends = entity.AppendUnique(accepter.Friends, requesterID)
	requester.Friends = entity.AppendUnique(requester.Friends, accepterID)
	accepter.FriendRequests = entity.RemoveID(accepter.FriendRequests, requesterID)
	requester.SentRequests = entity.RemoveID(requester.SentRequests, accepterID)
	if err := s.Repo.SaveAll(ctx, accepter, requester); err != nil {
		return fmt.Errorf("save accepted request: %w", err)
	}

	s.Notifier.FriendRequestAccepted(ctx, accepter, requester)
	return nil
}

// RemoveFriend dissolves a symmetric friendship.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) (err error) {
	defer s.observe("remove", userID, friendID, &err)

	user, friend, err := s.loadPair(ctx, userID, friendID, ErrUserNotFound, ErrFriendNotFound)
	if err != nil {
		return err
	}
	if !user.IsFriendOf(friendID) || !friend.IsFriendOf(userID) {
		return ErrNotFriends
	}

	user.Friends = entity.RemoveID(user.Friends, friendID)
	friend.Friends = entity.RemoveID(friend.Friends, userID)
	if err := s.Repo.SaveAll(ctx, user, friend); err != nil {
		return fmt.Errorf("save removed friend: %w", err)
	}
	return nil
}

// ListFriendsWeightData returns each resolvable friend with their weight log,
// in friends-list order. Friend ids that no longer resolve are skipped.
func (s *FriendService) ListFriendsWeightData(ctx context.Context, userID string) ([]entity.FriendData, error) {
	user, err := s.load(ctx, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	out := make([]entity.FriendData, 0, len(user.Friends))
	for _, id := range user.Friends {
		friend, err := s.Repo.GetByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			if s.Logger != nil {
				s.Logger.WithField("user_id", userID).WithField("friend_id", id).Debug("skipping unresolved friend")
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load friend %s: %w", id, err)
		}
		entries, err := s.Weights.ListWeightEntries(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load weight log of %s: %w", id, err)
		}
		out = append(out, entity.FriendData{
			FriendID:  friend.ID,
			Username:  friend.Username,
			FullName:  friend.FullName,
			WeightLog: entries,
		})
	}
	return out, nil
}

// ListFriendRequests returns the ids of users with a pending request to userID.
func (s *FriendService) ListFriendRequests(ctx context.Context, userID string) ([]string, error) {
	user, err := s.load(ctx, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return user.FriendRequests, nil
}

// ListSentRequests returns the ids userID has sent unanswered requests to.
func (s *FriendService) ListSentRequests(ctx context.Context, userID string) ([]string, error) {
	user, err := s.load(ctx, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return user.SentRequests, nil
}

// ListFriends returns the ids of userID's friends in the order they were added.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]string, error) {
	user, err := s.load(ctx, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return user.Friends, nil
}

func (s *FriendService) load(ctx context.Context, id string, notFound error) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return u, nil
}

// loadPair resolves both sides of a two-party operation. Both lookups always
// run so that a pair of missing users is reported as ErrBothNotFound.
func (s *FriendService) loadPair(ctx context.Context, firstID, secondID string, firstMissing, secondMissing error) (*entity.User, *entity.User, error) {
	first, err1 := s.load(ctx, firstID, firstMissing)
	second, err2 := s.load(ctx, secondID, secondMissing)

	missing1 := errors.Is(err1, ErrNotFound)
	missing2 := errors.Is(err2, ErrNotFound)
	switch {
	case missing1 && missing2:
		return nil, nil, ErrBothNotFound
	case err1 != nil && !missing1:
		return nil, nil, err1
	case err2 != nil && !missing2:
		return nil, nil, err2
	case missing1:
		return nil, nil, err1
	case missing2:
		return nil, nil, err2
	}
	return first, second, nil
}

func (s *FriendService) observe(op, actorID, otherID string, errp *error) {
	err := *errp
	friendOpsTotal.WithLabelValues(op, outcome(err)).Inc()
	if s.Logger == nil {
		return
	}
	entry := s.Logger.WithField("op", op).WithField("actor_id", actorID).WithField("other_id", otherID)
	if err != nil && outcome(err) == "error" {
		entry.WithError(err).Error("friend operation failed")
		return
	}
	entry.WithField("outcome", outcome(err)).Debug("friend operation")
}

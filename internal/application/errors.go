package application

import "errors"

// kindError is a sentinel that belongs to a broader family, so callers can
// match either the exact case or the family with errors.Is.
type kindError struct {
	msg    string
	family error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.family }

func newKind(msg string, family error) error { return &kindError{msg: msg, family: family} }

var (
	ErrNotFound          = errors.New("not found")
	ErrUserNotFound      = newKind("user not found", ErrNotFound)
	ErrReceiverNotFound  = newKind("receiver not found", ErrNotFound)
	ErrRequesterNotFound = newKind("requester not found", ErrNotFound)
	ErrFriendNotFound    = newKind("friend not found", ErrNotFound)
	ErrBothNotFound      = newKind("neither user was found", ErrNotFound)

	ErrSelfRequest    = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends = errors.New("users are already friends")

	ErrDuplicateRequest        = errors.New("friend request already exists")
	ErrRequestAlreadySent      = newKind("friend request already sent", ErrDuplicateRequest)
	ErrRequestPendingFromOther = newKind("friend request pending from the other user", ErrDuplicateRequest)

	ErrNoRequestFound = errors.New("no friend request found")
	ErrNotFriends     = errors.New("users are not friends")
	ErrEmptyEntry     = errors.New("weight log entry is empty")
	ErrInvalidWeight  = errors.New("weight must be positive")

	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionNotFound    = errors.New("session not found")
)

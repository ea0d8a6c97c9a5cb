package entity

import (
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// User is the aggregate root for the user domain. It owns the three
// relationship lists of the friend graph; the weight log lives in its own
// store and is attached only on read models (FriendData).
//
// Passwords are stored as bcrypt hashes in PasswordHash.
type User struct {
	ID             string
	Username       string
	FullName       FullName
	Email          string
	PasswordHash   string
	SentRequests   []string
	FriendRequests []string
	Friends        []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName is the structured name of a user. MiddleName is optional.
type FullName struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
}

func (n FullName) String() string {
	parts := []string{n.FirstName}
	if strings.TrimSpace(n.MiddleName) != "" {
		parts = append(parts, n.MiddleName)
	}
	parts = append(parts, n.LastName)
	return strings.Join(parts, " ")
}

// WeightLogEntry is one body-weight sample. Both fields are nullable on the
// wire; an entry missing either one is empty.
type WeightLogEntry struct {
	Weight *float64    `json:"weight"`
	Date   *civil.Date `json:"date"`
}

// IsEmpty reports whether the entry lacks a weight, lacks a date, or carries a
// zero weight.
func (e WeightLogEntry) IsEmpty() bool {
	return e.Weight == nil || e.Date == nil || *e.Weight == 0.0
}

// FriendData is the read model returned when listing friends' weight logs.
type FriendData struct {
	FriendID  string           `json:"friend_id"`
	Username  string           `json:"friend_username"`
	FullName  FullName         `json:"friend_full_name"`
	WeightLog []WeightLogEntry `json:"weight_log"`
}

func (u *User) IsFriendOf(id string) bool       { return slices.Contains(u.Friends, id) }
func (u *User) HasSentRequestTo(id string) bool { return slices.Contains(u.SentRequests, id) }
func (u *User) HasRequestFrom(id string) bool   { return slices.Contains(u.FriendRequests, id) }

// Clone returns a deep copy so stores never share slices with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.SentRequests = cloneIDs(u.SentRequests)
	c.FriendRequests = cloneIDs(u.FriendRequests)
	c.Friends = cloneIDs(u.Friends)
	return &c
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// AppendUnique appends id to ids unless it is already present.
func AppendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// RemoveID returns ids without any occurrence of id, preserving order.
func RemoveID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(v string) bool { return v == id })
}

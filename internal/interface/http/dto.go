package handlers

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/calcount/calcount-api/internal/domain/entity"
)

type fullNameRequest struct {
	FirstName  string `json:"first_name" binding:"required,min=1,max=30,personname"`
	MiddleName string `json:"middle_name" binding:"omitempty,max=30,personname"`
	LastName   string `json:"last_name" binding:"required,min=1,max=30,personname"`
}

type registerRequest struct {
	Username string          `json:"username" binding:"required,min=3,max=30,username"`
	FullName fullNameRequest `json:"full_name"`
	Email    string          `json:"email" binding:"required,email,max=50"`
	Password string          `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// weightEntryRequest lets a null or zero weight through so the empty-entry
// rule is applied in one place.
type weightEntryRequest struct {
	Weight *float64    `json:"weight" binding:"omitempty,gte=0"`
	Date   *civil.Date `json:"date"`
}

// userDetails is the public view of another user.
type userDetails struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	FullName entity.FullName `json:"full_name"`
	Email    string          `json:"email"`
}

// accountDetails is the caller's own record.
type accountDetails struct {
	userDetails
	SentRequests   []string `json:"sent_requests"`
	FriendRequests []string `json:"friend_requests"`
	Friends        []string `json:"friends"`
	CreatedAt      string   `json:"created_at"`
}

type loginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   string         `json:"expires_at"`
	User        accountDetails `json:"user"`
}

func toUserDetails(u *entity.User) userDetails {
	return userDetails{ID: u.ID, Username: u.Username, FullName: u.FullName, Email: u.Email}
}

func toUserDetailsList(users []*entity.User) []userDetails {
	out := make([]userDetails, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDetails(u))
	}
	return out
}

func toAccountDetails(u *entity.User) accountDetails {
	return accountDetails{
		userDetails:    toUserDetails(u),
		SentRequests:   nonNil(u.SentRequests),
		FriendRequests: nonNil(u.FriendRequests),
		Friends:        nonNil(u.Friends),
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

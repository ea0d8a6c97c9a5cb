package templates

import (
	"net/url"
	"strings"
	"time"

	"github.com/calcount/calcount-api/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithActionURL(u string) Option { return func(d *EmailData) { d.ActionURL = u } }

func WithFriend(username, fullName string) Option {
	return func(d *EmailData) {
		d.FriendUsername = username
		d.FriendFullName = strings.TrimSpace(fullName)
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, name, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,

		LogoURL:    cfg.LogoURL,
		SupportURL: cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewFriendRequestSentData is sent to the receiver of a new friend request.
func NewFriendRequestSentData(cfg *config.Config, name, recipient, fromUsername, fromFullName string, opts ...Option) map[string]any {
	opts = append([]Option{
		WithFriend(fromUsername, fromFullName),
		WithActionURL(appLink(cfg.AppURL, "friends", "requests")),
	}, opts...)
	return ToMap(NewBaseEmailData(cfg, FriendRequestSent, name, recipient, opts...))
}

// NewFriendRequestAcceptedData is sent to the original requester once accepted.
func NewFriendRequestAcceptedData(cfg *config.Config, name, recipient, byUsername, byFullName string, opts ...Option) map[string]any {
	opts = append([]Option{
		WithFriend(byUsername, byFullName),
		WithActionURL(appLink(cfg.AppURL, "friends")),
	}, opts...)
	return ToMap(NewBaseEmailData(cfg, FriendRequestAccepted, name, recipient, opts...))
}

func appLink(base string, elem ...string) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	u, err := url.JoinPath(base, elem...)
	if err != nil {
		return ""
	}
	return u
}

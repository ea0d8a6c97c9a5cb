package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calcount/calcount-api/pkg/mailer"
	mailtpl "github.com/calcount/calcount-api/pkg/mailer/templates"
)

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "You have a new friend request", SubjectFor(map[string]any{"Type": mailtpl.FriendRequestSent}))
	assert.Equal(t, "Your friend request was accepted", SubjectFor(map[string]any{"Type": "FRIEND_REQUEST_ACCEPTED"}))
	assert.Equal(t, "Notification", SubjectFor(map[string]any{}))
	assert.Equal(t, "Notification", SubjectFor(nil))
}

func TestEnsureRecipient(t *testing.T) {
	job := mailer.EmailJob{To: "nora@example.com"}
	EnsureRecipient(&job)
	assert.Equal(t, "nora@example.com", job.Data["RecipientEmail"])

	job = mailer.EmailJob{To: "nora@example.com", Data: map[string]any{"RecipientEmail": "kept@example.com"}}
	EnsureRecipient(&job)
	assert.Equal(t, "kept@example.com", job.Data["RecipientEmail"])
}

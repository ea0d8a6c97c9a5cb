package helpers

import (
	"fmt"
	"strings"

	"github.com/calcount/calcount-api/pkg/mailer"
	mailtpl "github.com/calcount/calcount-api/pkg/mailer/templates"
)

// SubjectFor is used when a job carries neither a subject nor a template.
func SubjectFor(data map[string]any) string {
	switch strings.ToLower(fmt.Sprintf("%v", data["Type"])) {
	case mailtpl.FriendRequestSent:
		return "You have a new friend request"
	case mailtpl.FriendRequestAccepted:
		return "Your friend request was accepted"
	default:
		return "Notification"
	}
}

func EnsureRecipient(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

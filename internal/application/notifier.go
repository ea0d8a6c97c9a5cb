package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calcount/calcount-api/config"
	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/pkg/helpers"
	"github.com/calcount/calcount-api/pkg/mailer"
	mailtpl "github.com/calcount/calcount-api/pkg/mailer/templates"
)

// Notifier is told about friend-graph transitions after they are committed.
// Implementations must not fail the operation that triggered them.
type Notifier interface {
	FriendRequestSent(ctx context.Context, sender, receiver *entity.User)
	FriendRequestAccepted(ctx context.Context, accepter, requester *entity.User)
}

type NopNotifier struct{}

func (NopNotifier) FriendRequestSent(context.Context, *entity.User, *entity.User)     {}
func (NopNotifier) FriendRequestAccepted(context.Context, *entity.User, *entity.User) {}

// QueueNotifier enqueues notification emails for the notification worker.
type QueueNotifier struct {
	Pub    helpers.Publisher
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewQueueNotifier(pub helpers.Publisher, cfg *config.Config, logger *logrus.Logger) *QueueNotifier {
	return &QueueNotifier{Pub: pub, Cfg: cfg, Logger: logger}
}

func (n *QueueNotifier) FriendRequestSent(ctx context.Context, sender, receiver *entity.User) {
	data := mailtpl.NewFriendRequestSentData(n.Cfg, receiver.FullName.FirstName, receiver.Email,
		sender.Username, sender.FullName.String(), mailtpl.WithTime(time.Now()))
	n.enqueue(ctx, mailer.NewTemplateJob(receiver.Email, mailtpl.FriendRequestSent, data))
}

func (n *QueueNotifier) FriendRequestAccepted(ctx context.Context, accepter, requester *entity.User) {
	data := mailtpl.NewFriendRequestAcceptedData(n.Cfg, requester.FullName.FirstName, requester.Email,
		accepter.Username, accepter.FullName.String(), mailtpl.WithTime(time.Now()))
	n.enqueue(ctx, mailer.NewTemplateJob(requester.Email, mailtpl.FriendRequestAccepted, data))
}

func (n *QueueNotifier) enqueue(ctx context.Context, job mailer.EmailJob) {
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := n.Pub.PublishJSON(c, job); err != nil {
		notificationsTotal.WithLabelValues(job.Template, "error").Inc()
		if n.Logger != nil {
			n.Logger.WithError(err).WithField("template", job.Template).Warn("enqueue notification failed")
		}
		return
	}
	notificationsTotal.WithLabelValues(job.Template, "queued").Inc()
}

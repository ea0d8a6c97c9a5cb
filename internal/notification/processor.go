package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calcount/calcount-api/pkg/helpers"
	"github.com/calcount/calcount-api/pkg/mailer"
	mailtpl "github.com/calcount/calcount-api/pkg/mailer/templates"
)

// Outcome tells the consumer how to settle a delivery.
type Outcome int

const (
	Ack     Outcome = iota // delivered
	Discard                // malformed; never retry
	Requeue                // transient send failure
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Discard:
		return "discard"
	case Requeue:
		return "requeue"
	}
	return "unknown"
}

var (
	errNoRecipient     = errors.New("job has no recipient")
	errUnknownTemplate = errors.New("unknown template")
)

// Processor renders queued email jobs and hands them to a Sender.
type Processor struct {
	Sender      mailer.Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewProcessor(sender mailer.Sender, logger *logrus.Logger) *Processor {
	return &Processor{Sender: sender, Logger: logger, SendTimeout: 15 * time.Second}
}

// Handle processes one message body.
func (p *Processor) Handle(ctx context.Context, body []byte) Outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		p.log().WithError(err).Warn("bad notification message")
		return Discard
	}

	subject, text, html, err := Compose(&job)
	if err != nil {
		p.log().WithError(err).WithField("template", job.Template).Warn("cannot compose notification")
		return Discard
	}

	c, cancel := context.WithTimeout(ctx, p.SendTimeout)
	defer cancel()
	if err := p.Sender.Send(c, job.To, subject, text, html); err != nil {
		p.log().WithError(err).WithField("to", job.To).Error("send failed")
		return Requeue
	}
	p.log().WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("notification sent")
	return Ack
}

// Compose resolves the final subject and bodies of job. Template output wins
// over inline fields.
func Compose(job *mailer.EmailJob) (subject, text, html string, err error) {
	if strings.TrimSpace(job.To) == "" {
		return "", "", "", errNoRecipient
	}
	helpers.EnsureRecipient(job)

	if job.Template == "" {
		subject = job.Subject
		if subject == "" {
			subject = helpers.SubjectFor(job.Data)
		}
		return subject, job.Text, job.HTML, nil
	}
	if !mailtpl.Known(job.Template) {
		return "", "", "", errUnknownTemplate
	}
	subject, text, html, err = mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}

func (p *Processor) log() *logrus.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}

package notification

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AttemptsHeader counts how many times a message has failed to send.
const AttemptsHeader = "x-attempts"

// Republisher puts a message back on the notification queue.
type Republisher interface {
	Republish(ctx context.Context, body []byte, headers amqp.Table) error
}

// Retry settles deliveries. A failed send waits with exponential backoff and
// is republished with its attempt count; after MaxAttempts failures the
// message is dropped.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Pub         Republisher
	Logger      *logrus.Logger

	wait func(ctx context.Context, d time.Duration) error
}

func NewRetry(pub Republisher, maxAttempts int, base, maxDelay time.Duration, logger *logrus.Logger) *Retry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retry{MaxAttempts: maxAttempts, BaseDelay: base, MaxDelay: maxDelay, Pub: pub, Logger: logger, wait: sleep}
}

// Delay returns the wait before the retry that follows failure number attempt.
func (r *Retry) Delay(attempt int) time.Duration {
	d := r.BaseDelay
	for i := 1; i < attempt && d < r.MaxDelay; i++ {
		d *= 2
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// Settle acks, drops or retries msg according to the processing outcome.
func (r *Retry) Settle(ctx context.Context, msg amqp.Delivery, out Outcome) {
	switch out {
	case Ack:
		_ = msg.Ack(false)
		return
	case Discard:
		_ = msg.Nack(false, false)
		return
	}

	attempts := Attempts(msg.Headers) + 1
	entry := r.log().WithField("attempts", attempts)
	if attempts >= r.MaxAttempts {
		entry.Error("notification dropped after repeated send failures")
		_ = msg.Nack(false, false)
		return
	}

	delay := r.Delay(attempts)
	if err := r.wait(ctx, delay); err != nil {
		// shutting down; hand the message to the next consumer
		_ = msg.Nack(false, true)
		return
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[AttemptsHeader] = int32(attempts)
	if err := r.Pub.Republish(ctx, msg.Body, headers); err != nil {
		entry.WithError(err).Warn("republish failed; requeueing")
		_ = msg.Nack(false, true)
		return
	}
	entry.WithField("delay", delay.String()).Info("notification scheduled for retry")
	_ = msg.Ack(false)
}

// Attempts reads the failure count carried by a delivery.
func Attempts(h amqp.Table) int {
	switch v := h[AttemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (r *Retry) log() *logrus.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logrus.StandardLogger()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

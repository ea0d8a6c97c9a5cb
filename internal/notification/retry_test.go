package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepublisher struct{ mock.Mock }

func (m *MockRepublisher) Republish(ctx context.Context, body []byte, headers amqp.Table) error {
	return m.Called(string(body), headers).Error(0)
}

// settled records how a delivery was acknowledged.
type settled struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (s *settled) Ack(tag uint64, multiple bool) error { s.acked = true; return nil }
func (s *settled) Nack(tag uint64, multiple, requeue bool) error {
	s.nacked, s.requeued = true, requeue
	return nil
}
func (s *settled) Reject(tag uint64, requeue bool) error { return s.Nack(tag, false, requeue) }

func delivery(headers amqp.Table) (amqp.Delivery, *settled) {
	s := &settled{}
	return amqp.Delivery{Acknowledger: s, DeliveryTag: 1, Headers: headers, Body: []byte(`{"to":"a@example.com"}`)}, s
}

func newTestRetry(pub Republisher) (*Retry, *[]time.Duration) {
	r := NewRetry(pub, 3, time.Second, 3*time.Second, quietLogger())
	var waits []time.Duration
	r.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func TestRetry_Delay(t *testing.T) {
	r := NewRetry(nil, 5, time.Second, 5*time.Second, nil)
	assert.Equal(t, time.Second, r.Delay(1))
	assert.Equal(t, 2*time.Second, r.Delay(2))
	assert.Equal(t, 4*time.Second, r.Delay(3))
	assert.Equal(t, 5*time.Second, r.Delay(4))
	assert.Equal(t, 5*time.Second, r.Delay(10))
}

func TestSettle_AckAndDiscard(t *testing.T) {
	r, waits := newTestRetry(nil)

	msg, s := delivery(nil)
	r.Settle(context.Background(), msg, Ack)
	assert.True(t, s.acked)

	msg, s = delivery(nil)
	r.Settle(context.Background(), msg, Discard)
	assert.True(t, s.nacked)
	assert.False(t, s.requeued)
	assert.Empty(t, *waits)
}

func TestSettle_RequeueBacksOffAndRepublishes(t *testing.T) {
	pub := new(MockRepublisher)
	pub.On("Republish", `{"to":"a@example.com"}`, mock.MatchedBy(func(h amqp.Table) bool {
		return h[AttemptsHeader] == int32(2) && h["trace"] == "t-1"
	})).Return(nil).Once()
	r, waits := newTestRetry(pub)

	msg, s := delivery(amqp.Table{AttemptsHeader: int32(1), "trace": "t-1"})
	r.Settle(context.Background(), msg, Requeue)

	pub.AssertExpectations(t)
	assert.Equal(t, []time.Duration{2 * time.Second}, *waits)
	assert.True(t, s.acked)
	assert.False(t, s.nacked)
}

func TestSettle_DropsAfterMaxAttempts(t *testing.T) {
	pub := new(MockRepublisher)
	r, waits := newTestRetry(pub)

	msg, s := delivery(amqp.Table{AttemptsHeader: int64(2)})
	r.Settle(context.Background(), msg, Requeue)

	pub.AssertNotCalled(t, "Republish", mock.Anything, mock.Anything)
	assert.Empty(t, *waits)
	assert.True(t, s.nacked)
	assert.False(t, s.requeued)
}

func TestSettle_RepublishFailureRequeuesAfterWaiting(t *testing.T) {
	pub := new(MockRepublisher)
	pub.On("Republish", mock.Anything, mock.Anything).Return(errors.New("channel closed"))
	r, waits := newTestRetry(pub)

	msg, s := delivery(nil)
	r.Settle(context.Background(), msg, Requeue)

	assert.Len(t, *waits, 1)
	assert.True(t, s.nacked)
	assert.True(t, s.requeued)
	assert.False(t, s.acked)
}

func TestSettle_ShutdownDuringBackoffRequeues(t *testing.T) {
	pub := new(MockRepublisher)
	r, _ := newTestRetry(pub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, s := delivery(nil)
	r.Settle(ctx, msg, Requeue)

	pub.AssertNotCalled(t, "Republish", mock.Anything, mock.Anything)
	assert.True(t, s.requeued)
}

func TestAttempts(t *testing.T) {
	assert.Equal(t, 0, Attempts(nil))
	assert.Equal(t, 0, Attempts(amqp.Table{AttemptsHeader: "x"}))
	assert.Equal(t, 4, Attempts(amqp.Table{AttemptsHeader: int32(4)}))
	assert.Equal(t, 4, Attempts(amqp.Table{AttemptsHeader: int64(4)}))
}

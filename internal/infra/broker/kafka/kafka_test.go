package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraoutbox "hostelhunt/internal/infra/outbox"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	ch chan *sarama.ConsumerMessage
}

func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func claimOf(offsets ...int64) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(offsets))
	for _, off := range offsets {
		ch <- &sarama.ConsumerMessage{Topic: "booking.events.v1", Offset: off, Value: []byte(`{}`)}
	}
	close(ch)
	return fakeClaim{ch: ch}
}

type flakyHandler struct {
	failures int
	calls    int
}

func (h *flakyHandler) Handle(context.Context, *sarama.ConsumerMessage) error {
	h.calls++
	if h.calls <= h.failures {
		return fmt.Errorf("smtp timeout #%d", h.calls)
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClaimHandlerRetriesThenMarks(t *testing.T) {
	handler := &flakyHandler{failures: 2}
	h := claimHandler{handler: handler, logger: quietLogger(), backoff: []time.Duration{time.Millisecond, time.Millisecond}}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf(7)))
	assert.Equal(t, 3, handler.calls)
	assert.Equal(t, []int64{7}, sess.marked)
}

func TestClaimHandlerDropsAfterLastBackoff(t *testing.T) {
	handler := &flakyHandler{failures: 100}
	h := claimHandler{handler: handler, logger: quietLogger(), backoff: []time.Duration{time.Millisecond}}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf(1, 2)))
	assert.Equal(t, 4, handler.calls)
	assert.Equal(t, []int64{1, 2}, sess.marked)
}

func TestClaimHandlerLeavesOffsetOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler := &flakyHandler{failures: 100}
	h := claimHandler{handler: handler, logger: quietLogger(), backoff: []time.Duration{time.Hour}}
	sess := &fakeSession{ctx: ctx}

	require.NoError(t, h.ConsumeClaim(sess, claimOf(3)))
	assert.Equal(t, 1, handler.calls)
	assert.Empty(t, sess.marked)
}

func TestEnvelopeHandlerRejectsMalformedValue(t *testing.T) {
	called := false
	h := EnvelopeHandler{Deliver: func(context.Context, infraoutbox.Envelope) error {
		called = true
		return nil
	}}
	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"type":""}`)})
	assert.ErrorIs(t, err, infraoutbox.ErrMalformedEnvelope)
	assert.False(t, called)

	err = h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"id":"e-1","type":"booking.created.v1","data":{"booking_id":"b-1"}}`)})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestProducerPublishesEnvelope(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"id":"e-1"}` {
			return fmt.Errorf("unexpected payload %s", val)
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := &Producer{sync: mock}

	headers := map[string]string{infraoutbox.ContentTypeKey: infraoutbox.ContentType}
	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{"id":"e-1"}`), headers))
	err := p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{"id":"e-2"}`), headers)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := &Producer{sync: mock}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", []byte(`{}`), nil), context.Canceled)
	require.NoError(t, p.Close())
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/internal/leads"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitPublisherSendsPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := newRabbitPublisher(ch, "leads.events", "")
	ev := leads.LeadEvent{
		ID:         "e1",
		Type:       leads.EventLeadStatusChanged,
		ClientID:   42,
		Status:     "won",
		OccurredAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "leads.events", got.exchange)
	assert.Equal(t, "lead.lead.status_changed", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, "e1", got.msg.MessageId)

	var decoded leads.LeadEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestRabbitPublisherWrapsErrors(t *testing.T) {
	cause := errors.New("channel closed")
	p := newRabbitPublisher(&fakeChannel{err: cause}, DefaultExchange, DefaultRoutingKey)
	err := p.Publish(context.Background(), leads.LeadEvent{Type: leads.EventLeadCreated})
	assert.ErrorIs(t, err, cause)
}

func TestCloseClosesChannel(t *testing.T) {
	ch := &fakeChannel{}
	p := newRabbitPublisher(ch, DefaultExchange, DefaultRoutingKey)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNopPublish(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), leads.LeadEvent{}))
}

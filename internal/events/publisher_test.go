package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func testReport(t *testing.T) *ledger.Report {
	t.Helper()
	roster, err := calculator.NewRoster([]string{"Shubham Jana", "Krishna Kumar", "Suvajit Jana"})
	require.NoError(t, err)
	r, err := ledger.Build(&storage.Snapshot{
		Version: 3,
		Expenses: []models.Expense{{
			ID:      "e1",
			Date:    "2025-03-01",
			Amount:  300,
			Payer:   "Shubham Jana",
			Sharers: []string{"Shubham Jana", "Krishna Kumar", "Suvajit Jana"},
		}},
	}, roster)
	require.NoError(t, err)
	return r
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	conn := &fakeConn{}
	p, err := newPublisher(conn, ch, "splitledger", "settlement", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, []string{"splitledger:direct"}, ch.declared)

	require.NoError(t, p.Publish(context.Background(), testReport(t)))
	require.Len(t, ch.published, 1)

	got := ch.published[0]
	assert.Equal(t, "splitledger", got.exchange)
	assert.Equal(t, "settlement", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "3", got.msg.MessageId)

	msg, err := SettlementMessageFromJSON(got.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), msg.Version)
	assert.False(t, msg.Settled)
	assert.InDelta(t, 300.0, msg.TotalExpense, 0.001)
	require.Len(t, msg.Transfers, 2)
	assert.Equal(t, "Krishna Kumar", msg.Transfers[0].From)
	assert.Equal(t, "Shubham Jana", msg.Transfers[0].To)
	assert.InDelta(t, 100.0, msg.Transfers[0].Amount, 0.001)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.True(t, conn.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := newPublisher(&fakeConn{}, ch, "splitledger", "settlement", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), testReport(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestSettlementMessageFromJSON_Invalid(t *testing.T) {
	_, err := SettlementMessageFromJSON([]byte("{not json"))
	assert.Error(t, err)
}

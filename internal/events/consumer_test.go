package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

const eventJSON = `{"orderId":"ORD-1","payeeId":7,"totalPrice":"200.10","status":"delivered","salesRefCode":"REF-50","updatedAt":"2024-03-01T10:00:00Z"}`

func newMock(t *testing.T) (*Consumer, *MockReader, *MockOrders) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	orders := NewMockOrders(ctrl)
	c := New(reader, orders)
	c.retryInterval = time.Millisecond
	return c, reader, orders
}

func TestRunCommitsHandledEvents(t *testing.T) {
	c, reader, orders := newMock(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good := kafka.Message{Offset: 1, Value: []byte(eventJSON)}
	malformed := kafka.Message{Offset: 2, Value: []byte("{")}
	rejected := kafka.Message{Offset: 3, Value: []byte(eventJSON)}

	gomock.InOrder(
		reader.EXPECT().FetchMessage(gomock.Any()).Return(good, nil),
		orders.EXPECT().HandleOrderEvent(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
			assert.Equal(t, "ORD-1", o.OrderID)
			assert.Equal(t, 7, o.PayeeID)
			assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("200.10")))
			assert.Equal(t, domain.OrderDelivered, o.Status)
			assert.Equal(t, "REF-50", o.SalesRefCode)
			return nil
		}),
		reader.EXPECT().CommitMessages(gomock.Any(), good).Return(nil),
		reader.EXPECT().FetchMessage(gomock.Any()).Return(malformed, nil),
		reader.EXPECT().CommitMessages(gomock.Any(), malformed).Return(nil),
		reader.EXPECT().FetchMessage(gomock.Any()).Return(rejected, nil),
		orders.EXPECT().HandleOrderEvent(gomock.Any(), gomock.Any()).Return(domain.ErrSalesManagerNotFound),
		reader.EXPECT().CommitMessages(gomock.Any(), rejected).Return(nil),
		reader.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(func(context.Context) (kafka.Message, error) {
			cancel()
			return kafka.Message{}, context.Canceled
		}),
		reader.EXPECT().Close().Return(nil),
	)

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRetriesInfrastructureErrors(t *testing.T) {
	c, reader, orders := newMock(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{Offset: 9, Value: []byte(eventJSON)}
	gomock.InOrder(
		reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
		orders.EXPECT().HandleOrderEvent(gomock.Any(), gomock.Any()).Return(errors.New("connection reset")).Times(2),
		orders.EXPECT().HandleOrderEvent(gomock.Any(), gomock.Any()).Return(nil),
		reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil),
		reader.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, errors.New("broker gone")),
		reader.EXPECT().Close().Return(nil),
	)

	err := c.Run(ctx)
	assert.EqualError(t, err, "broker gone")
}

func TestHandleStopsRetryingOnCancel(t *testing.T) {
	c, _, orders := newMock(t)
	c.retryInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())

	orders.EXPECT().HandleOrderEvent(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *domain.Order) error {
		cancel()
		return errors.New("db down")
	})

	err := c.handle(ctx, kafka.Message{Value: []byte(eventJSON)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewReader(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaOrdersTopic: "orders.status", KafkaGroupID: "payee-ledger"}
	r := NewReader(cfg)
	defer r.Close()

	assert.Equal(t, "orders.status", r.Config().Topic)
	assert.Equal(t, "payee-ledger", r.Config().GroupID)
}

package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestProducer_Send(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		require.Equal(t, "order-123", string(key))
		require.Equal(t, TopicOrderEvents, msg.Topic)
		require.Len(t, msg.Headers, 1)
		return nil
	})

	producer := newProducer(mockProducer, nil)
	err := producer.Send(context.Background(), TopicOrderEvents, "order-123", []byte(`{}`), map[string]string{"x-test": "1"})
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_Send_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := newProducer(mockProducer, nil)
	err := producer.Send(context.Background(), TopicOrderEvents, "order-123", []byte(`{}`), nil)
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_Send_CanceledContext(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, producer.Send(ctx, TopicOrderEvents, "k", nil, nil), context.Canceled)
	require.NoError(t, mockProducer.Close())
}

func TestProducerConfig_IsIdempotent(t *testing.T) {
	cfg := producerConfig("fastfood")
	require.Equal(t, "fastfood", cfg.ClientID)
	require.True(t, cfg.Producer.Idempotent)
	require.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	require.Equal(t, 1, cfg.Net.MaxOpenRequests)
	require.NoError(t, cfg.Validate())
}

func TestBuildMessage_SortsHeaders(t *testing.T) {
	msg := buildMessage(TopicOrderEvents, "order-1", []byte(`{}`), map[string]string{
		HeaderOutboxID:  "outbox-1",
		HeaderEventType: "order.created",
	})

	require.Equal(t, TopicOrderEvents, msg.Topic)
	require.Len(t, msg.Headers, 2)
	require.Equal(t, HeaderEventType, string(msg.Headers[0].Key))
	require.Equal(t, HeaderOutboxID, string(msg.Headers[1].Key))
	require.False(t, msg.Timestamp.IsZero())
}

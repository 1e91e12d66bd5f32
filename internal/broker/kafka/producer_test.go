package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

// closingWriter records batches and whether Close was called.
type closingWriter struct {
	batches [][]kafka.Message
	closed  bool
}

func (w *closingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.batches = append(w.batches, msgs)
	return nil
}

func (w *closingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishRawPayload(t *testing.T) {
	w := &closingWriter{}
	p := newProducerWithWriter(w)

	require.NoError(t, p.Publish(context.Background(), "cargo.package.status", []byte("YT1"), []byte(`{"to":"issued"}`)))
	require.Len(t, w.batches, 1)
	msg := w.batches[0][0]
	require.Equal(t, "cargo.package.status", msg.Topic)
	require.Equal(t, "YT1", string(msg.Key))
}

func TestProducer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newProducerWithWriter(&closingWriter{})

	err := p.Publish(ctx, "user.registered", nil, []byte("{}"))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestProducer_CloseDelegates(t *testing.T) {
	w := &closingWriter{}
	require.NoError(t, newProducerWithWriter(w).Close())
	require.True(t, w.closed)

	// writer without Close
	require.NoError(t, newProducerWithWriter(&writerMock{}).Close())
}

func TestNewProducer_HashBalancer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	kw, ok := p.w.(*kafka.Writer)
	require.True(t, ok)
	require.IsType(t, &kafka.Hash{}, kw.Balancer)
	require.NoError(t, p.Close())
}

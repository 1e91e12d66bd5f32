package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	err       error
	commitErr error
	i         int
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if r.i < len(r.msgs) {
		m := r.msgs[r.i]
		r.i++
		return m, nil
	}
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	return kafka.Message{}, errors.New("eof")
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_CommitsHandledEvents(t *testing.T) {
	fr := &fakeReader{
		msgs: []kafka.Message{
			{Key: []byte("u1"), Value: []byte(`{"telegram_id":"1"}`), Offset: 7},
			{Key: []byte("u2"), Value: []byte(`{"telegram_id":"2"}`), Offset: 8},
		},
		err: errors.New("stop"),
	}
	c := newConsumerWithReader(fr, "user.registered")

	var keys []string
	err := c.Consume(context.Background(), func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	require.ErrorContains(t, err, "fetch message: stop")
	require.Equal(t, []string{"u1", "u2"}, keys)
	require.Len(t, fr.committed, 2)
	require.Equal(t, int64(8), fr.committed[1].Offset)
}

func TestConsumer_HandlerErrorLeavesMessageUncommitted(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{{Key: []byte("YT1"), Value: []byte("{}")}}}
	c := newConsumerWithReader(fr, "package.status_changed")

	want := errors.New("handler failed")
	err := c.Consume(context.Background(), func(k, v []byte) error { return want })
	require.ErrorIs(t, err, want)
	require.Empty(t, fr.committed)
}

func TestConsumer_CancelledContextIsNotWrapped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newConsumerWithReader(&fakeReader{}, "user.registered")

	err := c.Consume(ctx, func(k, v []byte) error { return nil })
	require.Equal(t, context.Canceled, err)
}

func TestConsumer_CommitError(t *testing.T) {
	fr := &fakeReader{
		msgs:      []kafka.Message{{Value: []byte("{}"), Offset: 3}},
		commitErr: errors.New("rebalance"),
	}
	c := newConsumerWithReader(fr, "user.registered")

	err := c.Consume(context.Background(), func(k, v []byte) error { return nil })
	require.ErrorContains(t, err, "commit offset 3: rebalance")
}

func TestNewConsumer_Close(t *testing.T) {
	c := NewConsumer([]string{"localhost:0"}, "user.registered", "cargo-notifier")
	require.NotNil(t, c)
	require.Equal(t, "user.registered", c.Topic())
	require.NoError(t, c.Close())
}

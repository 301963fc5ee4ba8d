package in_memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishRecv(t *testing.T) {
	q := NewInMemory("events", 4)
	consumer, err := q.CreateConsumer("c0")
	require.Nil(t, err)

	q.Publish([]byte("one"))
	q.Publish([]byte("two"))

	msg, err := consumer.Recv(context.Background())
	require.Nil(t, err)
	require.Equal(t, []byte("one"), msg.Value)
	require.Equal(t, "events", msg.Topic)
	require.Equal(t, int64(0), msg.Offset)

	msg, err = consumer.Recv(context.Background())
	require.Nil(t, err)
	require.Equal(t, []byte("two"), msg.Value)
	require.Equal(t, int64(1), msg.Offset)
}

func TestEachMessageDeliveredOnce(t *testing.T) {
	q := NewInMemory("events", 8)
	a, _ := q.CreateConsumer("a")
	b, _ := q.CreateConsumer("b")

	q.Publish([]byte("only"))
	q.Close()

	got := 0
	msgA, errA := a.Recv(context.Background())
	msgB, errB := b.Recv(context.Background())
	if errA == nil {
		got++
		require.Equal(t, []byte("only"), msgA.Value)
	}
	if errB == nil {
		got++
		require.Equal(t, []byte("only"), msgB.Value)
	}
	require.Equal(t, 1, got)
}

func TestFailDrainsThenErrors(t *testing.T) {
	q := NewInMemory("events", 4)
	consumer, _ := q.CreateConsumer("c0")

	q.Publish([]byte("pending"))
	broken := errors.New("connection reset")
	q.Fail(broken)

	// buffered messages still come through before the failure surfaces
	msg, err := consumer.Recv(context.Background())
	require.Nil(t, err)
	require.Equal(t, []byte("pending"), msg.Value)

	_, err = consumer.Recv(context.Background())
	require.ErrorIs(t, err, broken)
}

func TestCloseReturnsErrClosed(t *testing.T) {
	q := NewInMemory("events", 4)
	consumer, _ := q.CreateConsumer("c0")
	q.Close()
	_, err := consumer.Recv(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestRecvHonorsContext(t *testing.T) {
	q := NewInMemory("events", 4)
	consumer, _ := q.CreateConsumer("c0")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := consumer.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

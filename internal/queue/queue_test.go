package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	To string `json:"to"`
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	for _, to := range []string{"a", "b"} {
		msg, err := NewMessage("greet", greeting{To: to})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
	}

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-msgs:
			assert.Equal(t, "greet", msg.Type)
			var g greeting
			require.NoError(t, msg.Decode(&g))
			got = append(got, g.To)
		case <-ctx.Done():
			t.Fatal("timed out waiting for message")
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := NewInMemory(1).Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer channel not closed")
	}
}

func TestPublishRespectsContextWhenFull(t *testing.T) {
	q := NewInMemory(1)
	msg, err := NewMessage("greet", greeting{To: "a"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), msg))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, msg), context.DeadlineExceeded)
}

func TestDecodeRejectsWrongShape(t *testing.T) {
	msg := Message{Type: "greet", Body: []byte(`[1,2]`)}
	var g greeting
	assert.Error(t, msg.Decode(&g))
}

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func startMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func TestRedisPublisherForwardsOutcomes(t *testing.T) {
	mr := startMiniredis(t)
	ctx := context.Background()

	pub, err := NewRedisPublisher(ctx, RedisOptions{Addr: mr.Addr(), Channel: "relay:test"})
	require.NoError(t, err)

	sub := mr.NewSubscriber()
	t.Cleanup(sub.Close)
	sub.Subscribe("relay:test")

	hub := NewHub()
	detach := pub.Attach(hub)
	defer detach()

	hub.Publish(ctx, TopicRelayOutcome, OutcomeRecord{RelayID: "relay-1", State: "completed", Chunks: 3}, nil)

	select {
	case msg := <-sub.Messages():
		require.Equal(t, "relay:test", msg.Channel)
		var ev struct {
			Topic   string        `json:"topic"`
			Payload OutcomeRecord `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Message), &ev))
		require.Equal(t, TopicRelayOutcome, ev.Topic)
		require.Equal(t, "relay-1", ev.Payload.RelayID)
		require.Equal(t, 3, ev.Payload.Chunks)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())
	require.ErrorIs(t, pub.Enqueue([]byte("late")), ErrPublisherClosed)
}

func TestRedisPublisherRequiresAddress(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), RedisOptions{Channel: "c"})
	require.Error(t, err)
	_, err = NewRedisPublisher(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	var got []Event
	unsubscribe := hub.Subscribe(TopicRelayOutcome, func(_ context.Context, ev Event) {
		got = append(got, ev)
	})

	hub.Publish(context.Background(), TopicRelayOutcome, OutcomeRecord{RelayID: "r1"}, map[string]string{"k": "v"})
	hub.Publish(context.Background(), TopicConfigUpdated, nil, nil)

	require.Len(t, got, 1)
	require.Equal(t, TopicRelayOutcome, got[0].Topic)
	require.Equal(t, "v", got[0].Metadata["k"])
	require.Equal(t, "r1", got[0].Payload.(OutcomeRecord).RelayID)
	require.False(t, got[0].Timestamp.IsZero())

	unsubscribe()
	unsubscribe()
	hub.Publish(context.Background(), TopicRelayOutcome, nil, nil)
	require.Len(t, got, 1)
}

func TestHubNilPublishIsNoop(t *testing.T) {
	var hub *Hub
	require.NotPanics(t, func() {
		hub.Publish(context.Background(), TopicRelayOutcome, nil, nil)
	})
}

package arena

import (
	"testing"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	published []pubsub.Publishable
}

func (c *capturingPublisher) Publish(message pubsub.Publishable) {
	c.published = append(c.published, message)
}

type capturingListener struct {
	received []any
}

func (c *capturingListener) WriteJSON(v any) error {
	c.received = append(c.received, v)
	return nil
}

func TestEventBridgeFansOut(t *testing.T) {
	publisher := &capturingPublisher{}
	hub := ws.NewNotificationHub()
	listener := &capturingListener{}
	hub.RegisterListener(ArenaTopic("arena-1"), listener)

	bridge := NewEventBridge(publisher, hub)
	bridge.Publish(newEvent(EventRoundStarted, "arena-1", RoundStartedPayload{Round: 1}))
	bridge.Publish(newEvent(EventRoundStarted, "arena-2", RoundStartedPayload{Round: 1}))

	require.Len(t, publisher.published, 2)
	assert.Equal(t, EventTopic, publisher.published[0].GetEventTopicName())
	require.Len(t, listener.received, 1)
	assert.Equal(t, "arena-1", listener.received[0].(Event).ArenaId)
}

func TestEventBridgeToleratesMissingSinks(t *testing.T) {
	bridge := NewEventBridge(nil, nil)
	assert.NotPanics(t, func() { bridge.Publish(newEvent(EventArenaCreated, "x", nil)) })
}

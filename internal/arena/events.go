package arena

import (
	"time"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/ws"
)

const EventTopic = "agora.arena.events"

type EventType string

const (
	EventArenaCreated        EventType = "ARENA_CREATED"
	EventParticipantJoined   EventType = "PARTICIPANT_JOINED"
	EventRoundStarted        EventType = "ROUND_STARTED"
	EventMatchResolved       EventType = "MATCH_RESOLVED"
	EventTournamentCompleted EventType = "TOURNAMENT_COMPLETED"
)

type Event struct {
	Type    EventType `json:"type"`
	ArenaId string    `json:"arenaId"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

func (Event) GetEventTopicName() string {
	return EventTopic
}

func newEvent(eventType EventType, arenaId string, payload any) Event {
	return Event{
		Type:    eventType,
		ArenaId: arenaId,
		Payload: payload,
		Time:    time.Now().UTC(),
	}
}

type RoundStartedPayload struct {
	Round    int      `json:"round"`
	Pairs    int      `json:"pairs"`
	ByeId    *string  `json:"byeAgentId,omitempty"`
	AgentIds []string `json:"agentIds"`
}

type TournamentCompletedPayload struct {
	WinnerAgentId      *string `json:"winnerAgentId,omitempty"`
	PrizePool          string  `json:"prizePool"`
	PayoutTxRef        *string `json:"payoutTxRef,omitempty"`
	PayoutPendingTxRef *string `json:"payoutPendingTxRef,omitempty"`
	PayoutError        string  `json:"payoutError,omitempty"`
	ResultsRoot        *string `json:"resultsRoot,omitempty"`
}

// ArenaTopic is the websocket topic listeners of one arena subscribe to.
func ArenaTopic(arenaId string) string {
	return "arenas/" + arenaId
}

type eventBridge struct {
	publisher pubsub.Publisher
	hub       *ws.WebSocketNotificationHub
}

// NewEventBridge publishes every event to pub/sub and to the arena's websocket listeners.
// Either side may be nil.
func NewEventBridge(publisher pubsub.Publisher, hub *ws.WebSocketNotificationHub) EventPublisher {
	return &eventBridge{publisher: publisher, hub: hub}
}

func (b *eventBridge) Publish(event Event) {
	if b.publisher != nil {
		b.publisher.Publish(event)
	}
	if b.hub != nil {
		b.hub.Publish(ArenaTopic(event.ArenaId), event)
	}
}

type noopEvents struct{}

func (noopEvents) Publish(Event) {}

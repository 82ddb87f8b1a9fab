package ws

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener is the write side of a websocket connection (*websocket.Conn satisfies it).
type Listener interface {
	WriteJSON(v any) error
}

type WebSocketNotificationHub struct {
	registrationMutex sync.RWMutex
	listeners         map[string][]Listener
	// gorilla connections support a single concurrent writer
	writeMutex sync.Mutex
}

func NewNotificationHub() *WebSocketNotificationHub {
	return &WebSocketNotificationHub{
		listeners: make(map[string][]Listener),
	}
}

func (hub *WebSocketNotificationHub) RegisterListener(topic string, conn Listener) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	hub.listeners[topic] = append(hub.listeners[topic], conn)
}

func (hub *WebSocketNotificationHub) UnregisterListener(topic string, conn Listener) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	current := hub.listeners[topic]
	for i, listener := range current {
		if listener == conn {
			current = append(current[:i], current[i+1:]...)
			break
		}
	}

	if len(current) == 0 {
		delete(hub.listeners, topic)
		return
	}
	hub.listeners[topic] = current
}

func (hub *WebSocketNotificationHub) Publish(targetTopic string, event any) {
	hub.registrationMutex.RLock()
	targets := append([]Listener(nil), hub.listeners[targetTopic]...)
	hub.registrationMutex.RUnlock()

	hub.writeMutex.Lock()
	defer hub.writeMutex.Unlock()
	for _, listener := range targets {
		if err := listener.WriteJSON(event); err != nil {
			log.Debug().Err(err).Str("topic", targetTopic).Msg("Error writing ws notification")
		}
	}
}

func (hub *WebSocketNotificationHub) ListenerCount(topic string) int {
	hub.registrationMutex.RLock()
	defer hub.registrationMutex.RUnlock()
	return len(hub.listeners[topic])
}

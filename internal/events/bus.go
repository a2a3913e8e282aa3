package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventMarketUpdated  EventType = "MARKET_UPDATED"
	EventTradeCreated   EventType = "TRADE_CREATED"
	EventTradeUpdated   EventType = "TRADE_UPDATED"
	EventTradeDeleted   EventType = "TRADE_DELETED"
	EventSessionCreated EventType = "SESSION_CREATED"
	EventSessionDeleted EventType = "SESSION_DELETED"
	EventError          EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Subscribers run in their own
// goroutines so a slow handler never blocks the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishMarketUpdated publishes a refreshed market snapshot
func (eb *EventBus) PublishMarketUpdated(snapshot interface{}) {
	eb.Publish(Event{
		Type: EventMarketUpdated,
		Data: map[string]interface{}{
			"snapshot": snapshot,
		},
	})
}

// PublishTradeCreated publishes a trade created event
func (eb *EventBus) PublishTradeCreated(userID, sessionID, tradeID string) {
	eb.Publish(Event{
		Type: EventTradeCreated,
		Data: map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"trade_id":   tradeID,
		},
	})
}

// PublishTradeUpdated publishes a trade updated event
func (eb *EventBus) PublishTradeUpdated(userID, tradeID string) {
	eb.Publish(Event{
		Type: EventTradeUpdated,
		Data: map[string]interface{}{
			"user_id":  userID,
			"trade_id": tradeID,
		},
	})
}

// PublishTradeDeleted publishes a trade deleted event
func (eb *EventBus) PublishTradeDeleted(userID, tradeID string) {
	eb.Publish(Event{
		Type: EventTradeDeleted,
		Data: map[string]interface{}{
			"user_id":  userID,
			"trade_id": tradeID,
		},
	})
}

// PublishSessionCreated publishes a session created event
func (eb *EventBus) PublishSessionCreated(userID, sessionID string) {
	eb.Publish(Event{
		Type: EventSessionCreated,
		Data: map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
		},
	})
}

// PublishSessionDeleted publishes a session deleted event
func (eb *EventBus) PublishSessionDeleted(userID, sessionID string) {
	eb.Publish(Event{
		Type: EventSessionDeleted,
		Data: map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}

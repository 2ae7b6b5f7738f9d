package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventBarClosed       EventType = "BAR_CLOSED"
	EventPivotDetected   EventType = "PIVOT_DETECTED"
	EventBosDetected     EventType = "BOS_DETECTED"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventOrderPlaced     EventType = "ORDER_PLACED"
	EventOrderRejected   EventType = "ORDER_REJECTED"
	EventBalanceUpdate   EventType = "BALANCE_UPDATE"
	EventBotStarted      EventType = "BOT_STARTED"
	EventBotStopped      EventType = "BOT_STOPPED"
	EventError           EventType = "ERROR"
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
	allSubs     []Subscriber // Subscribers to all events
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

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishBarClosed publishes a bar closed event
func (eb *EventBus) PublishBarClosed(symbol, interval string, index int, close float64) {
	eb.Publish(Event{
		Type: EventBarClosed,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"interval": interval,
			"index":    index,
			"close":    close,
		},
	})
}

// PublishBosDetected publishes a break-of-structure event
func (eb *EventBus) PublishBosDetected(symbol string, level float64, endIndex int, bullish, confirmed bool) {
	eb.Publish(Event{
		Type: EventBosDetected,
		Data: map[string]interface{}{
			"symbol":    symbol,
			"level":     level,
			"end_index": endIndex,
			"bullish":   bullish,
			"confirmed": confirmed,
		},
	})
}

// PublishSignal publishes a signal generated event
func (eb *EventBus) PublishSignal(strategyName, symbol, signalType, reason string, price float64) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"strategy":    strategyName,
			"symbol":      symbol,
			"signal_type": signalType,
			"reason":      reason,
			"price":       price,
		},
	})
}

// PublishOrderPlaced publishes an order placed event
func (eb *EventBus) PublishOrderPlaced(positionID, symbol, side string, entryPrice, volume float64) {
	eb.Publish(Event{
		Type: EventOrderPlaced,
		Data: map[string]interface{}{
			"position_id": positionID,
			"symbol":      symbol,
			"side":        side,
			"entry_price": entryPrice,
			"volume":      volume,
		},
	})
}

// PublishOrderRejected publishes an order rejected event
func (eb *EventBus) PublishOrderRejected(symbol, side, reason string) {
	eb.Publish(Event{
		Type: EventOrderRejected,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"reason": reason,
		},
	})
}

// PublishBalanceUpdate publishes a balance update event
func (eb *EventBus) PublishBalanceUpdate(balance float64, currency string) {
	eb.Publish(Event{
		Type: EventBalanceUpdate,
		Data: map[string]interface{}{
			"balance":  balance,
			"currency": currency,
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

// Package realtime runs the live door feed: WebSocket clients grouped by
// event, fanned out across instances through Redis pub/sub.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Feed event names.
const (
	EventCheckinCount  = "checkin_count"
	EventCheckin       = "checkin"
	EventCheckinUndone = "checkin_undone"
	EventWatchers      = "watchers"
	EventCloseout      = "closeout"
)

// Publisher publishes to Redis for cross-instance broadcast.
type Publisher interface {
	PublishEvent(eventID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to an event channel and invokes handler for incoming messages.
type Subscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains event_id -> set of connections and broadcasts messages.
type Hub struct {
	events   map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    Publisher
	redisSub Subscriber
}

// NewHub creates a hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub Publisher, redisSub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		events:   make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// subscribeLocked starts the Redis subscription for a room. Callers hold h.mu.
// On failure the room stays unsubscribed: Publish delivers to it locally and
// the next Register retries.
func (h *Hub) subscribeLocked(eventID uuid.UUID) {
	if h.redisSub == nil {
		return
	}
	if _, ok := h.subs[eventID]; ok {
		return
	}
	cancel, err := h.redisSub.SubscribeEvent(eventID, func(event string, payload []byte) {
		h.Broadcast(eventID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed, room receives local publishes only",
			zap.String("event_id", eventID.String()), zap.Error(err))
		return
	}
	h.subs[eventID] = cancel
}

// Register adds a client to an event room and makes sure the room is subscribed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.events[c.EventID] == nil {
		h.events[c.EventID] = make(map[string]*Client)
	}
	h.subscribeLocked(c.EventID)
	h.events[c.EventID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined door feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client. The last client out cancels the Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.events[c.EventID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.events, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left door feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// Broadcast sends a message to every local client watching the event.
func (h *Hub) Broadcast(eventID uuid.UUID, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode feed payload failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.events[eventID] {
		select {
		case c.send <- msg:
		default:
			// slow client, drop
		}
	}
}

// Publish delivers a message to every instance. With Redis the subscriber
// callback performs the local broadcast, so local clients see it once; a local
// room without a working subscription is served directly.
func (h *Hub) Publish(eventID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(eventID, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishEvent(eventID, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("event_id", eventID.String()), zap.Error(err))
		h.Broadcast(eventID, event, payload)
		return
	}
	if !h.subscribed(eventID) {
		h.Broadcast(eventID, event, payload)
	}
}

func (h *Hub) subscribed(eventID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[eventID]
	return ok
}

// Watchers returns the number of local clients on an event's feed.
func (h *Hub) Watchers(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events[eventID])
}

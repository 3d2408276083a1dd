package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(hub *Hub, eventID uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), EventID: eventID, hub: hub, send: make(chan WSMessage, 4)}
}

type recordingPublisher struct {
	events []string
	err    error
}

func (p *recordingPublisher) PublishEvent(_ uuid.UUID, event string, _ []byte) error {
	p.events = append(p.events, event)
	return p.err
}

func TestHub_BroadcastScopedToEvent(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	a, b := uuid.New(), uuid.New()
	ca, cb := testClient(hub, a), testClient(hub, b)
	hub.Register(ca)
	hub.Register(cb)
	assert.Equal(t, 1, hub.Watchers(a))

	hub.Publish(a, EventCheckinCount, map[string]int{"checked_in": 3})

	require.Len(t, ca.send, 1)
	msg := <-ca.send
	assert.Equal(t, EventCheckinCount, msg.Event)
	var data map[string]int
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, 3, data["checked_in"])
	assert.Len(t, cb.send, 0)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	ev := uuid.New()
	c := testClient(hub, ev)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	_, open := <-c.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Watchers(ev))
}

type flakySubscriber struct {
	failures int
	calls    int
}

func (s *flakySubscriber) SubscribeEvent(uuid.UUID, func(string, []byte)) (func(), error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("redis unavailable")
	}
	return func() {}, nil
}

func TestHub_PublishGoesThroughRedis(t *testing.T) {
	pub := &recordingPublisher{}
	hub := NewHub(nil, pub, &flakySubscriber{})
	ev := uuid.New()
	c := testClient(hub, ev)
	hub.Register(c)

	hub.Publish(ev, EventCheckin, map[string]string{"name": "Ada"})
	assert.Equal(t, []string{EventCheckin}, pub.events)
	assert.Len(t, c.send, 0, "local delivery happens via the subscription")
}

func TestHub_PublishFallsBackToLocal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	hub := NewHub(nil, pub, nil)
	ev := uuid.New()
	c := testClient(hub, ev)
	hub.Register(c)

	hub.Publish(ev, EventCheckin, map[string]string{"name": "Ada"})
	assert.Len(t, c.send, 1)
}

func TestHub_FailedSubscribeStillDeliversAndRetries(t *testing.T) {
	pub := &recordingPublisher{}
	sub := &flakySubscriber{failures: 1}
	hub := NewHub(nil, pub, sub)
	ev := uuid.New()
	first := testClient(hub, ev)
	hub.Register(first)

	hub.Publish(ev, EventCheckin, map[string]string{"name": "Ada"})
	assert.Equal(t, []string{EventCheckin}, pub.events)
	assert.Len(t, first.send, 1, "unsubscribed room is served locally")
	<-first.send

	second := testClient(hub, ev)
	hub.Register(second)
	assert.Equal(t, 2, sub.calls, "joining retries the subscription")

	hub.Publish(ev, EventCheckinCount, map[string]int{"checked_in": 1})
	assert.Len(t, first.send, 0, "subscribed room is served through redis")
	assert.Len(t, second.send, 0)
}

// Package notify implements the broadcast primitive behind task status
// notifications: publishers emit text messages to a named group, every
// subscriber joined to that group at publish time receives them in
// publish order, and delivery is best-effort with no replay.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// PublicRoom is the well-known group every notification connection joins.
const PublicRoom = "public_room"

// subscriberBuffer bounds undelivered messages per subscriber; overflow
// is dropped rather than blocking the hub.
const subscriberBuffer = 16

// Subscriber is a single group membership handle.
type Subscriber struct {
	id    string
	group string
	ch    chan string
}

// Messages returns the subscriber's delivery channel. The channel is
// closed on unsubscribe and on hub shutdown.
func (s *Subscriber) Messages() <-chan string {
	return s.ch
}

// Group returns the group this subscriber is joined to.
func (s *Subscriber) Group() string {
	return s.group
}

type groupMessage struct {
	group string
	text  string
}

// Hub routes published messages to group subscribers. A single run
// loop owns membership state, which serializes deliveries and keeps
// per-group publish order.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	publish    chan groupMessage
	done       chan struct{}

	// owned by the Run loop
	groups map[string]map[*Subscriber]struct{}
}

// NewHub creates a new Hub. Call Run before using it.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		publish:    make(chan groupMessage, 256),
		done:       make(chan struct{}),
		groups:     make(map[string]map[*Subscriber]struct{}),
	}
}

// Run processes subscriptions and deliveries until ctx is cancelled,
// then closes every subscriber channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case sub := <-h.register:
			h.handleRegister(sub)
		case sub := <-h.unregister:
			h.handleUnregister(sub)
		case msg := <-h.publish:
			h.handlePublish(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Subscribe joins a new subscriber to the given group.
func (h *Hub) Subscribe(group string) *Subscriber {
	sub := &Subscriber{
		id:    uuid.NewString(),
		group: group,
		ch:    make(chan string, subscriberBuffer),
	}

	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.ch)
	}

	return sub
}

// Unsubscribe removes a subscriber from its group and closes its
// channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish delivers text to every subscriber currently joined to group.
// It is fire-and-forget: the publisher never blocks on, retries or
// learns the outcome of delivery.
func (h *Hub) Publish(group, text string) {
	select {
	case h.publish <- groupMessage{group: group, text: text}:
	case <-h.done:
	}
}

func (h *Hub) handleRegister(sub *Subscriber) {
	members, ok := h.groups[sub.group]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.groups[sub.group] = members
	}
	members[sub] = struct{}{}
	slog.Debug("subscriber joined", "subscriber", sub.id, "group", sub.group)
}

func (h *Hub) handleUnregister(sub *Subscriber) {
	members, ok := h.groups[sub.group]
	if !ok {
		return
	}
	if _, ok := members[sub]; !ok {
		return
	}

	delete(members, sub)
	if len(members) == 0 {
		delete(h.groups, sub.group)
	}
	close(sub.ch)
	slog.Debug("subscriber left", "subscriber", sub.id, "group", sub.group)
}

func (h *Hub) handlePublish(msg groupMessage) {
	for sub := range h.groups[msg.group] {
		select {
		case sub.ch <- msg.text:
		default:
			slog.Warn("dropping message for slow subscriber", "subscriber", sub.id, "group", msg.group)
		}
	}
}

func (h *Hub) closeAll() {
	for _, members := range h.groups {
		for sub := range members {
			close(sub.ch)
		}
	}
	h.groups = make(map[string]map[*Subscriber]struct{})
}

// Package realtime carries committed chat changes to live sessions.
package realtime

import (
	"context"
	"sync"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// EventType identifies the kind of change an event carries
type EventType string

const (
	// ConversationUpdated carries the full conversation row after a change
	ConversationUpdated EventType = "conversation.updated"
	// MessageInserted carries the full row of a new message
	MessageInserted EventType = "message.inserted"
)

// Event is one entry of the change feed
type Event struct {
	Type         EventType            `json:"type"`
	Conversation *entity.Conversation `json:"conversation,omitempty"`
	Message      *entity.Message      `json:"message,omitempty"`
}

// ConversationEvent builds a conversation-updated event
func ConversationEvent(conv *entity.Conversation) Event {
	return Event{Type: ConversationUpdated, Conversation: conv}
}

// MessageEvent builds a message-inserted event
func MessageEvent(msg *entity.Message) Event {
	return Event{Type: MessageInserted, Message: msg}
}

// Broker fans committed changes out to every subscriber
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context) (*Subscription, error)
	Close() error
}

// subscriptionBuffer is the number of events a subscriber may lag behind
const subscriptionBuffer = 64

// Subscription is an owned handle on the change feed. Events stops
// delivering and is closed once Unsubscribe returns.
type Subscription struct {
	events  chan Event
	done    chan struct{}
	once    sync.Once
	release func()
}

func newSubscription(release func()) *Subscription {
	return &Subscription{
		events:  make(chan Event, subscriptionBuffer),
		done:    make(chan struct{}),
		release: release,
	}
}

// Events returns the channel events are delivered on
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed when the subscription is released
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe releases the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
}

// offer hands ev to the subscriber without blocking; it reports false when
// the subscriber's buffer is full
func (s *Subscription) offer(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

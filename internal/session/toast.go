package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// Toast is an in-app notification
type Toast struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Avatar         string `json:"avatar,omitempty"`
	ConversationID string `json:"conversation_id"`
}

// Toaster keeps the active toast stack. Each toast is dismissed after ttl;
// clicking one navigates to its conversation and dismisses it.
type Toaster struct {
	ttl      time.Duration
	out      Outbox
	navigate func(path string)

	mu     sync.Mutex
	active []Toast
	timers map[string]*time.Timer
	closed bool
}

// NewToaster creates a toaster. navigate is called with the chat path of a clicked toast.
func NewToaster(ttl time.Duration, out Outbox, navigate func(path string)) *Toaster {
	if ttl <= 0 {
		ttl = 8 * time.Second
	}
	return &Toaster{
		ttl:      ttl,
		out:      out,
		navigate: navigate,
		timers:   make(map[string]*time.Timer),
	}
}

// Push shows a toast and schedules its dismissal
func (t *Toaster) Push(toast Toast) Toast {
	if toast.ID == "" {
		toast.ID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return toast
	}

	t.active = append(t.active, toast)
	id := toast.ID
	t.timers[id] = time.AfterFunc(t.ttl, func() { t.Dismiss(id) })
	t.out.Send(Frame{Type: FrameToast, Toast: &toast})
	return toast
}

// Dismiss removes a toast; it reports whether the toast was active
func (t *Toaster) Dismiss(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.removeLocked(id)
	return ok
}

// Click dismisses a toast and navigates to its conversation
func (t *Toaster) Click(id string) bool {
	t.mu.Lock()
	toast, ok := t.removeLocked(id)
	t.mu.Unlock()
	if !ok {
		return false
	}

	path := entity.ChatPath(toast.ConversationID)
	if t.navigate != nil {
		t.navigate(path)
	}
	t.out.Send(Frame{Type: FrameNavigate, Path: path})
	return true
}

// Active returns the toasts currently shown, oldest first
func (t *Toaster) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.active))
	copy(out, t.active)
	return out
}

// Close stops every pending dismissal timer
func (t *Toaster) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.active = nil
}

func (t *Toaster) removeLocked(id string) (Toast, bool) {
	for i, toast := range t.active {
		if toast.ID != id {
			continue
		}
		t.active = append(t.active[:i], t.active[i+1:]...)
		if timer, ok := t.timers[id]; ok {
			timer.Stop()
			delete(t.timers, id)
		}
		t.out.Send(Frame{Type: FrameToastDismiss, ToastID: id})
		return toast, true
	}
	return Toast{}, false
}

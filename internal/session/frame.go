package session

import "github.com/vadim/wedding-chat/internal/domain/chat/entity"

// FrameType identifies a frame pushed to the browser
type FrameType string

const (
	FrameConversations       FrameType = "conversations"
	FrameToast               FrameType = "toast"
	FrameToastDismiss        FrameType = "toast_dismiss"
	FrameBrowserNotification FrameType = "browser_notification"
	FrameRequestPermission   FrameType = "request_permission"
	FrameNavigate            FrameType = "navigate"
	FrameError               FrameType = "error"
)

// Frame is one server-to-browser message
type Frame struct {
	Type          FrameType                    `json:"type"`
	Conversations []entity.ConversationSummary `json:"conversations,omitempty"`
	Toast         *Toast                       `json:"toast,omitempty"`
	ToastID       string                       `json:"toast_id,omitempty"`
	Notification  *BrowserNotification         `json:"notification,omitempty"`
	Path          string                       `json:"path,omitempty"`
	Error         string                       `json:"error,omitempty"`

	// Retry tells the browser a reload frame may fix the error
	Retry bool `json:"retry,omitempty"`
}

// ClientFrameType identifies a frame sent by the browser
type ClientFrameType string

const (
	ClientLocation   ClientFrameType = "location"
	ClientPermission ClientFrameType = "permission"
	ClientToastClick ClientFrameType = "toast_click"
	ClientReload     ClientFrameType = "reload"
)

// ClientFrame is one browser-to-server message
type ClientFrame struct {
	Type  ClientFrameType `json:"type"`
	Path  string          `json:"path,omitempty"`
	State Permission      `json:"state,omitempty"`
	ID    string          `json:"id,omitempty"`
}

// Outbox delivers frames to the browser. Send must not block.
type Outbox interface {
	Send(f Frame)
}

// OutboxFunc adapts a function to Outbox
type OutboxFunc func(f Frame)

// Send calls fn(f)
func (fn OutboxFunc) Send(f Frame) { fn(f) }

package session

import "sync"

// Permission is the browser's notification permission state
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Valid reports whether p is a known permission state
func (p Permission) Valid() bool {
	switch p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return true
	}
	return false
}

// BrowserNotification is a native notification raised by the browser
type BrowserNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`

	// Tag coalesces notifications of the same conversation
	Tag                string `json:"tag"`
	RequireInteraction bool   `json:"require_interaction"`
}

// permissionState tracks the last permission the browser reported
type permissionState struct {
	mu    sync.RWMutex
	state Permission
}

func newPermissionState() *permissionState {
	return &permissionState{state: PermissionDefault}
}

func (p *permissionState) Get() Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *permissionState) Set(state Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

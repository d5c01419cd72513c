package session

import (
	"testing"
	"time"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

func TestToastExpires(t *testing.T) {
	out := &recordingOutbox{}
	toaster := NewToaster(30*time.Millisecond, out, nil)
	defer toaster.Close()

	first := toaster.Push(Toast{Title: "Feast Co", Message: "hi", ConversationID: "c1"})
	second := toaster.Push(Toast{Title: "Bloom", Message: "hello", ConversationID: "c2"})
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("toast ids = %q, %q; want distinct", first.ID, second.ID)
	}
	if n := len(toaster.Active()); n != 2 {
		t.Fatalf("active toasts = %d, want 2 stacked", n)
	}

	eventually(t, "toasts to expire", func() bool { return len(toaster.Active()) == 0 })

	if n := len(out.ofType(FrameToastDismiss)); n != 2 {
		t.Errorf("dismiss frames = %d, want 2", n)
	}
}

func TestToastClickNavigates(t *testing.T) {
	out := &recordingOutbox{}
	var navigated string
	toaster := NewToaster(time.Minute, out, func(path string) { navigated = path })
	defer toaster.Close()

	toast := toaster.Push(Toast{Title: "Feast Co", ConversationID: "c1"})

	if !toaster.Click(toast.ID) {
		t.Fatal("Click() = false, want true")
	}
	if navigated != entity.ChatPath("c1") {
		t.Errorf("navigated to %q, want %q", navigated, entity.ChatPath("c1"))
	}
	if len(toaster.Active()) != 0 {
		t.Errorf("clicked toast still active")
	}

	nav := out.ofType(FrameNavigate)
	if len(nav) != 1 || nav[0].Path != "/messages/c1" {
		t.Errorf("navigate frames = %+v", nav)
	}

	if toaster.Click(toast.ID) {
		t.Errorf("second click on a removed toast should do nothing")
	}
}

func TestToasterClosed(t *testing.T) {
	out := &recordingOutbox{}
	toaster := NewToaster(time.Minute, out, nil)
	toaster.Push(Toast{ConversationID: "c1"})
	toaster.Close()

	toaster.Push(Toast{ConversationID: "c2"})
	if len(toaster.Active()) != 0 {
		t.Errorf("closed toaster kept toasts")
	}
	if n := len(out.ofType(FrameToast)); n != 1 {
		t.Errorf("toast frames = %d, want 1", n)
	}
}

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/realtime"
)

func newTestSession(t *testing.T, reader ChatReader, broker *realtime.MemoryBroker, cfg Config) (*Session, *recordingOutbox) {
	t.Helper()
	out := &recordingOutbox{}
	s := New(coupleID, cfg, reader, sharedCipher(), broker, out, quietLogger())
	return s, out
}

func TestSessionAlertsAndMerges(t *testing.T) {
	reader := newFakeReader()
	reader.setList(coupleID, coupleSummary("c1", "Feast Co", "hi"), coupleSummary("c2", "Bloom", "yo"))

	broker := realtime.NewMemoryBroker(quietLogger())
	s, out := newTestSession(t, reader, broker, Config{PermissionDelay: time.Hour})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	s.HandleFrame(context.Background(), ClientFrame{Type: ClientPermission, State: PermissionGranted})

	sealed := seal(t, "menu attached", "c2")
	reader.putMessage(entity.FormattedMessage{ID: "m1", Sender: entity.RoleVendor, Message: sealed, Type: entity.MessageTypeText})

	ctx := context.Background()
	row := conversationRow("c2", sealed)
	if err := broker.Publish(ctx, realtime.ConversationEvent(row)); err != nil {
		t.Fatal(err)
	}
	if err := broker.Publish(ctx, realtime.MessageEvent(&entity.Message{ID: "m1", ConversationID: "c2", SenderID: vendorID, Type: entity.MessageTypeText, Content: sealed})); err != nil {
		t.Fatal(err)
	}

	eventually(t, "toast and notification", func() bool {
		return len(out.ofType(FrameToast)) == 1 && len(out.ofType(FrameBrowserNotification)) == 1
	})
	eventually(t, "feed merge", func() bool {
		snap := s.Feed().Snapshot()
		return len(snap) == 2 && snap[0].ConversationID == "c2" && snap[0].LastMessage == "menu attached"
	})

	toast := out.ofType(FrameToast)[0].Toast
	if toast.Message != "menu attached" || toast.Title != "Bloom" {
		t.Errorf("toast = %+v", toast)
	}

	// Clicking the toast opens the chat; further messages there stay quiet
	s.HandleFrame(ctx, ClientFrame{Type: ClientToastClick, ID: toast.ID})
	if s.Location() != entity.ChatPath("c2") {
		t.Errorf("location = %q, want chat view", s.Location())
	}
	reader.putMessage(entity.FormattedMessage{ID: "m2", Message: "x", Type: entity.MessageTypeText})
	if err := broker.Publish(ctx, realtime.MessageEvent(&entity.Message{ID: "m2", ConversationID: "c2", SenderID: vendorID})); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(out.ofType(FrameToast)); n != 1 {
		t.Errorf("toasts = %d, want no new toast for the open chat", n)
	}
}

func TestSessionCloseUnsubscribes(t *testing.T) {
	reader := newFakeReader()
	broker := realtime.NewMemoryBroker(quietLogger())

	s, out := newTestSession(t, reader, broker, Config{PermissionDelay: time.Hour})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reader.setList(coupleID, coupleSummary("c1", "Feast Co", ""))
	reader.putMessage(entity.FormattedMessage{ID: "m1", Message: "hi", Type: entity.MessageTypeText})
	if err := broker.Publish(context.Background(), realtime.MessageEvent(&entity.Message{ID: "m1", ConversationID: "c1", SenderID: vendorID})); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)

	if n := len(out.ofType(FrameToast)); n != 0 {
		t.Errorf("closed session produced %d toasts", n)
	}
}

func TestSessionLoadFailureOffersRetry(t *testing.T) {
	reader := newFakeReader()
	reader.setError(errors.New("connection refused"))
	broker := realtime.NewMemoryBroker(quietLogger())

	s, out := newTestSession(t, reader, broker, Config{PermissionDelay: time.Hour, CacheRefresh: time.Hour})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	errs := out.ofType(FrameError)
	if len(errs) != 1 || !errs[0].Retry {
		t.Fatalf("error frames = %+v, want one retryable error", errs)
	}

	reader.setError(nil)
	reader.setList(coupleID, coupleSummary("c1", "Feast Co", "hi"))
	s.HandleFrame(context.Background(), ClientFrame{Type: ClientReload})

	if n := len(s.Feed().Snapshot()); n != 1 {
		t.Errorf("feed has %d conversations after reload, want 1", n)
	}
}

func TestSessionPermissionPrompt(t *testing.T) {
	t.Run("asks while permission is default", func(t *testing.T) {
		s, out := newTestSession(t, newFakeReader(), realtime.NewMemoryBroker(quietLogger()), Config{PermissionDelay: 10 * time.Millisecond})
		if err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		eventually(t, "permission prompt", func() bool { return len(out.ofType(FrameRequestPermission)) == 1 })
	})

	t.Run("does not ask once answered", func(t *testing.T) {
		s, out := newTestSession(t, newFakeReader(), realtime.NewMemoryBroker(quietLogger()), Config{PermissionDelay: 20 * time.Millisecond})
		if err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		s.HandleFrame(context.Background(), ClientFrame{Type: ClientPermission, State: PermissionDenied})
		time.Sleep(60 * time.Millisecond)

		if n := len(out.ofType(FrameRequestPermission)); n != 0 {
			t.Errorf("prompted %d times after the user answered", n)
		}
	})
}

func TestSessionStartFailsWithoutSubscription(t *testing.T) {
	broker := realtime.NewMemoryBroker(quietLogger())
	_ = broker.Close()

	s, _ := newTestSession(t, newFakeReader(), broker, Config{})
	if err := s.Start(context.Background()); !errors.Is(err, realtime.ErrBrokerClosed) {
		t.Errorf("Start() error = %v, want ErrBrokerClosed", err)
	}
}

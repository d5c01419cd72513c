package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/domain/chat/service"
	"github.com/vadim/wedding-chat/internal/realtime"
)

type stubService struct {
	ChatService

	sendOut  *service.SendMessageOutput
	offerOut *service.UpdateOfferOutput
	openOut  *service.OpenConversationOutput
	err      error
}

func (s *stubService) SendMessage(context.Context, service.SendMessageInput) (*service.SendMessageOutput, error) {
	return s.sendOut, s.err
}

func (s *stubService) UpdateOfferStatus(context.Context, service.UpdateOfferInput) (*service.UpdateOfferOutput, error) {
	return s.offerOut, s.err
}

func (s *stubService) OpenConversation(context.Context, service.OpenConversationInput) (*service.OpenConversationOutput, error) {
	return s.openOut, s.err
}

type recordingPublisher struct {
	events []realtime.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendMessagePublishesAfterCommit(t *testing.T) {
	conv := &entity.Conversation{ID: "c1"}
	stored := &entity.Message{ID: "m1", ConversationID: "c1"}
	svc := &stubService{sendOut: &service.SendMessageOutput{
		Message:      entity.FormattedMessage{ID: "m1"},
		Stored:       stored,
		Conversation: conv,
	}}
	pub := &recordingPublisher{}
	p := New(svc, pub, quietLogger())

	msg, err := p.SendMessage(context.Background(), service.SendMessageInput{})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if msg.ID != "m1" {
		t.Errorf("message id = %q, want m1", msg.ID)
	}

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	if pub.events[0].Type != realtime.ConversationUpdated || pub.events[0].Conversation != conv {
		t.Errorf("first event = %+v, want conversation update", pub.events[0])
	}
	if pub.events[1].Type != realtime.MessageInserted || pub.events[1].Message != stored {
		t.Errorf("second event = %+v, want message insert", pub.events[1])
	}
}

func TestFailedOperationPublishesNothing(t *testing.T) {
	svc := &stubService{err: entity.ErrNotParticipant}
	pub := &recordingPublisher{}
	p := New(svc, pub, quietLogger())

	if _, err := p.SendMessage(context.Background(), service.SendMessageInput{}); !errors.Is(err, entity.ErrNotParticipant) {
		t.Errorf("SendMessage() error = %v, want ErrNotParticipant", err)
	}
	if err := p.UpdateOfferStatus(context.Background(), service.UpdateOfferInput{}); !errors.Is(err, entity.ErrNotParticipant) {
		t.Errorf("UpdateOfferStatus() error = %v, want ErrNotParticipant", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events, want 0", len(pub.events))
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc := &stubService{offerOut: &service.UpdateOfferOutput{Conversation: &entity.Conversation{ID: "c1"}}}
	pub := &recordingPublisher{err: errors.New("redis down")}
	p := New(svc, pub, quietLogger())

	if err := p.UpdateOfferStatus(context.Background(), service.UpdateOfferInput{}); err != nil {
		t.Errorf("UpdateOfferStatus() error = %v, want nil", err)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1", len(pub.events))
	}
}

func TestOpenConversationAnnouncesOnlyNewThreads(t *testing.T) {
	pub := &recordingPublisher{}
	svc := &stubService{openOut: &service.OpenConversationOutput{Conversation: &entity.Conversation{ID: "c1"}}}
	p := New(svc, pub, quietLogger())

	if _, err := p.OpenConversation(context.Background(), service.OpenConversationInput{}); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 0 {
		t.Errorf("existing thread published %d events", len(pub.events))
	}

	svc.openOut.Created = true
	if _, err := p.OpenConversation(context.Background(), service.OpenConversationInput{}); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Errorf("new thread published %d events, want 1", len(pub.events))
	}
}

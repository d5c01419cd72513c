package policy

import (
	"context"
	"log/slog"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/domain/chat/service"
	"github.com/vadim/wedding-chat/internal/realtime"
)

// EventPublisher defines the interface for announcing committed changes
type EventPublisher interface {
	Publish(ctx context.Context, ev realtime.Event) error
}

// ChatService defines the interface for the chat service
type ChatService interface {
	ListConversations(ctx context.Context, userID string) ([]entity.ConversationSummary, error)
	GetMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.FormattedMessage, error)
	ListMessages(ctx context.Context, in service.ListMessagesInput) (*service.ListMessagesOutput, error)
	OpenConversation(ctx context.Context, in service.OpenConversationInput) (*service.OpenConversationOutput, error)
	MarkRead(ctx context.Context, userID, conversationID string) (*entity.Conversation, error)
	SendMessage(ctx context.Context, in service.SendMessageInput) (*service.SendMessageOutput, error)
	UpdateOfferStatus(ctx context.Context, in service.UpdateOfferInput) (*service.UpdateOfferOutput, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
}

// Policy orchestrates chat use-cases: it runs the service operation and
// announces what committed on the change feed
type Policy struct {
	svc    ChatService
	events EventPublisher
	logger *slog.Logger
}

// New creates a new chat policy
func New(svc ChatService, events EventPublisher, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		svc:    svc,
		events: events,
		logger: logger,
	}
}

// ListConversations returns the user's conversation list
func (p *Policy) ListConversations(ctx context.Context, userID string) ([]entity.ConversationSummary, error) {
	return p.svc.ListConversations(ctx, userID)
}

// GetMessage returns one message of a conversation the user takes part in
func (p *Policy) GetMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.FormattedMessage, error) {
	return p.svc.GetMessage(ctx, userID, conversationID, messageID)
}

// ListMessages returns a page of conversation history
func (p *Policy) ListMessages(ctx context.Context, in service.ListMessagesInput) (*service.ListMessagesOutput, error) {
	return p.svc.ListMessages(ctx, in)
}

// OpenConversation finds or creates a conversation; a new one is announced
// so the participants' feeds pick it up
func (p *Policy) OpenConversation(ctx context.Context, in service.OpenConversationInput) (*service.OpenConversationOutput, error) {
	out, err := p.svc.OpenConversation(ctx, in)
	if err != nil {
		return nil, err
	}
	if out.Created {
		p.publish(ctx, realtime.ConversationEvent(out.Conversation))
	}
	return out, nil
}

// MarkRead clears the user's unread state and announces the new counters
func (p *Policy) MarkRead(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := p.svc.MarkRead(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, realtime.ConversationEvent(conv))
	return conv, nil
}

// SendMessage stores a message and announces both the new row and the
// conversation it advanced
func (p *Policy) SendMessage(ctx context.Context, in service.SendMessageInput) (*entity.FormattedMessage, error) {
	out, err := p.svc.SendMessage(ctx, in)
	if err != nil {
		return nil, err
	}

	p.publish(ctx, realtime.ConversationEvent(out.Conversation))
	p.publish(ctx, realtime.MessageEvent(out.Stored))

	return &out.Message, nil
}

// UpdateOfferStatus applies the couple's decision and announces the conversation
func (p *Policy) UpdateOfferStatus(ctx context.Context, in service.UpdateOfferInput) error {
	out, err := p.svc.UpdateOfferStatus(ctx, in)
	if err != nil {
		return err
	}
	p.publish(ctx, realtime.ConversationEvent(out.Conversation))
	return nil
}

// UpdateAvatar stores a new avatar; open sessions see it on their next cache refresh
func (p *Policy) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	return p.svc.UpdateAvatar(ctx, userID, avatarURL)
}

// publish runs after the change committed, so a failure only costs live
// delivery and is logged instead of failing the request
func (p *Policy) publish(ctx context.Context, ev realtime.Event) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		p.logger.Error("failed to publish realtime event", "type", ev.Type, "error", err)
	}
}

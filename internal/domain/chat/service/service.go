package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vadim/wedding-chat/internal/domain/chat/dao"
	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// Encrypter seals message text for storage
type Encrypter interface {
	Encrypt(plaintext, conversationID string) (string, error)
}

// Service handles chat business logic
type Service struct {
	conversations dao.ConversationRepository
	messages      dao.MessageRepository
	bookings      dao.BookingRepository
	catalog       dao.CatalogRepository
	cipher        Encrypter
	logger        *slog.Logger
}

// New creates a new chat service
func New(
	conversations dao.ConversationRepository,
	messages dao.MessageRepository,
	bookings dao.BookingRepository,
	catalog dao.CatalogRepository,
	cipher Encrypter,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		bookings:      bookings,
		catalog:       catalog,
		cipher:        cipher,
		logger:        logger,
	}
}

// ListConversations returns the conversation list of a user, most recently
// updated first, as seen from the user's side
func (s *Service) ListConversations(ctx context.Context, userID string) ([]entity.ConversationSummary, error) {
	listings, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	summaries := make([]entity.ConversationSummary, 0, len(listings))
	for i := range listings {
		conv := &listings[i].Conversation
		role, ok := conv.RoleOf(userID)
		if !ok {
			continue
		}
		summaries = append(summaries, entity.Summarize(conv, role, listings[i].HasPendingOffer))
	}

	return summaries, nil
}

// GetMessage returns one message of a conversation the user takes part in
func (s *Service) GetMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.FormattedMessage, error) {
	conv, _, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	if msg == nil || msg.ConversationID != conv.ID {
		return nil, entity.ErrMessageNotFound
	}

	sender, _ := conv.RoleOf(msg.SenderID)
	formatted := msg.Format(sender)
	return &formatted, nil
}

// ListMessagesInput represents input for listing a conversation's history
type ListMessagesInput struct {
	UserID         string
	ConversationID string
	Limit          int
	Offset         int
}

// ListMessagesOutput represents a page of history, oldest first
type ListMessagesOutput struct {
	Messages []entity.FormattedMessage
	Total    int64
	HasMore  bool
}

// MaxHistoryLimit caps the page size of ListMessages
const MaxHistoryLimit = 100

// ListMessages returns a page of a conversation's history
func (s *Service) ListMessages(ctx context.Context, in ListMessagesInput) (*ListMessagesOutput, error) {
	conv, _, err := s.participantConversation(ctx, in.UserID, in.ConversationID)
	if err != nil {
		return nil, err
	}

	if in.Limit <= 0 || in.Limit > MaxHistoryLimit {
		in.Limit = MaxHistoryLimit
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	msgs, err := s.messages.GetByConversationID(ctx, conv.ID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("getting messages: %w", err)
	}

	total, err := s.messages.Count(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	formatted := make([]entity.FormattedMessage, len(msgs))
	for i := range msgs {
		sender, _ := conv.RoleOf(msgs[i].SenderID)
		formatted[i] = msgs[i].Format(sender)
	}

	return &ListMessagesOutput{
		Messages: formatted,
		Total:    total,
		HasMore:  int64(in.Offset+len(msgs)) < total,
	}, nil
}

// OpenConversationInput represents input for opening a conversation
type OpenConversationInput struct {
	CoupleID  string
	VendorID  string
	ServiceID string
}

// OpenConversationOutput represents output from opening a conversation
type OpenConversationOutput struct {
	Conversation *entity.Conversation
	Created      bool
}

// OpenConversation returns the open conversation between a couple and a
// vendor, creating it when there is none
func (s *Service) OpenConversation(ctx context.Context, in OpenConversationInput) (*OpenConversationOutput, error) {
	if in.VendorID == "" {
		return nil, entity.ErrMissingVendorID
	}

	couple, err := s.catalog.GetProfile(ctx, in.CoupleID)
	if err != nil {
		return nil, fmt.Errorf("getting couple profile: %w", err)
	}
	if couple == nil {
		return nil, entity.ErrProfileNotFound
	}
	if couple.Role != entity.RoleCouple {
		return nil, entity.ErrNotCouple
	}

	vendor, err := s.catalog.GetProfile(ctx, in.VendorID)
	if err != nil {
		return nil, fmt.Errorf("getting vendor profile: %w", err)
	}
	if vendor == nil || vendor.Role != entity.RoleVendor {
		return nil, fmt.Errorf("%w: vendor %s", entity.ErrProfileNotFound, in.VendorID)
	}

	if in.ServiceID != "" {
		svc, err := s.catalog.GetService(ctx, in.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("getting service: %w", err)
		}
		if svc == nil {
			return nil, entity.ErrServiceNotFound
		}
		if svc.VendorID != vendor.ID {
			return nil, entity.ErrServiceNotOwned
		}
	}

	existing, err := s.conversations.FindOpen(ctx, couple.ID, vendor.ID)
	if err != nil {
		return nil, fmt.Errorf("finding conversation: %w", err)
	}
	if existing != nil {
		return &OpenConversationOutput{Conversation: existing}, nil
	}

	conv := &entity.Conversation{
		ID:              uuid.NewString(),
		CoupleID:        couple.ID,
		VendorID:        vendor.ID,
		ServiceID:       in.ServiceID,
		CoupleName:      couple.DisplayName,
		CoupleAvatarURL: couple.AvatarURL,
		VendorName:      vendor.DisplayName,
		VendorAvatarURL: vendor.AvatarURL,
		VendorCategory:  vendor.Category,
		Status:          entity.ConversationOpen,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return &OpenConversationOutput{Conversation: conv, Created: true}, nil
}

// MarkRead marks the other party's messages read and clears the user's unread counter
func (s *Service) MarkRead(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, role, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	updated, err := s.conversations.MarkRead(ctx, conv.ID, userID, role)
	if err != nil {
		return nil, fmt.Errorf("marking read: %w", err)
	}
	return updated, nil
}

// UpdateAvatar stores a new avatar URL on the profile and on the user's conversations
func (s *Service) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	if err := s.catalog.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return fmt.Errorf("updating profile avatar: %w", err)
	}
	if err := s.conversations.UpdateParticipantAvatar(ctx, userID, avatarURL); err != nil {
		return fmt.Errorf("updating conversation avatars: %w", err)
	}
	return nil
}

// participantConversation loads a conversation and the role userID plays in it
func (s *Service) participantConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, entity.Role, error) {
	if conversationID == "" {
		return nil, "", entity.ErrMissingConversationID
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, "", fmt.Errorf("getting conversation: %w", err)
	}
	if conv == nil {
		return nil, "", entity.ErrConversationNotFound
	}

	role, ok := conv.RoleOf(userID)
	if !ok {
		return nil, "", entity.ErrNotParticipant
	}
	return conv, role, nil
}

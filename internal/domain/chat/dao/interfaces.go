package dao

import (
	"context"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// ConversationRepository defines the interface for conversation storage
type ConversationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]entity.ConversationListing, error)
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	FindOpen(ctx context.Context, coupleID, vendorID string) (*entity.Conversation, error)
	Create(ctx context.Context, conv *entity.Conversation) error
	MarkRead(ctx context.Context, conversationID, readerID string, reader entity.Role) (*entity.Conversation, error)
	UpdateParticipantAvatar(ctx context.Context, userID, avatarURL string) error
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	GetByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]entity.Message, error)
	Count(ctx context.Context, conversationID string) (int64, error)
	Append(ctx context.Context, in entity.MessageAppend) (*entity.Conversation, error)
	ApplyOfferDecision(ctx context.Context, d entity.OfferDecision) (*entity.Conversation, error)
}

// BookingRepository defines the interface for booking lookups
type BookingRepository interface {
	GetByWeddingAndService(ctx context.Context, weddingID, serviceID string) (*entity.Booking, error)
}

// CatalogRepository defines the interface for weddings, services and profiles
type CatalogRepository interface {
	GetWeddingByCouple(ctx context.Context, coupleID string) (*entity.Wedding, error)
	GetService(ctx context.Context, id string) (*entity.VendorService, error)
	GetProfile(ctx context.Context, id string) (*entity.Profile, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
}

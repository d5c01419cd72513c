package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// SendMessageInput represents input for sending a message
type SendMessageInput struct {
	SenderID       string
	ConversationID string
	Type           entity.MessageType
	Text           string
	Offer          *entity.OfferData
}

// SendMessageOutput represents output from sending a message
type SendMessageOutput struct {
	// Message is the API shape returned to the sender
	Message entity.FormattedMessage

	// Stored is the persisted row, as carried by the message-inserted event
	Stored *entity.Message

	// Conversation is the row after the preview and counters advanced
	Conversation *entity.Conversation

	// PendingBooking is set when an offer created or refreshed a booking
	PendingBooking *entity.Booking
}

// SendMessage validates, authorises and persists a text or offer message.
// Text is encrypted at rest; offers carry a plain label and upsert the
// pending booking of (couple's wedding, service).
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if in.ConversationID == "" {
		return nil, entity.ErrMissingConversationID
	}
	if in.Type == "" {
		in.Type = entity.MessageTypeText
	}
	if !in.Type.Valid() {
		return nil, entity.ErrInvalidMessageType
	}

	switch in.Type {
	case entity.MessageTypeText:
		if err := entity.ValidateMessageText(in.Text); err != nil {
			return nil, err
		}
	case entity.MessageTypeOffer:
		if in.Offer == nil {
			return nil, entity.ErrMissingOfferFields
		}
		if err := in.Offer.Validate(); err != nil {
			return nil, err
		}
	}

	conv, role, err := s.participantConversation(ctx, in.SenderID, in.ConversationID)
	if err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Type:           in.Type,
		CreatedAt:      time.Now().UTC(),
	}
	appendIn := entity.MessageAppend{
		Message:   msg,
		Recipient: role.Other(),
	}

	switch in.Type {
	case entity.MessageTypeText:
		sealed, err := s.cipher.Encrypt(in.Text, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("encrypting message: %w", err)
		}
		msg.Content = sealed

	case entity.MessageTypeOffer:
		if role != entity.RoleVendor {
			return nil, entity.ErrNotVendor
		}

		offer, err := s.prepareOffer(ctx, in.SenderID, *in.Offer)
		if err != nil {
			return nil, err
		}
		msg.OfferData = offer
		msg.Content = entity.OfferLabel(offer.ServiceName, offer.Price)

		booking, err := s.pendingBooking(ctx, conv, offer)
		if err != nil {
			return nil, err
		}
		appendIn.PendingBooking = booking
	}

	updated, err := s.messages.Append(ctx, appendIn)
	if err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	return &SendMessageOutput{
		Message:        msg.Format(role),
		Stored:         msg,
		Conversation:   updated,
		PendingBooking: appendIn.PendingBooking,
	}, nil
}

// prepareOffer checks the service belongs to the vendor and freezes its
// selected packages into the offer
func (s *Service) prepareOffer(ctx context.Context, vendorID string, offer entity.OfferData) (*entity.OfferData, error) {
	svc, err := s.catalog.GetService(ctx, offer.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("getting service: %w", err)
	}
	if svc == nil {
		return nil, entity.ErrServiceNotFound
	}
	if svc.VendorID != vendorID {
		return nil, entity.ErrServiceNotOwned
	}

	if offer.ServiceName == "" {
		offer.ServiceName = svc.Name
	}
	if offer.ServiceCategory == "" {
		offer.ServiceCategory = svc.Category
	}
	offer.Services = append([]string(nil), offer.Services...)
	offer.SelectedPackages = append([]string(nil), offer.SelectedPackages...)
	offer.PackageDetails = entity.ResolvePackages(offer.SelectedPackages, svc.Packages)
	offer.Status = entity.OfferPending

	return &offer, nil
}

// pendingBooking builds the booking a new offer upserts. A couple without a
// wedding gets the offer but no booking.
func (s *Service) pendingBooking(ctx context.Context, conv *entity.Conversation, offer *entity.OfferData) (*entity.Booking, error) {
	wedding, err := s.catalog.GetWeddingByCouple(ctx, conv.CoupleID)
	if err != nil {
		return nil, fmt.Errorf("getting wedding: %w", err)
	}
	if wedding == nil {
		s.logger.Warn("offer sent without a wedding, booking skipped",
			"conversation_id", conv.ID,
			"couple_id", conv.CoupleID,
			"service_id", offer.ServiceID,
		)
		return nil, nil
	}

	date, err := offer.EventDate()
	if err != nil {
		return nil, entity.ErrInvalidOfferDate
	}

	return &entity.Booking{
		ID:               uuid.NewString(),
		WeddingID:        wedding.ID,
		ServiceID:        offer.ServiceID,
		VendorID:         conv.VendorID,
		Status:           entity.BookingPending,
		EventDate:        date,
		TotalPrice:       offer.Price,
		SelectedPackages: offer.PackageDetails,
	}, nil
}

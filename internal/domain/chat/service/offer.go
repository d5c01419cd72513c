package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// UpdateOfferInput represents input for answering an offer
type UpdateOfferInput struct {
	UserID    string
	MessageID string
	Status    entity.OfferStatus

	// Booking holds couple adjustments applied on acceptance
	Booking *entity.BookingOverrides
}

// UpdateOfferOutput represents output from answering an offer
type UpdateOfferOutput struct {
	Message      *entity.Message
	Conversation *entity.Conversation

	// Booking is the booking written on acceptance, nil when none was written
	Booking *entity.Booking
}

// UpdateOfferStatus lets the couple accept, reject or negotiate an offer.
// Acceptance confirms the booking of (wedding, service) and closes the
// conversation; all writes of one decision commit together.
func (s *Service) UpdateOfferStatus(ctx context.Context, in UpdateOfferInput) (*UpdateOfferOutput, error) {
	if !in.Status.Valid() || in.Status == entity.OfferPending {
		return nil, entity.ErrInvalidOfferStatus
	}
	if in.Booking != nil && in.Booking.EventDate != nil && *in.Booking.EventDate != "" {
		if _, err := time.Parse(entity.OfferDateLayout, *in.Booking.EventDate); err != nil {
			return nil, entity.ErrInvalidOfferDate
		}
	}

	msg, err := s.messages.GetByID(ctx, in.MessageID)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	if msg == nil {
		return nil, entity.ErrMessageNotFound
	}
	if msg.Type != entity.MessageTypeOffer || msg.OfferData == nil {
		return nil, entity.ErrNotAnOffer
	}

	conv, role, err := s.participantConversation(ctx, in.UserID, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if role != entity.RoleCouple {
		return nil, entity.ErrNotCouple
	}

	if !entity.CanTransition(msg.OfferData.Status, in.Status) {
		return nil, fmt.Errorf("%w: %s to %s", entity.ErrOfferTransition, msg.OfferData.Status, in.Status)
	}

	offer := *msg.OfferData
	offer.Status = in.Status

	decision := entity.OfferDecision{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		Offer:          offer,
	}

	if in.Status == entity.OfferAccepted {
		if offer.ServiceID == "" {
			return nil, entity.ErrMissingServiceID
		}

		wedding, err := s.catalog.GetWeddingByCouple(ctx, conv.CoupleID)
		if err != nil {
			return nil, fmt.Errorf("getting wedding: %w", err)
		}
		if wedding == nil {
			return nil, entity.ErrWeddingNotFound
		}

		existing, err := s.bookings.GetByWeddingAndService(ctx, wedding.ID, offer.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("getting booking: %w", err)
		}

		decision.Booking = confirmedBooking(existing, wedding.ID, conv.VendorID, offer, in.Booking)
		if decision.Booking == nil {
			s.logger.Info("offer accepted without a resolvable booking",
				"message_id", msg.ID,
				"wedding_id", wedding.ID,
				"service_id", offer.ServiceID,
			)
		}
		decision.CloseConversation = true
	}

	updated, err := s.messages.ApplyOfferDecision(ctx, decision)
	if err != nil {
		return nil, fmt.Errorf("applying offer decision: %w", err)
	}

	msg.OfferData = &offer
	return &UpdateOfferOutput{
		Message:      msg,
		Conversation: updated,
		Booking:      decision.Booking,
	}, nil
}

// confirmedBooking returns the booking an accepted offer writes. Overrides
// take precedence over the offer. Without an existing booking one is created
// only when a date and a price can be resolved; otherwise it returns nil.
func confirmedBooking(existing *entity.Booking, weddingID, vendorID string, offer entity.OfferData, o *entity.BookingOverrides) *entity.Booking {
	if o == nil {
		o = &entity.BookingOverrides{}
	}

	date, dateErr := offer.EventDate()
	if o.EventDate != nil && *o.EventDate != "" {
		date, dateErr = time.Parse(entity.OfferDateLayout, *o.EventDate)
	}

	price := offer.Price
	if o.TotalPrice != nil {
		price = *o.TotalPrice
	}

	var b entity.Booking
	if existing != nil {
		b = *existing
	} else {
		if dateErr != nil || price <= 0 {
			return nil
		}
		b = entity.Booking{
			ID:        uuid.NewString(),
			WeddingID: weddingID,
			ServiceID: offer.ServiceID,
		}
	}

	b.VendorID = vendorID
	b.Status = entity.BookingConfirmed
	if dateErr == nil {
		b.EventDate = date
	}
	if price > 0 {
		b.TotalPrice = price
	}
	if o.Deposit != nil {
		b.DepositPaid = *o.Deposit
	}
	if o.Notes != nil {
		b.Notes = *o.Notes
	}
	b.SelectedPackages = append([]entity.PackageDetail(nil), offer.PackageDetails...)

	return &b
}

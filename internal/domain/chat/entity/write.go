package entity

// ConversationListing is a conversation plus whether it holds a pending offer
type ConversationListing struct {
	Conversation
	HasPendingOffer bool
}

// MessageAppend is everything written atomically when a message is sent
type MessageAppend struct {
	Message *Message

	// Recipient is the role whose unread counter is incremented
	Recipient Role

	// PendingBooking, when set, is upserted by (WeddingID, ServiceID) with
	// status, date and price overwritten on conflict
	PendingBooking *Booking
}

// OfferDecision is everything written atomically when an offer changes status
type OfferDecision struct {
	MessageID      string
	ConversationID string
	Offer          OfferData

	// Booking, when set, is saved by (WeddingID, ServiceID) in full
	Booking *Booking

	// CloseConversation marks the conversation closed
	CloseConversation bool
}

package entity

import "errors"

// Domain errors for chat
var (
	// not found
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrProfileNotFound      = errors.New("profile not found")

	// validation
	ErrMissingConversationID = errors.New("conversationId is required")
	ErrEmptyMessage          = errors.New("message text cannot be empty")
	ErrMessageTooLong        = errors.New("message exceeds maximum length")
	ErrInvalidMessageType    = errors.New("invalid message type")
	ErrMissingOfferFields    = errors.New("missing required offer fields")
	ErrInvalidOfferDate      = errors.New("offer date must be YYYY-MM-DD")
	ErrInvalidOfferStatus    = errors.New("invalid offer status")
	ErrNotAnOffer            = errors.New("message is not an offer")
	ErrMissingServiceID      = errors.New("offer has no service id")
	ErrWeddingNotFound       = errors.New("no wedding found for couple")
	ErrMissingVendorID       = errors.New("vendor_id is required")

	// authorization
	ErrNotParticipant  = errors.New("not a participant of this conversation")
	ErrNotVendor       = errors.New("only the vendor can send offers")
	ErrNotCouple       = errors.New("only the couple can respond to offers")
	ErrServiceNotOwned = errors.New("service does not belong to this vendor")

	// state
	ErrOfferTransition = errors.New("offer status cannot change")
)

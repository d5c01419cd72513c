package entity

import "time"

// Role identifies which side of a conversation a user is on
type Role string

const (
	RoleCouple Role = "couple"
	RoleVendor Role = "vendor"
)

// Other returns the opposite side of a conversation
func (r Role) Other() Role {
	if r == RoleVendor {
		return RoleCouple
	}
	return RoleVendor
}

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "open"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is a persistent thread between one couple and one vendor.
// Display fields are denormalized at creation so list reads need no joins.
type Conversation struct {
	ID              string             `json:"id"`
	CoupleID        string             `json:"couple_id"`
	VendorID        string             `json:"vendor_id"`
	ServiceID       string             `json:"service_id,omitempty"`
	CoupleName      string             `json:"couple_name"`
	CoupleAvatarURL string             `json:"couple_avatar_url,omitempty"`
	VendorName      string             `json:"vendor_name"`
	VendorAvatarURL string             `json:"vendor_avatar_url,omitempty"`
	VendorCategory  string             `json:"vendor_category,omitempty"`
	CoupleUnread    int                `json:"couple_unread_count"`
	VendorUnread    int                `json:"vendor_unread_count"`
	LastMessageText string             `json:"last_message_text,omitempty"`
	LastMessageAt   *time.Time         `json:"last_message_at,omitempty"`
	Status          ConversationStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// RoleOf returns the role userID plays in the conversation
func (c *Conversation) RoleOf(userID string) (Role, bool) {
	switch userID {
	case c.CoupleID:
		return RoleCouple, true
	case c.VendorID:
		return RoleVendor, true
	default:
		return "", false
	}
}

// UnreadFor returns the unread counter of the given role
func (c *Conversation) UnreadFor(role Role) int {
	if role == RoleVendor {
		return c.VendorUnread
	}
	return c.CoupleUnread
}

// SummaryStatus is the status shown in a conversation list
type SummaryStatus string

const (
	SummaryOpen      SummaryStatus = "open"
	SummaryClosed    SummaryStatus = "closed"
	SummaryOfferSent SummaryStatus = "offer-sent"
)

// ConversationSummary is one row of a user's conversation list
type ConversationSummary struct {
	ID              string        `json:"id"`
	ConversationID  string        `json:"conversation_id"`
	ViewerRole      Role          `json:"viewer_role"`
	VendorName      string        `json:"vendor_name"`
	VendorAvatar    string        `json:"vendor_avatar,omitempty"`
	VendorCategory  string        `json:"vendor_category,omitempty"`
	CoupleName      string        `json:"couple_name"`
	CoupleAvatar    string        `json:"couple_avatar,omitempty"`
	LastMessage     string        `json:"last_message"`
	Timestamp       *time.Time    `json:"timestamp,omitempty"`
	Unread          bool          `json:"unread"`
	Status          SummaryStatus `json:"status"`
	HasPendingOffer bool          `json:"has_pending_offer"`
}

// Summarize builds the list row of conv as seen by viewer
func Summarize(conv *Conversation, viewer Role, hasPendingOffer bool) ConversationSummary {
	return ConversationSummary{
		ID:              conv.ID,
		ConversationID:  conv.ID,
		ViewerRole:      viewer,
		VendorName:      conv.VendorName,
		VendorAvatar:    conv.VendorAvatarURL,
		VendorCategory:  conv.VendorCategory,
		CoupleName:      conv.CoupleName,
		CoupleAvatar:    conv.CoupleAvatarURL,
		LastMessage:     conv.LastMessageText,
		Timestamp:       conv.LastMessageAt,
		Unread:          conv.UnreadFor(viewer) > 0,
		Status:          SummaryStatusOf(conv.Status, hasPendingOffer),
		HasPendingOffer: hasPendingOffer,
	}
}

// SummaryStatusOf folds the conversation status and pending-offer flag into a list status
func SummaryStatusOf(status ConversationStatus, hasPendingOffer bool) SummaryStatus {
	switch {
	case status == ConversationClosed:
		return SummaryClosed
	case hasPendingOffer:
		return SummaryOfferSent
	default:
		return SummaryOpen
	}
}

// ChatPath is the UI location of a conversation's chat view
func ChatPath(conversationID string) string {
	return "/messages/" + conversationID
}

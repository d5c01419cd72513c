package entity

import (
	"time"
	"unicode/utf8"
)

// MessageType represents the type of chat message
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeOffer MessageType = "offer"
)

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeOffer
}

// Message is a single chat message. Content holds ciphertext for text
// messages and a plain label for offers.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	OfferData      *OfferData  `json:"offer_data,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	ReadAt         *time.Time  `json:"read_at,omitempty"`
}

// FormattedMessage is the API shape of a message
type FormattedMessage struct {
	ID           string      `json:"id"`
	Sender       Role        `json:"sender"`
	Message      string      `json:"message"`
	Timestamp    time.Time   `json:"timestamp"`
	Type         MessageType `json:"type"`
	OfferDetails *OfferData  `json:"offer_details,omitempty"`
	Read         bool        `json:"read"`
}

// Format converts a stored message to its API shape
func (m *Message) Format(sender Role) FormattedMessage {
	return FormattedMessage{
		ID:           m.ID,
		Sender:       sender,
		Message:      m.Content,
		Timestamp:    m.CreatedAt,
		Type:         m.Type,
		OfferDetails: m.OfferData,
		Read:         m.ReadAt != nil,
	}
}

// MaxMessageLength is the maximum length of a plaintext message in characters
const MaxMessageLength = 4000

// ValidateMessageText validates the plaintext of a text message
func ValidateMessageText(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

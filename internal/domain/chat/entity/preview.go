package entity

// OfferPreview is the notification text of an offer message
const OfferPreview = "sent you a booking offer"

// DefaultPreviewLength is the maximum number of characters of a text preview
const DefaultPreviewLength = 50

// Preview formats the notification body of a message. Text is truncated to
// maxLen characters with an ellipsis.
func Preview(msgType MessageType, text string, maxLen int) string {
	if msgType == MessageTypeOffer {
		return OfferPreview
	}
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

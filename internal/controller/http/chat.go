package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/wedding-chat/internal/auth"
	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/domain/chat/service"
	"github.com/vadim/wedding-chat/internal/httpx/response"
)

// ChatPolicy defines the interface for chat operations
type ChatPolicy interface {
	ListConversations(ctx context.Context, userID string) ([]entity.ConversationSummary, error)
	GetMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.FormattedMessage, error)
	ListMessages(ctx context.Context, in service.ListMessagesInput) (*service.ListMessagesOutput, error)
	OpenConversation(ctx context.Context, in service.OpenConversationInput) (*service.OpenConversationOutput, error)
	MarkRead(ctx context.Context, userID, conversationID string) (*entity.Conversation, error)
	SendMessage(ctx context.Context, in service.SendMessageInput) (*entity.FormattedMessage, error)
	UpdateOfferStatus(ctx context.Context, in service.UpdateOfferInput) error
}

// ChatHandler handles HTTP requests for chat
type ChatHandler struct {
	policy ChatPolicy
}

// NewChatHandler creates a new chat handler
func NewChatHandler(p ChatPolicy) *ChatHandler {
	return &ChatHandler{policy: p}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/conversations", h.ListConversations())
		r.Post("/conversations", h.OpenConversation())
		r.Get("/conversations/{conversationId}/messages", h.ListMessages())
		r.Get("/conversations/{conversationId}/messages/{messageId}", h.GetMessage())
		r.Post("/conversations/{conversationId}/read", h.MarkRead())

		r.Post("/messages", h.SendMessage())
		r.Put("/offers/{messageId}", h.UpdateOfferStatus())
	})
}

// ConversationsResponse represents the conversation list
type ConversationsResponse struct {
	Conversations []entity.ConversationSummary `json:"conversations"`
}

// ListConversations handles GET /chat/conversations
func (h *ChatHandler) ListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := h.policy.ListConversations(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			handleChatError(w, err)
			return
		}
		if summaries == nil {
			summaries = []entity.ConversationSummary{}
		}

		response.OK(w, ConversationsResponse{Conversations: summaries})
	}
}

// OpenConversationRequest represents the request body for opening a conversation
type OpenConversationRequest struct {
	VendorID  string `json:"vendor_id"`
	ServiceID string `json:"service_id,omitempty"`
}

// OpenConversation handles POST /chat/conversations
func (h *ChatHandler) OpenConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenConversationRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		out, err := h.policy.OpenConversation(r.Context(), service.OpenConversationInput{
			CoupleID:  auth.UserID(r.Context()),
			VendorID:  req.VendorID,
			ServiceID: req.ServiceID,
		})
		if err != nil {
			handleChatError(w, err)
			return
		}

		if out.Created {
			response.Created(w, out.Conversation)
			return
		}
		response.OK(w, out.Conversation)
	}
}

// MessagesResponse represents a page of conversation history
type MessagesResponse struct {
	Messages []entity.FormattedMessage `json:"messages"`
	Total    int64                     `json:"total"`
	HasMore  bool                      `json:"has_more"`
}

// ListMessages handles GET /chat/conversations/{conversationId}/messages
func (h *ChatHandler) ListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		offset := 0
		if o := r.URL.Query().Get("offset"); o != "" {
			if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
				offset = parsed
			}
		}

		out, err := h.policy.ListMessages(r.Context(), service.ListMessagesInput{
			UserID:         auth.UserID(r.Context()),
			ConversationID: chi.URLParam(r, "conversationId"),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			handleChatError(w, err)
			return
		}

		messages := out.Messages
		if messages == nil {
			messages = []entity.FormattedMessage{}
		}
		response.OK(w, MessagesResponse{Messages: messages, Total: out.Total, HasMore: out.HasMore})
	}
}

// GetMessage handles GET /chat/conversations/{conversationId}/messages/{messageId}
func (h *ChatHandler) GetMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := h.policy.GetMessage(r.Context(),
			auth.UserID(r.Context()),
			chi.URLParam(r, "conversationId"),
			chi.URLParam(r, "messageId"),
		)
		if err != nil {
			handleChatError(w, err)
			return
		}

		response.OK(w, msg)
	}
}

// MarkRead handles POST /chat/conversations/{conversationId}/read
func (h *ChatHandler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.policy.MarkRead(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "conversationId")); err != nil {
			handleChatError(w, err)
			return
		}

		response.Success(w)
	}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	ConversationID string             `json:"conversation_id"`
	Message        string             `json:"message,omitempty"`
	MessageType    entity.MessageType `json:"message_type,omitempty"`
	OfferData      *entity.OfferData  `json:"offer_data,omitempty"`
}

// SendMessage handles POST /chat/messages
func (h *ChatHandler) SendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		msg, err := h.policy.SendMessage(r.Context(), service.SendMessageInput{
			SenderID:       auth.UserID(r.Context()),
			ConversationID: req.ConversationID,
			Type:           req.MessageType,
			Text:           req.Message,
			Offer:          req.OfferData,
		})
		if err != nil {
			handleChatError(w, err)
			return
		}

		response.Created(w, msg)
	}
}

// UpdateOfferRequest represents the request body for answering an offer
type UpdateOfferRequest struct {
	Status      entity.OfferStatus       `json:"status"`
	BookingData *entity.BookingOverrides `json:"booking_data,omitempty"`
}

// UpdateOfferStatus handles PUT /chat/offers/{messageId}
func (h *ChatHandler) UpdateOfferStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateOfferRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		err := h.policy.UpdateOfferStatus(r.Context(), service.UpdateOfferInput{
			UserID:    auth.UserID(r.Context()),
			MessageID: chi.URLParam(r, "messageId"),
			Status:    req.Status,
			Booking:   req.BookingData,
		})
		if err != nil {
			handleChatError(w, err)
			return
		}

		response.Success(w)
	}
}

// handleChatError maps domain errors to HTTP responses. Storage failures
// surface their message since every route here is a direct user action.
func handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrConversationNotFound),
		errors.Is(err, entity.ErrMessageNotFound),
		errors.Is(err, entity.ErrServiceNotFound),
		errors.Is(err, entity.ErrProfileNotFound):
		response.NotFound(w, err.Error())

	case errors.Is(err, entity.ErrMissingConversationID),
		errors.Is(err, entity.ErrEmptyMessage),
		errors.Is(err, entity.ErrMessageTooLong),
		errors.Is(err, entity.ErrInvalidMessageType),
		errors.Is(err, entity.ErrMissingOfferFields),
		errors.Is(err, entity.ErrInvalidOfferDate),
		errors.Is(err, entity.ErrInvalidOfferStatus),
		errors.Is(err, entity.ErrNotAnOffer),
		errors.Is(err, entity.ErrMissingServiceID),
		errors.Is(err, entity.ErrWeddingNotFound),
		errors.Is(err, entity.ErrMissingVendorID):
		response.BadRequest(w, err.Error())

	case errors.Is(err, entity.ErrNotParticipant),
		errors.Is(err, entity.ErrNotVendor),
		errors.Is(err, entity.ErrNotCouple),
		errors.Is(err, entity.ErrServiceNotOwned):
		response.Forbidden(w, err.Error())

	case errors.Is(err, entity.ErrOfferTransition):
		response.Conflict(w, err.Error())

	default:
		response.InternalError(w, err.Error())
	}
}

package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/wedding-chat/internal/auth"
	"github.com/vadim/wedding-chat/internal/httpx/response"
	"github.com/vadim/wedding-chat/internal/storage"
)

// MaxAvatarSize is the maximum accepted avatar upload (5MB)
const MaxAvatarSize = 5 << 20

// AvatarStore persists uploaded profile images
type AvatarStore interface {
	PutAvatar(ctx context.Context, in storage.AvatarInput) (*storage.StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// ProfilePolicy defines the profile operations the handler needs
type ProfilePolicy interface {
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
}

// ProfileHandler handles profile HTTP requests
type ProfileHandler struct {
	policy ProfilePolicy
	store  AvatarStore
	logger *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(p ProfilePolicy, store AvatarStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{policy: p, store: store, logger: logger}
}

// RegisterRoutes registers profile routes
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Post("/profile/avatar", h.UploadAvatar())
}

// AvatarResponse represents the response from the avatar upload
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// UploadAvatar handles POST /profile/avatar
func (h *ProfileHandler) UploadAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarSize)
		if err := r.ParseMultipartForm(MaxAvatarSize); err != nil {
			response.BadRequest(w, "file too large or invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "missing file in request")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if storage.ImageExtension(contentType) == "" {
			response.BadRequest(w, fmt.Sprintf("unsupported image type: %s", contentType))
			return
		}

		obj, err := h.store.PutAvatar(r.Context(), storage.AvatarInput{
			UserID:      userID,
			Reader:      file,
			ContentType: contentType,
			Size:        header.Size,
			Filename:    header.Filename,
		})
		if err != nil {
			h.logger.Error("avatar upload failed", "user_id", userID, "error", err)
			response.InternalError(w, "failed to upload avatar")
			return
		}

		if err := h.policy.UpdateAvatar(r.Context(), userID, obj.URL); err != nil {
			if derr := h.store.Delete(context.WithoutCancel(r.Context()), obj.Key); derr != nil {
				h.logger.Warn("failed to remove orphaned avatar", "key", obj.Key, "error", derr)
			}
			handleChatError(w, err)
			return
		}

		response.OK(w, AvatarResponse{AvatarURL: obj.URL})
	}
}

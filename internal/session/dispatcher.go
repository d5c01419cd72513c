package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/encryption"
)

// Outcome records what the dispatcher did with one message event
type Outcome string

const (
	OutcomeSelf         Outcome = "self"
	OutcomeActiveView   Outcome = "active_view"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeToast        Outcome = "toast"
	OutcomeToastBrowser Outcome = "toast_browser"
)

// Dispatcher decides, per inserted message, whether and how to alert the user
type Dispatcher struct {
	userID        string
	reader        ChatReader
	cipher        Decrypter
	cache         *DisplayCache
	toaster       *Toaster
	out           Outbox
	location      func() string
	permission    func() Permission
	previewLength int
	logger        *slog.Logger
}

// DispatcherDeps groups the collaborators of a Dispatcher
type DispatcherDeps struct {
	UserID        string
	Reader        ChatReader
	Cipher        Decrypter
	Cache         *DisplayCache
	Toaster       *Toaster
	Out           Outbox
	Location      func() string
	Permission    func() Permission
	PreviewLength int
	Logger        *slog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.PreviewLength <= 0 {
		deps.PreviewLength = entity.DefaultPreviewLength
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Dispatcher{
		userID:        deps.UserID,
		reader:        deps.Reader,
		cipher:        deps.Cipher,
		cache:         deps.Cache,
		toaster:       deps.Toaster,
		out:           deps.Out,
		location:      deps.Location,
		permission:    deps.Permission,
		previewLength: deps.PreviewLength,
		logger:        deps.Logger,
	}
}

// HandleMessage runs the alert pipeline for one inserted message
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *entity.Message) (Outcome, error) {
	if msg.SenderID == d.userID {
		return OutcomeSelf, nil
	}

	if d.location != nil && d.location() == entity.ChatPath(msg.ConversationID) {
		return OutcomeActiveView, nil
	}

	// Membership can change, so it is checked against a fresh list every time
	summaries, err := d.reader.ListConversations(ctx, d.userID)
	if err != nil {
		return "", fmt.Errorf("listing conversations: %w", err)
	}
	summary, ok := findSummary(summaries, msg.ConversationID)
	if !ok {
		return OutcomeUnauthorized, nil
	}

	info, ok := d.cache.Get(msg.ConversationID)
	if !ok {
		info = displayInfoOf(summary)
		d.cache.Put(msg.ConversationID, info)
	}

	fetched, err := d.reader.GetMessage(ctx, d.userID, msg.ConversationID, msg.ID)
	if err != nil {
		return "", fmt.Errorf("getting message: %w", err)
	}

	content := fetched.Message
	if fetched.Type == entity.MessageTypeText && encryption.IsEncrypted(content) {
		content = d.cipher.Decrypt(content, msg.ConversationID)
	}
	preview := entity.Preview(fetched.Type, content, d.previewLength)

	d.toaster.Push(Toast{
		Title:          info.Name,
		Message:        preview,
		Avatar:         info.Avatar,
		ConversationID: msg.ConversationID,
	})

	if d.permission == nil || d.permission() != PermissionGranted {
		return OutcomeToast, nil
	}

	d.out.Send(Frame{
		Type: FrameBrowserNotification,
		Notification: &BrowserNotification{
			Title:              info.Name,
			Body:               preview,
			Icon:               info.Avatar,
			Tag:                msg.ConversationID,
			RequireInteraction: fetched.Type == entity.MessageTypeOffer,
		},
	})
	return OutcomeToastBrowser, nil
}

func findSummary(summaries []entity.ConversationSummary, conversationID string) (entity.ConversationSummary, bool) {
	for _, s := range summaries {
		if s.ConversationID == conversationID {
			return s, true
		}
	}
	return entity.ConversationSummary{}, false
}

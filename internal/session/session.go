// Package session runs one authenticated browser's live chat view: its
// conversation feed, message alerts, toasts and notification permission.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/realtime"
)

// ChatReader is the read side of the chat API a session consumes
type ChatReader interface {
	ListConversations(ctx context.Context, userID string) ([]entity.ConversationSummary, error)
	GetMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.FormattedMessage, error)
}

// Decrypter opens stored message text. It never fails; unreadable input
// yields a placeholder.
type Decrypter interface {
	Decrypt(encoded, conversationID string) string
}

// Subscriber opens a subscription on the change feed
type Subscriber interface {
	Subscribe(ctx context.Context) (*realtime.Subscription, error)
}

// Config holds session timings
type Config struct {
	CacheRefresh    time.Duration
	ToastTTL        time.Duration
	PermissionDelay time.Duration
	PreviewLength   int
}

// Session is the live state of one connected browser
type Session struct {
	userID string
	cfg    Config
	feed   *Feed
	disp   *Dispatcher
	cache  *DisplayCache
	toasts *Toaster
	perm   *permissionState
	out    Outbox
	events Subscriber
	logger *slog.Logger

	refresher *cacheRefresher

	mu       sync.Mutex
	location string
	sub      *realtime.Subscription
	prompt   *time.Timer
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// New creates a session for userID; nothing runs until Start
func New(userID string, cfg Config, reader ChatReader, cipher Decrypter, events Subscriber, out Outbox, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("user_id", userID)

	s := &Session{
		userID: userID,
		cfg:    cfg,
		cache:  NewDisplayCache(),
		perm:   newPermissionState(),
		out:    out,
		events: events,
		logger: logger,
	}

	s.toasts = NewToaster(cfg.ToastTTL, out, s.SetLocation)
	s.feed = NewFeed(userID, reader, cipher, out, logger)
	s.disp = NewDispatcher(DispatcherDeps{
		UserID:        userID,
		Reader:        reader,
		Cipher:        cipher,
		Cache:         s.cache,
		Toaster:       s.toasts,
		Out:           out,
		Location:      s.Location,
		Permission:    s.perm.Get,
		PreviewLength: cfg.PreviewLength,
		Logger:        logger,
	})
	s.refresher = newCacheRefresher(s.cache, reader, userID, cfg.CacheRefresh, logger)

	return s
}

// Start subscribes to the change feed, loads the conversation list, starts
// the cache refresher and schedules the permission prompt. The subscription
// is released by Close, or right away if Start fails.
func (s *Session) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	sub, err := s.events.Subscribe(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribing to changes: %w", err)
	}

	s.mu.Lock()
	s.sub = sub
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.consume(ctx, sub)

	s.load(ctx)
	s.refresher.Start(ctx)
	s.schedulePermissionPrompt()

	s.logger.Info("session started")
	return nil
}

// Close releases the subscription and stops every timer and worker
func (s *Session) Close() {
	s.mu.Lock()
	sub, cancel, prompt := s.sub, s.cancel, s.prompt
	s.sub, s.prompt = nil, nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if prompt != nil {
		prompt.Stop()
	}
	if cancel != nil {
		cancel()
	}

	s.refresher.Stop()
	s.toasts.Close()
	s.wg.Wait()
	s.feed.Wait()

	s.logger.Info("session closed")
}

// HandleFrame applies a frame sent by the browser
func (s *Session) HandleFrame(ctx context.Context, f ClientFrame) {
	switch f.Type {
	case ClientLocation:
		s.SetLocation(f.Path)
	case ClientPermission:
		if f.State.Valid() {
			s.perm.Set(f.State)
		}
	case ClientToastClick:
		s.toasts.Click(f.ID)
	case ClientReload:
		s.load(ctx)
	default:
		s.logger.Debug("ignoring unknown frame", "type", f.Type)
	}
}

// SetLocation records the UI location the browser is showing
func (s *Session) SetLocation(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = path
}

// Location returns the UI location the browser is showing
func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Feed returns the session's conversation feed
func (s *Session) Feed() *Feed { return s.feed }

// Toasts returns the session's toaster
func (s *Session) Toasts() *Toaster { return s.toasts }

// load fetches the conversation list; a failure is shown to the user with a retry affordance
func (s *Session) load(ctx context.Context) {
	err := runUserAction(ctx, "loading conversations", s.feed.Load)
	if err != nil {
		s.logger.Error("failed to load conversations", "error", err)
		s.out.Send(Frame{Type: FrameError, Error: err.Error(), Retry: true})
	}
}

// consume routes change-feed events until the subscription is released
func (s *Session) consume(ctx context.Context, sub *realtime.Subscription) {
	defer s.wg.Done()

	for {
		select {
		case <-sub.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.route(ctx, ev)
		}
	}
}

func (s *Session) route(ctx context.Context, ev realtime.Event) {
	switch ev.Type {
	case realtime.ConversationUpdated:
		s.feed.HandleConversation(ctx, ev.Conversation)

	case realtime.MessageInserted:
		if ev.Message == nil {
			return
		}
		msg := ev.Message
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			runBackground(ctx, s.logger, "message alert", func(ctx context.Context) error {
				outcome, err := s.disp.HandleMessage(ctx, msg)
				if err != nil {
					return err
				}
				s.logger.Debug("message dispatched", "message_id", msg.ID, "outcome", outcome)
				return nil
			})
		}()
	}
}

// schedulePermissionPrompt asks the browser for notification permission
// after a delay, if it has not been granted or denied by then
func (s *Session) schedulePermissionPrompt() {
	delay := s.cfg.PermissionDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}

	timer := time.AfterFunc(delay, func() {
		if s.perm.Get() == PermissionDefault && s.userID != "" {
			s.out.Send(Frame{Type: FrameRequestPermission})
		}
	})

	s.mu.Lock()
	s.prompt = timer
	s.mu.Unlock()
}

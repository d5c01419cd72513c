package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/encryption"
)

// Phase is where a conversation's preview is in its update cycle
type Phase int

const (
	// PhaseIdle means no update has been seen or one is being fetched
	PhaseIdle Phase = iota
	// PhaseDecrypting means the latest update waits on decryption and is not shown yet
	PhaseDecrypting
	// PhaseSettled means the list shows the latest update
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseDecrypting:
		return "decrypting"
	case PhaseSettled:
		return "settled"
	default:
		return "idle"
	}
}

// decryptWorkers bounds concurrent decryption during a full load
const decryptWorkers = 8

type previewState struct {
	phase Phase
	seq   uint64
}

// Feed is a user's live conversation list, most recently updated first.
// Every change is pushed to the browser as a conversations frame.
type Feed struct {
	userID string
	reader ChatReader
	cipher Decrypter
	out    Outbox
	logger *slog.Logger

	mu     sync.Mutex
	items  []entity.ConversationSummary
	states map[string]*previewState

	wg sync.WaitGroup
}

// NewFeed creates an empty feed
func NewFeed(userID string, reader ChatReader, cipher Decrypter, out Outbox, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		userID: userID,
		reader: reader,
		cipher: cipher,
		out:    out,
		logger: logger,
		states: make(map[string]*previewState),
	}
}

// Load fetches the full list and shows it at once. Encrypted previews are
// blank until their decryption settles; conversations decrypt concurrently.
func (f *Feed) Load(ctx context.Context) error {
	summaries, err := f.reader.ListConversations(ctx, f.userID)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	type job struct {
		id     string
		sealed string
		seq    uint64
	}
	var jobs []job

	f.mu.Lock()
	f.items = make([]entity.ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		st := f.advance(s.ConversationID)
		if needsDecrypt(s.LastMessage) {
			jobs = append(jobs, job{id: s.ConversationID, sealed: s.LastMessage, seq: st.seq})
			s.LastMessage = ""
			st.phase = PhaseDecrypting
		} else {
			st.phase = PhaseSettled
		}
		f.items = append(f.items, s)
	}
	f.publishLocked()
	f.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
		g.SetLimit(decryptWorkers)
		for _, j := range jobs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				text := f.cipher.Decrypt(j.sealed, j.id)
				f.commit(j.id, j.seq, false, func(s *entity.ConversationSummary) {
					s.LastMessage = text
				})
				return nil
			})
		}
		_ = g.Wait()
	}()

	return nil
}

// HandleConversation merges a conversation-updated row into the list.
// Rows of conversations the user is not part of are ignored.
func (f *Feed) HandleConversation(ctx context.Context, conv *entity.Conversation) {
	if conv == nil {
		return
	}
	role, ok := conv.RoleOf(f.userID)
	if !ok {
		return
	}

	f.mu.Lock()
	idx := f.indexOf(conv.ID)
	st := f.advance(conv.ID)
	seq := st.seq

	if idx < 0 {
		// A new conversation lacks the display fields only a full fetch has
		st.phase = PhaseIdle
		f.mu.Unlock()

		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			runBackground(context.WithoutCancel(ctx), f.logger, "new conversation enrichment", func(ctx context.Context) error {
				return f.addNew(ctx, conv.ID, seq)
			})
		}()
		return
	}

	updated := splice(f.items[idx], conv, role)
	if !needsDecrypt(updated.LastMessage) {
		f.commitLocked(updated, seq, true)
		f.mu.Unlock()
		return
	}

	st.phase = PhaseDecrypting
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		text := f.cipher.Decrypt(updated.LastMessage, conv.ID)
		f.commit(conv.ID, seq, true, func(s *entity.ConversationSummary) {
			*s = updated
			s.LastMessage = text
		})
	}()
}

// addNew fetches the full list, takes the new conversation from it and
// puts it at the front
func (f *Feed) addNew(ctx context.Context, conversationID string, seq uint64) error {
	summaries, err := f.reader.ListConversations(ctx, f.userID)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	for _, s := range summaries {
		if s.ConversationID != conversationID {
			continue
		}
		if needsDecrypt(s.LastMessage) {
			s.LastMessage = f.cipher.Decrypt(s.LastMessage, conversationID)
		}
		f.commit(conversationID, seq, true, func(dst *entity.ConversationSummary) {
			*dst = s
		})
		return nil
	}

	return fmt.Errorf("conversation %s missing from list", conversationID)
}

// commit applies an update if it is still the latest one for its
// conversation. An update overtaken by a newer event is dropped.
func (f *Feed) commit(conversationID string, seq uint64, toFront bool, apply func(*entity.ConversationSummary)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.states[conversationID]
	if !ok || st.seq != seq {
		return false
	}

	var s entity.ConversationSummary
	if idx := f.indexOf(conversationID); idx >= 0 {
		s = f.items[idx]
	}
	apply(&s)
	f.commitLocked(s, seq, toFront)
	return true
}

func (f *Feed) commitLocked(s entity.ConversationSummary, seq uint64, toFront bool) {
	if st := f.states[s.ConversationID]; st != nil && st.seq == seq {
		st.phase = PhaseSettled
	}

	idx := f.indexOf(s.ConversationID)
	switch {
	case idx >= 0 && !toFront:
		f.items[idx] = s
	case idx >= 0:
		copy(f.items[1:idx+1], f.items[:idx])
		f.items[0] = s
	default:
		f.items = append([]entity.ConversationSummary{s}, f.items...)
	}

	f.publishLocked()
}

// advance starts a new update cycle for a conversation
func (f *Feed) advance(conversationID string) *previewState {
	st, ok := f.states[conversationID]
	if !ok {
		st = &previewState{}
		f.states[conversationID] = st
	}
	st.seq++
	return st
}

func (f *Feed) indexOf(conversationID string) int {
	for i := range f.items {
		if f.items[i].ConversationID == conversationID {
			return i
		}
	}
	return -1
}

func (f *Feed) publishLocked() {
	if f.out == nil {
		return
	}
	f.out.Send(Frame{Type: FrameConversations, Conversations: f.snapshotLocked()})
}

func (f *Feed) snapshotLocked() []entity.ConversationSummary {
	out := make([]entity.ConversationSummary, len(f.items))
	copy(out, f.items)
	return out
}

// Snapshot returns a copy of the current list
func (f *Feed) Snapshot() []entity.ConversationSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Phase returns the update phase of a conversation
func (f *Feed) Phase(conversationID string) Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.states[conversationID]; ok {
		return st.phase
	}
	return PhaseIdle
}

// Wait blocks until in-flight decryptions and fetches finish
func (f *Feed) Wait() {
	f.wg.Wait()
}

// splice lays the changed fields of a conversation row over its current summary
func splice(current entity.ConversationSummary, conv *entity.Conversation, viewer entity.Role) entity.ConversationSummary {
	s := current
	s.LastMessage = conv.LastMessageText
	s.Timestamp = conv.LastMessageAt
	s.Unread = conv.UnreadFor(viewer) > 0

	hasPending := current.HasPendingOffer || entity.IsOfferLabel(conv.LastMessageText)
	if conv.Status == entity.ConversationClosed {
		hasPending = false
	}
	s.HasPendingOffer = hasPending
	s.Status = entity.SummaryStatusOf(conv.Status, hasPending)
	return s
}

// needsDecrypt reports whether a preview is ciphertext. Offer labels are
// always shown as they are.
func needsDecrypt(text string) bool {
	return !entity.IsOfferLabel(text) && encryption.IsEncrypted(text)
}

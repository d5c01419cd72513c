package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
	"github.com/vadim/wedding-chat/internal/encryption"
)

const (
	coupleID = "couple-1"
	vendorID = "vendor-1"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testCipherOnce sync.Once
	testCipher     *encryption.Cipher
)

// sharedCipher reuses one cipher so each conversation key is derived once per run
func sharedCipher() *encryption.Cipher {
	testCipherOnce.Do(func() {
		testCipher = encryption.New(encryption.DefaultSalt, quietLogger())
	})
	return testCipher
}

func seal(t *testing.T, text, conversationID string) string {
	t.Helper()
	sealed, err := sharedCipher().Encrypt(text, conversationID)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	return sealed
}

type fakeReader struct {
	mu        sync.Mutex
	lists     map[string][]entity.ConversationSummary
	messages  map[string]*entity.FormattedMessage
	listErr   error
	listCalls int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		lists:    make(map[string][]entity.ConversationSummary),
		messages: make(map[string]*entity.FormattedMessage),
	}
}

func (r *fakeReader) ListConversations(_ context.Context, userID string) ([]entity.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]entity.ConversationSummary, len(r.lists[userID]))
	copy(out, r.lists[userID])
	return out, nil
}

func (r *fakeReader) GetMessage(_ context.Context, _, conversationID, messageID string) (*entity.FormattedMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return nil, entity.ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *fakeReader) setList(userID string, summaries ...entity.ConversationSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[userID] = summaries
}

func (r *fakeReader) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err
}

func (r *fakeReader) putMessage(msg entity.FormattedMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ID] = &msg
}

func (r *fakeReader) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

// coupleSummary is conversation id as seen by the couple, with the vendor as the other party
func coupleSummary(id, vendorName, last string) entity.ConversationSummary {
	return entity.ConversationSummary{
		ID:             id,
		ConversationID: id,
		ViewerRole:     entity.RoleCouple,
		VendorName:     vendorName,
		VendorAvatar:   "https://cdn/" + id + ".png",
		CoupleName:     "Ana & Ben",
		LastMessage:    last,
		Status:         entity.SummaryOpen,
	}
}

func conversationRow(id, last string) *entity.Conversation {
	at := time.Now()
	return &entity.Conversation{
		ID:              id,
		CoupleID:        coupleID,
		VendorID:        vendorID,
		LastMessageText: last,
		LastMessageAt:   &at,
		CoupleUnread:    1,
		Status:          entity.ConversationOpen,
	}
}

type recordingOutbox struct {
	mu     sync.Mutex
	frames []Frame
}

func (o *recordingOutbox) Send(f Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, f)
}

func (o *recordingOutbox) ofType(ft FrameType) []Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Frame
	for _, f := range o.frames {
		if f.Type == ft {
			out = append(out, f)
		}
	}
	return out
}

// gatedCipher holds back decryption of chosen inputs until released
type gatedCipher struct {
	inner Decrypter

	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedCipher() *gatedCipher {
	return &gatedCipher{inner: sharedCipher(), gates: make(map[string]chan struct{})}
}

func (g *gatedCipher) hold(encoded string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[encoded] = make(chan struct{})
}

func (g *gatedCipher) release(encoded string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.gates[encoded]; ok {
		close(ch)
		delete(g.gates, encoded)
	}
}

func (g *gatedCipher) Decrypt(encoded, conversationID string) string {
	g.mu.Lock()
	gate := g.gates[encoded]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return g.inner.Decrypt(encoded, conversationID)
}

// eventually polls cond until it holds or the deadline passes
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

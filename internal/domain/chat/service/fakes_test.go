package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// memStore is an in-memory stand-in for every chat repository. Append and
// ApplyOfferDecision mirror the transactional writes of the postgres DAO.
type memStore struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string]*entity.Message
	order         []string
	bookings      map[string]*entity.Booking
	weddings      map[string]*entity.Wedding
	services      map[string]*entity.VendorService
	profiles      map[string]*entity.Profile

	failAppend error
}

func newMemStore() *memStore {
	return &memStore{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string]*entity.Message),
		bookings:      make(map[string]*entity.Booking),
		weddings:      make(map[string]*entity.Wedding),
		services:      make(map[string]*entity.VendorService),
		profiles:      make(map[string]*entity.Profile),
	}
}

func bookingKey(weddingID, serviceID string) string {
	return weddingID + "/" + serviceID
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]entity.ConversationListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.ConversationListing
	for _, c := range m.conversations {
		if c.CoupleID != userID && c.VendorID != userID {
			continue
		}
		pending := false
		for _, msg := range m.messages {
			if msg.ConversationID == c.ID && msg.OfferData != nil && msg.OfferData.Status == entity.OfferPending {
				pending = true
			}
		}
		out = append(out, entity.ConversationListing{Conversation: *c, HasPendingOffer: pending})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) FindOpen(_ context.Context, coupleID, vendorID string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.CoupleID == coupleID && c.VendorID == vendorID && c.Status == entity.ConversationOpen {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, conv *entity.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	conv.CreatedAt, conv.UpdatedAt = now, now
	cp := *conv
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *memStore) MarkRead(_ context.Context, conversationID, readerID string, reader entity.Role) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[conversationID]
	if !ok {
		return nil, entity.ErrConversationNotFound
	}
	now := time.Now()
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && msg.ReadAt == nil {
			msg.ReadAt = &now
		}
	}
	if reader == entity.RoleVendor {
		c.VendorUnread = 0
	} else {
		c.CoupleUnread = 0
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) UpdateParticipantAvatar(_ context.Context, userID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.CoupleID == userID {
			c.CoupleAvatarURL = avatarURL
		}
		if c.VendorID == userID {
			c.VendorAvatarURL = avatarURL
		}
	}
	return nil
}

type memMessages struct{ *memStore }

func (m memMessages) GetByID(_ context.Context, id string) (*entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	if msg.OfferData != nil {
		offer := *msg.OfferData
		cp.OfferData = &offer
	}
	return &cp, nil
}

func (m memMessages) GetByConversationID(_ context.Context, conversationID string, limit, offset int) ([]entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []entity.Message
	for _, id := range m.order {
		if msg := m.messages[id]; msg.ConversationID == conversationID {
			all = append(all, *msg)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m memMessages) Count(_ context.Context, conversationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (m memMessages) Append(_ context.Context, in entity.MessageAppend) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return nil, m.failAppend
	}

	c, ok := m.conversations[in.Message.ConversationID]
	if !ok {
		return nil, entity.ErrConversationNotFound
	}

	cp := *in.Message
	m.messages[cp.ID] = &cp
	m.order = append(m.order, cp.ID)

	if b := in.PendingBooking; b != nil {
		key := bookingKey(b.WeddingID, b.ServiceID)
		if existing, ok := m.bookings[key]; ok {
			existing.Status = b.Status
			existing.EventDate = b.EventDate
			existing.TotalPrice = b.TotalPrice
		} else {
			nb := *b
			m.bookings[key] = &nb
		}
	}

	c.LastMessageText = cp.Content
	at := cp.CreatedAt
	c.LastMessageAt = &at
	c.UpdatedAt = at
	if in.Recipient == entity.RoleVendor {
		c.VendorUnread++
	} else {
		c.CoupleUnread++
	}
	out := *c
	return &out, nil
}

func (m memMessages) ApplyOfferDecision(_ context.Context, d entity.OfferDecision) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[d.MessageID]
	if !ok {
		return nil, entity.ErrMessageNotFound
	}
	if msg.OfferData == nil || !entity.CanTransition(msg.OfferData.Status, d.Offer.Status) {
		return nil, entity.ErrOfferTransition
	}
	offer := d.Offer
	msg.OfferData = &offer

	if d.Booking != nil {
		b := *d.Booking
		key := bookingKey(b.WeddingID, b.ServiceID)
		if existing, ok := m.bookings[key]; ok {
			b.ID = existing.ID
		}
		m.bookings[key] = &b
	}

	c := m.conversations[d.ConversationID]
	if d.CloseConversation {
		c.Status = entity.ConversationClosed
	}
	out := *c
	return &out, nil
}

func (m *memStore) GetByWeddingAndService(_ context.Context, weddingID, serviceID string) (*entity.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingKey(weddingID, serviceID)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) GetWeddingByCouple(_ context.Context, coupleID string) (*entity.Wedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weddings[coupleID], nil
}

func (m *memStore) GetService(_ context.Context, id string) (*entity.VendorService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.services[id], nil
}

func (m *memStore) GetProfile(_ context.Context, id string) (*entity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[id], nil
}

func (m *memStore) UpdateAvatar(_ context.Context, userID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return entity.ErrProfileNotFound
	}
	p.AvatarURL = avatarURL
	return nil
}

func (m *memStore) bookingsFor(weddingID, serviceID string) []*entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Booking
	for key, b := range m.bookings {
		if key == bookingKey(weddingID, serviceID) {
			out = append(out, b)
		}
	}
	return out
}

// prefixCipher marks text as sealed without real cryptography
type prefixCipher struct{}

func (prefixCipher) Encrypt(plaintext, conversationID string) (string, error) {
	return "sealed:" + strings.ToUpper(plaintext), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	coupleID   = "couple-1"
	vendorID   = "vendor-1"
	strangerID = "stranger-1"
	weddingID  = "wedding-1"
	serviceID  = "service-1"
	convID     = "conv-1"
)

// newFixture seeds one couple with a wedding, one vendor with a catering
// service and an open conversation between them
func newFixture() (*Service, *memStore) {
	store := newMemStore()
	store.profiles[coupleID] = &entity.Profile{ID: coupleID, Role: entity.RoleCouple, DisplayName: "Ana & Ben"}
	store.profiles[vendorID] = &entity.Profile{ID: vendorID, Role: entity.RoleVendor, DisplayName: "Feast Co", Category: "catering"}
	store.weddings[coupleID] = &entity.Wedding{ID: weddingID, CoupleID: coupleID}
	store.services[serviceID] = &entity.VendorService{
		ID:       serviceID,
		VendorID: vendorID,
		Name:     "Catering",
		Category: "catering",
		Packages: []entity.PackageDetail{
			{ID: "p1", Name: "Buffet", Price: 800},
			{ID: "p2", Name: "Dessert bar", Price: 400},
		},
	}
	store.conversations[convID] = &entity.Conversation{
		ID:         convID,
		CoupleID:   coupleID,
		VendorID:   vendorID,
		CoupleName: "Ana & Ben",
		VendorName: "Feast Co",
		Status:     entity.ConversationOpen,
	}

	svc := New(store, memMessages{store}, store, store, prefixCipher{}, discardLogger())
	return svc, store
}

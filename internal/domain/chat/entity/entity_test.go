package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/vadim/wedding-chat/internal/encryption"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OfferStatus
		want     bool
	}{
		{OfferPending, OfferAccepted, true},
		{OfferPending, OfferRejected, true},
		{OfferPending, OfferNegotiating, true},
		{OfferNegotiating, OfferAccepted, true},
		{OfferNegotiating, OfferRejected, true},
		{OfferAccepted, OfferAccepted, false},
		{OfferAccepted, OfferRejected, false},
		{OfferRejected, OfferAccepted, false},
		{OfferPending, OfferPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if !OfferAccepted.Terminal() || !OfferRejected.Terminal() {
		t.Error("expected accepted and rejected to be terminal")
	}
	if OfferNegotiating.Terminal() {
		t.Error("expected negotiating to allow further transitions")
	}
}

func TestOfferValidate(t *testing.T) {
	valid := OfferData{ServiceID: "svc-1", Price: 1200, Date: "2025-06-01", Services: []string{"catering"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid offer, got %v", err)
	}

	t.Run("missing fields", func(t *testing.T) {
		o := OfferData{Price: 1200}
		err := o.Validate()
		if !errors.Is(err, ErrMissingOfferFields) {
			t.Fatalf("expected ErrMissingOfferFields, got %v", err)
		}
		for _, field := range []string{"serviceId", "date", "services"} {
			if !strings.Contains(err.Error(), field) {
				t.Errorf("expected error to name %s: %v", field, err)
			}
		}
	})

	t.Run("bad date", func(t *testing.T) {
		o := valid
		o.Date = "June 1st"
		if err := o.Validate(); !errors.Is(err, ErrInvalidOfferDate) {
			t.Errorf("expected ErrInvalidOfferDate, got %v", err)
		}
	})
}

func TestResolvePackagesIsASnapshot(t *testing.T) {
	available := []PackageDetail{
		{ID: "p1", Name: "Silver", Price: 500},
		{ID: "p2", Name: "Gold", Price: 900},
	}

	details := ResolvePackages([]string{"p2", "missing"}, available)
	if len(details) != 1 || details[0].Name != "Gold" {
		t.Fatalf("unexpected details: %+v", details)
	}

	available[1].Name = "Gold (renamed)"
	available[1].Price = 1500
	if details[0].Name != "Gold" || details[0].Price != 900 {
		t.Errorf("expected snapshot to be independent of later edits, got %+v", details[0])
	}

	if got := ResolvePackages(nil, available); got != nil {
		t.Errorf("expected nil for no selection, got %+v", got)
	}
}

func TestOfferLabel(t *testing.T) {
	label := OfferLabel("Catering: Deluxe", 1200)
	if !IsOfferLabel(label) {
		t.Errorf("expected %q to be recognised as an offer label", label)
	}
	if encryption.IsEncrypted(label) {
		t.Errorf("offer label %q must never look encrypted", label)
	}
	if IsOfferLabel("hello") {
		t.Error("plain text recognised as offer label")
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("a", 60)

	if got := Preview(MessageTypeText, "short", 50); got != "short" {
		t.Errorf("expected untouched text, got %q", got)
	}
	if got := Preview(MessageTypeText, long, 50); got != strings.Repeat("a", 50)+"..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Preview(MessageTypeText, strings.Repeat("a", 50), 50); got != strings.Repeat("a", 50) {
		t.Errorf("exactly 50 characters must not be truncated, got %q", got)
	}
	if got := Preview(MessageTypeOffer, "[Offer] Catering - $1.00", 50); got != OfferPreview {
		t.Errorf("expected offer phrase, got %q", got)
	}
}

func TestViewOf(t *testing.T) {
	s := ConversationSummary{
		VendorName: "Bloom Florals", VendorAvatar: "v.png",
		CoupleName: "Ana & Ben", CoupleAvatar: "c.png",
	}

	s.ViewerRole = RoleCouple
	if v := ViewOf(s); v.OtherPartyName() != "Bloom Florals" || v.OtherPartyAvatar() != "v.png" {
		t.Errorf("couple should see the vendor, got %q", v.OtherPartyName())
	}

	s.ViewerRole = RoleVendor
	if v := ViewOf(s); v.OtherPartyName() != "Ana & Ben" || v.OtherPartyAvatar() != "c.png" {
		t.Errorf("vendor should see the couple, got %q", v.OtherPartyName())
	}
}

func TestSummarize(t *testing.T) {
	conv := &Conversation{
		ID: "c1", CoupleID: "u-couple", VendorID: "u-vendor",
		CoupleUnread: 0, VendorUnread: 2,
		Status: ConversationOpen,
	}

	if s := Summarize(conv, RoleVendor, false); !s.Unread || s.Status != SummaryOpen {
		t.Errorf("unexpected vendor summary %+v", s)
	}
	if s := Summarize(conv, RoleCouple, true); s.Unread || s.Status != SummaryOfferSent {
		t.Errorf("unexpected couple summary %+v", s)
	}

	conv.Status = ConversationClosed
	if s := Summarize(conv, RoleCouple, true); s.Status != SummaryClosed {
		t.Errorf("expected closed to win over pending offer, got %s", s.Status)
	}

	if role, ok := conv.RoleOf("u-vendor"); !ok || role != RoleVendor {
		t.Errorf("RoleOf vendor = %s, %v", role, ok)
	}
	if _, ok := conv.RoleOf("stranger"); ok {
		t.Error("stranger must not have a role")
	}
}

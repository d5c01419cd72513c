package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/vadim/wedding-chat/internal/auth"
	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// The suite runs against a live server whose database has a couple with a
// wedding, and a vendor owning a service. Set:
//
//	E2E_BASE_URL    e.g. http://localhost:8080/api/v1
//	E2E_JWT_SECRET  the server's JWT_SECRET
//	E2E_COUPLE_ID, E2E_VENDOR_ID, E2E_SERVICE_ID
type env struct {
	baseURL   string
	coupleID  string
	vendorID  string
	serviceID string
	authn     *auth.Authenticator
}

func setup(t *testing.T) env {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	e := env{
		baseURL:   os.Getenv("E2E_BASE_URL"),
		coupleID:  os.Getenv("E2E_COUPLE_ID"),
		vendorID:  os.Getenv("E2E_VENDOR_ID"),
		serviceID: os.Getenv("E2E_SERVICE_ID"),
	}
	if e.baseURL == "" || e.coupleID == "" || e.vendorID == "" || e.serviceID == "" {
		t.Skip("E2E_BASE_URL and seed ids not set")
	}
	e.authn = auth.NewAuthenticator(os.Getenv("E2E_JWT_SECRET"), "", time.Hour)
	return e
}

func (e env) do(t *testing.T, userID string, role entity.Role, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.baseURL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	token, err := e.authn.GenerateToken(userID, role)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestOfferLifecycle(t *testing.T) {
	e := setup(t)

	var conv entity.Conversation
	code := e.do(t, e.coupleID, entity.RoleCouple, http.MethodPost, "/chat/conversations",
		map[string]string{"vendor_id": e.vendorID, "service_id": e.serviceID}, &conv)
	if code != http.StatusCreated && code != http.StatusOK {
		t.Fatalf("open conversation: status %d", code)
	}

	t.Run("text message round trip", func(t *testing.T) {
		var msg entity.FormattedMessage
		code := e.do(t, e.coupleID, entity.RoleCouple, http.MethodPost, "/chat/messages",
			map[string]string{"conversation_id": conv.ID, "message": "Are you free in June?"}, &msg)
		if code != http.StatusCreated {
			t.Fatalf("send: status %d", code)
		}

		var got entity.FormattedMessage
		code = e.do(t, e.vendorID, entity.RoleVendor, http.MethodGet,
			fmt.Sprintf("/chat/conversations/%s/messages/%s", conv.ID, msg.ID), nil, &got)
		if code != http.StatusOK {
			t.Fatalf("get: status %d", code)
		}
		if got.Sender != entity.RoleCouple {
			t.Errorf("sender = %q", got.Sender)
		}
	})

	var offer entity.FormattedMessage
	code = e.do(t, e.vendorID, entity.RoleVendor, http.MethodPost, "/chat/messages", map[string]any{
		"conversation_id": conv.ID,
		"message_type":    "offer",
		"offer_data": map[string]any{
			"service_id": e.serviceID,
			"price":      1200,
			"date":       "2027-06-12",
			"services":   []string{"Ceremony"},
		},
	}, &offer)
	if code != http.StatusCreated {
		t.Fatalf("send offer: status %d", code)
	}

	t.Run("vendor cannot answer own offer", func(t *testing.T) {
		code := e.do(t, e.vendorID, entity.RoleVendor, http.MethodPut, "/chat/offers/"+offer.ID,
			map[string]string{"status": "accepted"}, nil)
		if code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", code)
		}
	})

	code = e.do(t, e.coupleID, entity.RoleCouple, http.MethodPut, "/chat/offers/"+offer.ID,
		map[string]any{"status": "accepted", "booking_data": map[string]any{"deposit": 300}}, nil)
	if code != http.StatusOK {
		t.Fatalf("accept: status %d", code)
	}

	t.Run("decision is final", func(t *testing.T) {
		code := e.do(t, e.coupleID, entity.RoleCouple, http.MethodPut, "/chat/offers/"+offer.ID,
			map[string]string{"status": "rejected"}, nil)
		if code != http.StatusConflict {
			t.Errorf("status = %d, want 409", code)
		}
	})

	t.Run("conversation closed", func(t *testing.T) {
		var list struct {
			Conversations []entity.ConversationSummary `json:"conversations"`
		}
		e.do(t, e.coupleID, entity.RoleCouple, http.MethodGet, "/chat/conversations", nil, &list)
		for _, c := range list.Conversations {
			if c.ID == conv.ID {
				if c.Status != entity.SummaryClosed {
					t.Errorf("status = %q, want closed", c.Status)
				}
				return
			}
		}
		t.Errorf("conversation %s not listed", conv.ID)
	})
}

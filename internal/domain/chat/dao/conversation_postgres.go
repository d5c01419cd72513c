package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

const conversationColumns = `
	c.id, c.couple_id, c.vendor_id, COALESCE(c.service_id, ''), c.couple_name, c.couple_avatar_url,
	c.vendor_name, c.vendor_avatar_url, c.vendor_category, c.couple_unread_count, c.vendor_unread_count,
	c.last_message_text, c.last_message_at, c.status, c.created_at, c.updated_at`

// ConversationPostgres implements conversation repository for PostgreSQL
type ConversationPostgres struct {
	pool *pgxpool.Pool
}

// NewConversationPostgres creates a new PostgreSQL conversation repository
func NewConversationPostgres(pool *pgxpool.Pool) *ConversationPostgres {
	return &ConversationPostgres{pool: pool}
}

// ListByUser returns every conversation the user takes part in, most recently
// active first, with a flag telling whether a pending offer is outstanding
func (r *ConversationPostgres) ListByUser(ctx context.Context, userID string) ([]entity.ConversationListing, error) {
	query := `
		SELECT ` + conversationColumns + `,
		       EXISTS (
		           SELECT 1 FROM messages m
		           WHERE m.conversation_id = c.id
		             AND m.message_type = 'offer'
		             AND m.offer_data->>'status' = 'pending'
		       ) AS has_pending_offer
		FROM conversations c
		WHERE c.couple_id = $1 OR c.vendor_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var listings []entity.ConversationListing
	for rows.Next() {
		var l entity.ConversationListing
		dest := append(conversationDest(&l.Conversation), &l.HasPendingOffer)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	return listings, nil
}

// GetByID retrieves a conversation by ID; it returns nil when none exists
func (r *ConversationPostgres) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	return getConversation(ctx, r.pool, id)
}

// FindOpen returns the open conversation between a couple and a vendor, if any
func (r *ConversationPostgres) FindOpen(ctx context.Context, coupleID, vendorID string) (*entity.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.couple_id = $1 AND c.vendor_id = $2 AND c.status = 'open'
		ORDER BY c.created_at DESC
		LIMIT 1
	`
	return scanConversation(r.pool.QueryRow(ctx, query, coupleID, vendorID))
}

// Create inserts a new conversation
func (r *ConversationPostgres) Create(ctx context.Context, conv *entity.Conversation) error {
	query := `
		INSERT INTO conversations (
			id, couple_id, vendor_id, service_id, couple_name, couple_avatar_url,
			vendor_name, vendor_avatar_url, vendor_category, couple_unread_count,
			vendor_unread_count, last_message_text, last_message_at, status, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, 0, 0, '', NULL, $10, $11, $11)
	`

	now := time.Now()
	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.CoupleID,
		conv.VendorID,
		conv.ServiceID,
		conv.CoupleName,
		conv.CoupleAvatarURL,
		conv.VendorName,
		conv.VendorAvatarURL,
		conv.VendorCategory,
		conv.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	conv.CreatedAt = now
	conv.UpdatedAt = now
	return nil
}

// MarkRead stamps read_at on the other party's messages and zeroes the
// reader's unread counter. It returns the updated conversation.
func (r *ConversationPostgres) MarkRead(ctx context.Context, conversationID, readerID string, reader entity.Role) (*entity.Conversation, error) {
	counter := "couple_unread_count"
	if reader == entity.RoleVendor {
		counter = "vendor_unread_count"
	}

	var conv *entity.Conversation
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE messages SET read_at = now()
			WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
		`, conversationID, readerID); err != nil {
			return fmt.Errorf("marking messages read: %w", err)
		}

		query := `UPDATE conversations c SET ` + counter + ` = 0, updated_at = now()
			WHERE c.id = $1
			RETURNING ` + conversationColumns
		var err error
		conv, err = scanConversation(tx.QueryRow(ctx, query, conversationID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, entity.ErrConversationNotFound
	}

	return conv, nil
}

// UpdateParticipantAvatar rewrites the denormalized avatar of a user on all their conversations
func (r *ConversationPostgres) UpdateParticipantAvatar(ctx context.Context, userID, avatarURL string) error {
	batch := &pgx.Batch{}
	batch.Queue(`UPDATE conversations SET couple_avatar_url = $2, updated_at = now() WHERE couple_id = $1`, userID, avatarURL)
	batch.Queue(`UPDATE conversations SET vendor_avatar_url = $2, updated_at = now() WHERE vendor_id = $1`, userID, avatarURL)

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("updating conversation avatars: %w", err)
		}
	}

	return nil
}

func getConversation(ctx context.Context, q querier, id string) (*entity.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.id = $1
	`
	return scanConversation(q.QueryRow(ctx, query, id))
}

// conversationDest returns scan targets matching conversationColumns
func conversationDest(conv *entity.Conversation) []any {
	return []any{
		&conv.ID,
		&conv.CoupleID,
		&conv.VendorID,
		&conv.ServiceID,
		&conv.CoupleName,
		&conv.CoupleAvatarURL,
		&conv.VendorName,
		&conv.VendorAvatarURL,
		&conv.VendorCategory,
		&conv.CoupleUnread,
		&conv.VendorUnread,
		&conv.LastMessageText,
		&conv.LastMessageAt,
		&conv.Status,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	}
}

// scanConversation scans a single conversation row; no rows yields nil, nil
func scanConversation(row pgx.Row) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := row.Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return &conv, nil
}

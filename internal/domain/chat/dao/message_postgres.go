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

const messageColumns = `id, conversation_id, sender_id, message_type, content, offer_data, created_at, read_at`

// MessagePostgres implements message repository for PostgreSQL
type MessagePostgres struct {
	pool *pgxpool.Pool
}

// NewMessagePostgres creates a new PostgreSQL message repository
func NewMessagePostgres(pool *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{pool: pool}
}

// GetByID retrieves a message by ID; it returns nil when none exists
func (r *MessagePostgres) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	return getMessage(ctx, r.pool, id, false)
}

// GetByConversationID retrieves messages of a conversation, oldest first
func (r *MessagePostgres) GetByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]entity.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []entity.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}

// Count returns the total count of messages in a conversation
func (r *MessagePostgres) Count(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM messages WHERE conversation_id = $1", conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// Append inserts a message, advances the conversation preview and the
// recipient's unread counter, and upserts the pending booking of an offer,
// all in one transaction. It returns the updated conversation.
func (r *MessagePostgres) Append(ctx context.Context, in entity.MessageAppend) (*entity.Conversation, error) {
	msg := in.Message

	var offer []byte
	if msg.OfferData != nil {
		var err error
		if offer, err = marshalJSON(msg.OfferData); err != nil {
			return nil, err
		}
	}

	counter := "couple_unread_count"
	if in.Recipient == entity.RoleVendor {
		counter = "vendor_unread_count"
	}

	var conv *entity.Conversation
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (`+messageColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		`,
			msg.ID,
			msg.ConversationID,
			msg.SenderID,
			msg.Type,
			msg.Content,
			offer,
			msg.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}

		if in.PendingBooking != nil {
			if err := upsertPendingBooking(ctx, tx, in.PendingBooking); err != nil {
				return err
			}
		}

		query := `UPDATE conversations c SET
				last_message_text = $2,
				last_message_at = $3,
				` + counter + ` = ` + counter + ` + 1,
				updated_at = $3
			WHERE c.id = $1
			RETURNING ` + conversationColumns
		var err error
		conv, err = scanConversation(tx.QueryRow(ctx, query, msg.ConversationID, msg.Content, msg.CreatedAt))
		if err != nil {
			return err
		}
		if conv == nil {
			return entity.ErrConversationNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conv, nil
}

// ApplyOfferDecision writes a new offer status, the booking it implies and
// the conversation closure in one transaction. It returns the conversation
// after the change.
func (r *MessagePostgres) ApplyOfferDecision(ctx context.Context, d entity.OfferDecision) (*entity.Conversation, error) {
	offer, err := marshalJSON(d.Offer)
	if err != nil {
		return nil, err
	}

	var conv *entity.Conversation
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Row lock serialises concurrent decisions on the same offer
		current, err := getMessage(ctx, tx, d.MessageID, true)
		if err != nil {
			return err
		}
		if current == nil {
			return entity.ErrMessageNotFound
		}
		if current.OfferData == nil || !entity.CanTransition(current.OfferData.Status, d.Offer.Status) {
			return entity.ErrOfferTransition
		}

		if _, err := tx.Exec(ctx, `UPDATE messages SET offer_data = $2 WHERE id = $1`, d.MessageID, offer); err != nil {
			return fmt.Errorf("updating offer status: %w", err)
		}

		if d.Booking != nil {
			if err := saveBooking(ctx, tx, d.Booking); err != nil {
				return err
			}
		}

		if d.CloseConversation {
			if _, err := tx.Exec(ctx, `
				UPDATE conversations SET status = 'closed', updated_at = now() WHERE id = $1
			`, d.ConversationID); err != nil {
				return fmt.Errorf("closing conversation: %w", err)
			}
		}

		conv, err = getConversation(ctx, tx, d.ConversationID)
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

func getMessage(ctx context.Context, q querier, id string, forUpdate bool) (*entity.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	msg, err := scanMessage(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	return msg, nil
}

// scanMessage scans one row in messageColumns order
func scanMessage(row pgx.Row) (*entity.Message, error) {
	var msg entity.Message
	var offer []byte
	var readAt *time.Time

	if err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Type,
		&msg.Content,
		&offer,
		&msg.CreatedAt,
		&readAt,
	); err != nil {
		return nil, err
	}

	if len(offer) > 0 {
		msg.OfferData = &entity.OfferData{}
		if err := unmarshalJSON(offer, msg.OfferData); err != nil {
			return nil, err
		}
	}
	msg.ReadAt = readAt

	return &msg, nil
}

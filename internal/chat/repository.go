package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository is the Postgres-backed MessageStore.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ MessageStore = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, senderID, receiverID int64, text, imageURL string) (*Message, error) {
	if text == "" && imageURL == "" {
		return nil, fmt.Errorf("%w: text or image required", ErrValidation)
	}

	msg := &Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
		Reactions:  []Reaction{},
	}

	query := `INSERT INTO messages (sender_id, receiver_id, text, image_url)
              VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
              RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, senderID, receiverID, text, imageURL).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (r *Repository) ListConversation(ctx context.Context, userA, userB int64) ([]*Message, error) {
	query := `
		SELECT id, sender_id, receiver_id,
		       COALESCE(text, ''), COALESCE(image_url, ''),
		       read, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	byID := make(map[int64]*Message)
	for rows.Next() {
		msg := &Message{Reactions: []Reaction{}}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID,
			&msg.Text, &msg.ImageURL, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
		byID[msg.ID] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	reactionQuery := `
		SELECT r.message_id, r.user_id, r.emoji
		FROM message_reactions r
		JOIN messages m ON m.id = r.message_id
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
		   OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY r.message_id, r.created_at
	`
	rRows, err := r.db.QueryContext(ctx, reactionQuery, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rRows.Close()

	for rRows.Next() {
		var msgID int64
		var reaction Reaction
		if err := rRows.Scan(&msgID, &reaction.UserID, &reaction.Emoji); err != nil {
			return nil, err
		}
		if msg, ok := byID[msgID]; ok {
			msg.Reactions = append(msg.Reactions, reaction)
		}
	}
	return messages, rRows.Err()
}

// ToggleReaction runs inside one transaction with the message row
// locked, so concurrent toggles on the same message are serialized
// and neither can overwrite the other.
func (r *Repository) ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (*Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msg := &Message{Reactions: []Reaction{}}
	lockQuery := `
		SELECT id, sender_id, receiver_id,
		       COALESCE(text, ''), COALESCE(image_url, ''),
		       read, created_at
		FROM messages WHERE id = $1
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, lockQuery, messageID).
		Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID,
			&msg.Text, &msg.ImageURL, &msg.Read, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM message_reactions
         WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO message_reactions (message_id, user_id, emoji)
             VALUES ($1, $2, $3)`,
			messageID, userID, emoji)
		if err != nil {
			return nil, err
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT user_id, emoji FROM message_reactions
         WHERE message_id = $1 ORDER BY created_at`,
		messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var reaction Reaction
		if err := rows.Scan(&reaction.UserID, &reaction.Emoji); err != nil {
			return nil, err
		}
		msg.Reactions = append(msg.Reactions, reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *Repository) MarkRead(ctx context.Context, partnerID, readerID, throughMessageID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read = TRUE
         WHERE sender_id = $1 AND receiver_id = $2
           AND id <= $3 AND read = FALSE`,
		partnerID, readerID, throughMessageID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageCols = `id, sender_id, receiver_id, content, is_read, created_at`

func scanMessage(scanner interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	if err := scanner.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MessageStore) Create(senderID, receiverID int64, content string, at time.Time) (*model.Message, error) {
	result, err := s.db.Exec(
		`INSERT INTO messages (sender_id, receiver_id, content, created_at) VALUES (?, ?, ?, ?)`,
		senderID, receiverID, content, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  at.UTC(),
	}, nil
}

// Conversation returns the messages exchanged between two users, oldest first.
func (s *MessageStore) Conversation(userA, userB int64, limit int) ([]model.Message, error) {
	rows, err := s.db.Query(
		`SELECT `+messageCols+` FROM (
			SELECT `+messageCols+` FROM messages
			WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
			ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at, id`,
		userA, userB, userB, userA, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// MarkRead marks every unread message from sender to reader as read and
// returns how many rows changed.
func (s *MessageStore) MarkRead(readerID, senderID int64) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE messages SET is_read = 1 WHERE receiver_id = ? AND sender_id = ? AND is_read = 0`,
		readerID, senderID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

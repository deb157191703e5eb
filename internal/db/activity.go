package db

import (
	"context"

	"github.com/pkg/errors"
)

// CountUserMessages returns how many messages a user has sent across all chats.
func (s *Store) CountUserMessages(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_messages WHERE user_id = ?`, userID).Scan(&n)
	return n, errors.Wrap(err, "counting user messages")
}

// UserMessageTimes returns the creation times (Unix microseconds) of a
// user's messages sent at or after since, oldest first.
func (s *Store) UserMessageTimes(ctx context.Context, userID string, since int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at FROM user_messages
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at ASC
	`, userID, since)
	if err != nil {
		return nil, errors.Wrap(err, "querying message times")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var at int64
		if err := rows.Scan(&at); err != nil {
			return nil, errors.Wrap(err, "scanning message time")
		}
		out = append(out, at)
	}
	return out, errors.Wrap(rows.Err(), "iterating message times")
}

// LatestUserMessage returns the most recent message a user sent in any chat.
func (s *Store) LatestUserMessage(ctx context.Context, userID string) (*UserMessage, error) {
	m := &UserMessage{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, chat_id, user_id, content, created_at
		FROM user_messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&m.ID, &m.ChatID, &m.UserID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user message")
	}
	return m, nil
}

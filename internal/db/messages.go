package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type UserMessage struct {
	ID        string
	ChatID    string
	UserID    string
	Content   string
	CreatedAt int64
}

type AIMessage struct {
	ID        string
	ChatID    string
	Content   string
	Model     string
	CreatedAt int64
}

type CreateUserMessageParams struct {
	ChatID  string
	UserID  string
	Content string
}

func (s *Store) CreateUserMessage(ctx context.Context, arg CreateUserMessageParams) (*UserMessage, error) {
	m := &UserMessage{
		ID:        newID(),
		ChatID:    arg.ChatID,
		UserID:    arg.UserID,
		Content:   arg.Content,
		CreatedAt: s.stamp(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_messages (id, chat_id, user_id, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, m.ID, m.ChatID, m.UserID, m.Content, m.CreatedAt); err != nil {
			return errors.Wrap(err, "inserting user message")
		}
		_, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, m.CreatedAt, m.ChatID)
		return errors.Wrap(err, "touching chat")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type CreateAIMessageParams struct {
	ChatID  string
	Content string
	Model   string
}

func (s *Store) CreateAIMessage(ctx context.Context, arg CreateAIMessageParams) (*AIMessage, error) {
	m := &AIMessage{
		ID:        newID(),
		ChatID:    arg.ChatID,
		Content:   arg.Content,
		Model:     arg.Model,
		CreatedAt: s.stamp(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ai_messages (id, chat_id, content, model, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, m.ID, m.ChatID, m.Content, sql.NullString{String: m.Model, Valid: m.Model != ""}, m.CreatedAt); err != nil {
			return errors.Wrap(err, "inserting ai message")
		}
		_, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, m.CreatedAt, m.ChatID)
		return errors.Wrap(err, "touching chat")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListUserMessages returns the newest limit user turns of a chat in
// chronological order. limit <= 0 returns all of them.
func (s *Store) ListUserMessages(ctx context.Context, chatID string, limit int) ([]*UserMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, content, created_at FROM (
			SELECT id, chat_id, user_id, content, created_at
			FROM user_messages
			WHERE chat_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, chatID, sqlLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "querying user messages")
	}
	defer rows.Close()

	out := []*UserMessage{}
	for rows.Next() {
		m := &UserMessage{}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning user message")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterating user messages")
}

// ListAIMessages is the assistant-side counterpart of ListUserMessages.
func (s *Store) ListAIMessages(ctx context.Context, chatID string, limit int) ([]*AIMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, content, model, created_at FROM (
			SELECT id, chat_id, content, model, created_at
			FROM ai_messages
			WHERE chat_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, chatID, sqlLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "querying ai messages")
	}
	defer rows.Close()

	out := []*AIMessage{}
	for rows.Next() {
		m := &AIMessage{}
		var model sql.NullString
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Content, &model, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning ai message")
		}
		m.Model = model.String
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterating ai messages")
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

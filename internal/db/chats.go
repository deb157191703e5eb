package db

import (
	"context"

	"github.com/pkg/errors"
)

// Name sources. A chat starts with the default name and may leave that state
// exactly once, either by an explicit rename or by the automatic title.
const (
	NameSourceDefault = "default"
	NameSourceUser    = "user"
	NameSourceAuto    = "auto"
)

type Chat struct {
	ID         string
	UserID     string
	Name       string
	NameSource string
	CreatedAt  int64
	UpdatedAt  int64
}

const chatColumns = `id, user_id, name, name_source, created_at, updated_at`

func scanChat(row interface{ Scan(...any) error }) (*Chat, error) {
	c := &Chat{}
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.NameSource, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

type CreateChatParams struct {
	UserID string
	Name   string
	// NameSource defaults to NameSourceDefault.
	NameSource string
}

func (s *Store) CreateChat(ctx context.Context, arg CreateChatParams) (*Chat, error) {
	now := s.stamp()
	c := &Chat{
		ID:         newID(),
		UserID:     arg.UserID,
		Name:       arg.Name,
		NameSource: arg.NameSource,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if c.NameSource == "" {
		c.NameSource = NameSourceDefault
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, c.NameSource, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "inserting chat")
	}
	return c, nil
}

func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	c, err := scanChat(s.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "chat")
	}
	return c, nil
}

func (s *Store) ListChats(ctx context.Context, userID string) ([]*Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}
	defer rows.Close()

	chats := []*Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning chat row")
		}
		chats = append(chats, c)
	}
	return chats, errors.Wrap(rows.Err(), "iterating chat rows")
}

// RenameChat applies an explicit rename. After this the automatic title can
// no longer claim the chat.
func (s *Store) RenameChat(ctx context.Context, id, name string) (*Chat, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chats SET name = ?, name_source = ?, updated_at = ?
		WHERE id = ?
	`, name, NameSourceUser, s.stamp(), id)
	if err != nil {
		return nil, errors.Wrap(err, "renaming chat")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.Wrap(ErrNotFound, "chat")
	}
	return s.GetChat(ctx, id)
}

// ClaimAutoTitle sets the automatic title only if the chat still carries its
// default name. It reports whether this call won the claim.
func (s *Store) ClaimAutoTitle(ctx context.Context, id, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chats SET name = ?, name_source = ?, updated_at = ?
		WHERE id = ? AND name_source = ?
	`, name, NameSourceAuto, s.stamp(), id, NameSourceDefault)
	if err != nil {
		return false, errors.Wrap(err, "claiming chat title")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "claiming chat title")
	}
	return n == 1, nil
}

// DeleteChat removes the chat; both message tables cascade.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting chat")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrNotFound, "chat")
	}
	return nil
}

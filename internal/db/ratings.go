package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// ErrAlreadyRated is returned when a chat that already has a rating is rated again.
var ErrAlreadyRated = errors.New("chat already rated")

// Rating is a 1 to 5 score a user gives a chat. Feedback is empty when none
// was left.
type Rating struct {
	ID        string
	UserID    string
	ChatID    string
	Score     int
	Feedback  string
	CreatedAt int64
	UpdatedAt int64
}

const ratingColumns = `id, user_id, chat_id, score, feedback, created_at, updated_at`

func scanRating(row interface{ Scan(...any) error }) (*Rating, error) {
	r := &Rating{}
	var feedback sql.NullString
	if err := row.Scan(&r.ID, &r.UserID, &r.ChatID, &r.Score, &feedback, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Feedback = feedback.String
	return r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type CreateRatingParams struct {
	UserID   string
	ChatID   string
	Score    int
	Feedback string
}

func (s *Store) CreateRating(ctx context.Context, arg CreateRatingParams) (*Rating, error) {
	now := s.stamp()
	r := &Rating{
		ID:        newID(),
		UserID:    arg.UserID,
		ChatID:    arg.ChatID,
		Score:     arg.Score,
		Feedback:  arg.Feedback,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ratings (`+ratingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.ChatID, r.Score, nullable(r.Feedback), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrAlreadyRated
		}
		return nil, errors.Wrap(err, "inserting rating")
	}
	return r, nil
}

func (s *Store) GetRating(ctx context.Context, id string) (*Rating, error) {
	r, err := scanRating(s.db.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "rating")
	}
	return r, nil
}

// RatingFilter narrows ListRatings. Zero fields do not filter.
type RatingFilter struct {
	UserID       string
	ChatID       string
	Score        int
	WithFeedback bool
}

func (s *Store) ListRatings(ctx context.Context, f RatingFilter) ([]*Rating, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where, args = append(where, "user_id = ?"), append(args, f.UserID)
	}
	if f.ChatID != "" {
		where, args = append(where, "chat_id = ?"), append(args, f.ChatID)
	}
	if f.Score != 0 {
		where, args = append(where, "score = ?"), append(args, f.Score)
	}
	if f.WithFeedback {
		where = append(where, "feedback IS NOT NULL")
	}
	query := `SELECT ` + ratingColumns + ` FROM ratings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying ratings")
	}
	defer rows.Close()

	ratings := []*Rating{}
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning rating row")
		}
		ratings = append(ratings, r)
	}
	return ratings, errors.Wrap(rows.Err(), "iterating rating rows")
}

// UpdateRatingParams changes only the fields that are set. An empty, non-nil
// Feedback clears it.
type UpdateRatingParams struct {
	Score    *int
	Feedback *string
}

func (s *Store) UpdateRating(ctx context.Context, id string, arg UpdateRatingParams) (*Rating, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.stamp()}
	if arg.Score != nil {
		sets, args = append(sets, "score = ?"), append(args, *arg.Score)
	}
	if arg.Feedback != nil {
		sets, args = append(sets, "feedback = ?"), append(args, nullable(*arg.Feedback))
	}
	res, err := s.db.ExecContext(ctx, `UPDATE ratings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return nil, errors.Wrap(err, "updating rating")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.Wrap(ErrNotFound, "rating")
	}
	return s.GetRating(ctx, id)
}

func (s *Store) DeleteRating(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ratings WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting rating")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrNotFound, "rating")
	}
	return nil
}

// AverageScore returns the mean score of a user's ratings, or 0 without any.
func (s *Store) AverageScore(ctx context.Context, userID string) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT AVG(score) FROM ratings WHERE user_id = ?`, userID).Scan(&avg)
	if err != nil {
		return 0, errors.Wrap(err, "averaging ratings")
	}
	return avg.Float64, nil
}

package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Contract statuses. processing is the only non-terminal state.
const (
	ContractProcessing = "processing"
	ContractDone       = "done"
	ContractError      = "error"
)

type Contract struct {
	ID        string
	UserID    string
	Filename  string
	InputText string
	Status    string
	Result    string
	CreatedAt int64
	UpdatedAt int64
}

const contractColumns = `id, user_id, filename, input_text, status, result, created_at, updated_at`

func scanContract(row interface{ Scan(...any) error }) (*Contract, error) {
	c := &Contract{}
	var result sql.NullString
	if err := row.Scan(&c.ID, &c.UserID, &c.Filename, &c.InputText, &c.Status, &result, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Result = result.String
	return c, nil
}

type CreateContractParams struct {
	UserID    string
	Filename  string
	InputText string
}

// CreateContract inserts a record in the processing state.
func (s *Store) CreateContract(ctx context.Context, arg CreateContractParams) (*Contract, error) {
	now := s.stamp()
	c := &Contract{
		ID:        newID(),
		UserID:    arg.UserID,
		Filename:  arg.Filename,
		InputText: arg.InputText,
		Status:    ContractProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, user_id, filename, input_text, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Filename, c.InputText, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "inserting contract")
	}
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, id string) (*Contract, error) {
	c, err := scanContract(s.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "contract")
	}
	return c, nil
}

func (s *Store) ListContracts(ctx context.Context, userID string) ([]*Contract, error) {
	return s.queryContracts(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
}

// ListStaleContracts returns records still processing that were created
// before the given time (Unix microseconds).
func (s *Store) ListStaleContracts(ctx context.Context, createdBefore int64) ([]*Contract, error) {
	return s.queryContracts(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC
	`, ContractProcessing, createdBefore)
}

func (s *Store) queryContracts(ctx context.Context, query string, args ...any) ([]*Contract, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying contracts")
	}
	defer rows.Close()

	out := []*Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning contract row")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterating contract rows")
}

// CompleteContract performs the single terminal write for a contract. It only
// succeeds while the record is processing, so a second write returns
// ErrAlreadyFinalized and a deleted record returns ErrNotFound.
func (s *Store) CompleteContract(ctx context.Context, id, status, result string) error {
	if status != ContractDone && status != ContractError {
		return errors.Errorf("invalid terminal status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE contracts SET status = ?, result = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, status, result, s.stamp(), id, ContractProcessing)
	if err != nil {
		return errors.Wrap(err, "finalizing contract")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "finalizing contract")
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetContract(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(ErrAlreadyFinalized, id)
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting contract")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrNotFound, "contract")
	}
	return nil
}

package store

import (
	"context"

	"captable/internal/models"
)

type ShareholderStore struct {
	db DB
}

func NewShareholderStore(db DB) *ShareholderStore {
	return &ShareholderStore{db: db}
}

func (s *ShareholderStore) Create(ctx context.Context, tx Execer, input ShareholderInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shareholders (id, entity_id, external_id, full_name, email, address, holder_type, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	`, input.ID, input.EntityID, input.ExternalID, input.FullName, input.Email, input.Address, input.HolderType)
	return err
}

func (s *ShareholderStore) GetByID(ctx context.Context, shareholderID string) (models.Shareholder, error) {
	var row models.Shareholder
	err := s.db.GetContext(ctx, &row, `
		SELECT id, entity_id, external_id, full_name, email, address, holder_type, active, created_at
		FROM shareholders
		WHERE id = $1
	`, shareholderID)
	if err != nil {
		return models.Shareholder{}, err
	}
	return row, nil
}

// GetForUpdate locks the shareholder row for the duration of the enclosing
// transaction. The ledger service locks the debited holder before the
// balance fold so check-then-append is serialized per holder.
func (s *ShareholderStore) GetForUpdate(ctx context.Context, tx Getter, shareholderID string) (models.Shareholder, error) {
	var row models.Shareholder
	err := tx.GetContext(ctx, &row, `
		SELECT id, entity_id, external_id, full_name, email, address, holder_type, active, created_at
		FROM shareholders
		WHERE id = $1
		FOR UPDATE
	`, shareholderID)
	if err != nil {
		return models.Shareholder{}, err
	}
	return row, nil
}

func (s *ShareholderStore) ListByEntity(ctx context.Context, entityID string) ([]models.Shareholder, error) {
	var rows []models.Shareholder
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, entity_id, external_id, full_name, email, address, holder_type, active, created_at
		FROM shareholders
		WHERE entity_id = $1
		ORDER BY full_name, id
	`, entityID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ShareholderStore) HasTransactions(ctx context.Context, shareholderID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM share_transactions
		WHERE shareholder_id = $1 OR from_shareholder_id = $1 OR to_shareholder_id = $1
	`, shareholderID)
	return count > 0, err
}

func (s *ShareholderStore) Deactivate(ctx context.Context, tx Execer, shareholderID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE shareholders
		SET active = FALSE
		WHERE id = $1
	`, shareholderID)
	return err
}

// Delete hard-deletes; callers must have checked HasTransactions first.
func (s *ShareholderStore) Delete(ctx context.Context, tx Execer, shareholderID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM shareholders
		WHERE id = $1
	`, shareholderID)
	return err
}

type ShareholderInput struct {
	ID         string
	EntityID   string
	ExternalID *string
	FullName   string
	Email      *string
	Address    *string
	HolderType string
}

package store

import (
	"context"

	"captable/internal/models"
)

type EntityStore struct {
	db DB
}

func NewEntityStore(db DB) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) Create(ctx context.Context, tx Execer, id, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO entities (id, name, active)
		VALUES ($1, $2, TRUE)
	`, id, name)
	return err
}

func (s *EntityStore) GetByID(ctx context.Context, entityID string) (models.Entity, error) {
	var row models.Entity
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, active, created_at
		FROM entities
		WHERE id = $1
	`, entityID)
	if err != nil {
		return models.Entity{}, err
	}
	return row, nil
}

func (s *EntityStore) List(ctx context.Context) ([]models.Entity, error) {
	var rows []models.Entity
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, active, created_at
		FROM entities
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate soft-deletes; entities with dependents are never removed.
func (s *EntityStore) Deactivate(ctx context.Context, tx Execer, entityID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE entities
		SET active = FALSE
		WHERE id = $1
	`, entityID)
	return err
}

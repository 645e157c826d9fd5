package store

import (
	"context"
	"database/sql"
)

// OperatorStore maps authenticated users to their entity scope and role.
// Roles: admin, issuer, viewer. Platform admins live in a separate table
// and may provision entities and operators.
type OperatorStore struct {
	db DB
}

func NewOperatorStore(db DB) *OperatorStore {
	return &OperatorStore{db: db}
}

type OperatorScope struct {
	EntityID string `db:"entity_id"`
	Role     string `db:"role"`
}

func (s *OperatorStore) ScopeFor(ctx context.Context, userID string) (OperatorScope, bool, error) {
	var scope OperatorScope
	err := s.db.GetContext(ctx, &scope, `
		SELECT entity_id, role
		FROM operators
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return OperatorScope{}, false, nil
		}
		return OperatorScope{}, false, err
	}
	return scope, true, nil
}

func (s *OperatorStore) IsPlatformAdmin(ctx context.Context, userID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM platform_admins
		WHERE user_id = $1
	`, userID)
	return count > 0, err
}

func (s *OperatorStore) CreatePlatformAdmin(ctx context.Context, tx Execer, userID string, createdBy *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO platform_admins (user_id, created_by)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, createdBy)
	return err
}

func (s *OperatorStore) AssignOperator(ctx context.Context, tx Execer, userID, entityID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operators (user_id, entity_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET entity_id = EXCLUDED.entity_id, role = EXCLUDED.role
	`, userID, entityID, role)
	return err
}

func (s *OperatorStore) HasAnyPlatformAdmin(ctx context.Context) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM platform_admins`)
	return count > 0, err
}

package store

import (
	"context"

	"captable/internal/models"
)

// StockStore holds the per-entity taxonomy: stock types and, for types
// with supports_series set, their series labels.
type StockStore struct {
	db DB
}

func NewStockStore(db DB) *StockStore {
	return &StockStore{db: db}
}

func (s *StockStore) CreateType(ctx context.Context, tx Execer, id, entityID, code, displayName string, supportsSeries bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_types (id, entity_id, code, display_name, supports_series, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, id, entityID, code, displayName, supportsSeries)
	return err
}

func (s *StockStore) CreateSeries(ctx context.Context, tx Execer, id, stockTypeID, label string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_series (id, stock_type_id, label, active)
		VALUES ($1, $2, $3, TRUE)
	`, id, stockTypeID, label)
	return err
}

func (s *StockStore) GetTypeByID(ctx context.Context, stockTypeID string) (models.StockType, error) {
	var row models.StockType
	err := s.db.GetContext(ctx, &row, `
		SELECT id, entity_id, code, display_name, supports_series, active, created_at
		FROM stock_types
		WHERE id = $1
	`, stockTypeID)
	if err != nil {
		return models.StockType{}, err
	}
	return row, nil
}

func (s *StockStore) GetActiveTypeByCode(ctx context.Context, entityID, code string) (models.StockType, error) {
	var row models.StockType
	err := s.db.GetContext(ctx, &row, `
		SELECT id, entity_id, code, display_name, supports_series, active, created_at
		FROM stock_types
		WHERE entity_id = $1 AND code = $2 AND active = TRUE
	`, entityID, code)
	if err != nil {
		return models.StockType{}, err
	}
	return row, nil
}

func (s *StockStore) GetActiveSeriesByLabel(ctx context.Context, stockTypeID, label string) (models.StockSeries, error) {
	var row models.StockSeries
	err := s.db.GetContext(ctx, &row, `
		SELECT id, stock_type_id, label, active, created_at
		FROM stock_series
		WHERE stock_type_id = $1 AND label = $2 AND active = TRUE
	`, stockTypeID, label)
	if err != nil {
		return models.StockSeries{}, err
	}
	return row, nil
}

func (s *StockStore) ListTypes(ctx context.Context, entityID string) ([]models.StockType, error) {
	var rows []models.StockType
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, entity_id, code, display_name, supports_series, active, created_at
		FROM stock_types
		WHERE entity_id = $1
		ORDER BY display_name
	`, entityID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *StockStore) ListActiveTypes(ctx context.Context, entityID string) ([]models.StockType, error) {
	var rows []models.StockType
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, entity_id, code, display_name, supports_series, active, created_at
		FROM stock_types
		WHERE entity_id = $1 AND active = TRUE
		ORDER BY display_name
	`, entityID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *StockStore) ListSeries(ctx context.Context, stockTypeID string) ([]models.StockSeries, error) {
	var rows []models.StockSeries
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, stock_type_id, label, active, created_at
		FROM stock_series
		WHERE stock_type_id = $1
		ORDER BY label
	`, stockTypeID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *StockStore) ListActiveSeries(ctx context.Context, stockTypeID string) ([]models.StockSeries, error) {
	var rows []models.StockSeries
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, stock_type_id, label, active, created_at
		FROM stock_series
		WHERE stock_type_id = $1 AND active = TRUE
		ORDER BY label
	`, stockTypeID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"captable/internal/models"
)

// TransactionStore is the append-only share transaction log. Rows are
// inserted inside the caller's transaction and never updated or deleted.
type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Insert(ctx context.Context, tx Execer, input ShareTransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO share_transactions
			(id, entity_id, shareholder_id, tx_type, stock_type_id, stock_series_id,
			 quantity, transaction_date, certificate_no, from_shareholder_id, to_shareholder_id,
			 notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		input.ID, input.EntityID, input.ShareholderID, input.Type, input.StockTypeID, input.StockSeriesID,
		input.Quantity, input.TransactionDate, input.CertificateNo, input.FromShareholderID, input.ToShareholderID,
		input.Notes, input.CreatedBy,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, q Getter, transactionID string) (models.ShareTransaction, error) {
	var row models.ShareTransaction
	err := q.GetContext(ctx, &row, `
		SELECT id, entity_id, shareholder_id, tx_type, stock_type_id, stock_series_id,
		       quantity, transaction_date, certificate_no, from_shareholder_id, to_shareholder_id,
		       notes, created_by, created_at
		FROM share_transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.ShareTransaction{}, err
	}
	return row, nil
}

// SumForKey folds the signed quantities for one (shareholder, type, series)
// key. NULL series matches only NULL series.
func (s *TransactionStore) SumForKey(ctx context.Context, q Getter, shareholderID, stockTypeID string, stockSeriesID *string) (int64, error) {
	var sum int64
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM share_transactions
		WHERE shareholder_id = $1
		  AND stock_type_id = $2
		  AND stock_series_id IS NOT DISTINCT FROM $3
	`, shareholderID, stockTypeID, stockSeriesID)
	return sum, err
}

// PositionSum is one aggregated balance key for the ownership report.
type PositionSum struct {
	ShareholderID string  `db:"shareholder_id"`
	StockTypeID   string  `db:"stock_type_id"`
	StockSeriesID *string `db:"stock_series_id"`
	Balance       int64   `db:"balance"`
}

func (s *TransactionStore) SumByEntity(ctx context.Context, entityID string) ([]PositionSum, error) {
	var rows []PositionSum
	err := s.db.SelectContext(ctx, &rows, `
		SELECT shareholder_id, stock_type_id, stock_series_id, SUM(quantity) AS balance
		FROM share_transactions
		WHERE entity_id = $1
		GROUP BY shareholder_id, stock_type_id, stock_series_id
		ORDER BY shareholder_id, stock_type_id, stock_series_id
	`, entityID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListFilter is the full set of optional predicates for listing
// transactions. Clauses are compiled into a single parameterized query;
// there is no free-form clause injection.
type ListFilter struct {
	ShareholderID *string
	StockTypeID   *string
	StockSeriesID *string
	Type          *string
	Limit         int
	Offset        int
}

func (s *TransactionStore) ListByEntity(ctx context.Context, entityID string, filter ListFilter) ([]models.ShareTransaction, error) {
	query := `
		SELECT id, entity_id, shareholder_id, tx_type, stock_type_id, stock_series_id,
		       quantity, transaction_date, certificate_no, from_shareholder_id, to_shareholder_id,
		       notes, created_by, created_at
		FROM share_transactions
		WHERE entity_id = $1
	`
	args := []any{entityID}
	param := 2
	if filter.ShareholderID != nil {
		query += fmt.Sprintf(" AND shareholder_id = $%d", param)
		args = append(args, *filter.ShareholderID)
		param++
	}
	if filter.StockTypeID != nil {
		query += fmt.Sprintf(" AND stock_type_id = $%d", param)
		args = append(args, *filter.StockTypeID)
		param++
	}
	if filter.StockSeriesID != nil {
		query += fmt.Sprintf(" AND stock_series_id = $%d", param)
		args = append(args, *filter.StockSeriesID)
		param++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND tx_type = $%d", param)
		args = append(args, *filter.Type)
		param++
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY transaction_date DESC, created_at DESC, id DESC LIMIT $%d OFFSET $%d", param, param+1)
	args = append(args, limit, filter.Offset)

	var rows []models.ShareTransaction
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

type replayRow struct {
	ShareholderID string  `db:"shareholder_id"`
	StockTypeID   string  `db:"stock_type_id"`
	StockSeriesID *string `db:"stock_series_id"`
	Quantity      int64   `db:"quantity"`
}

// NegativeReplayKey identifies a balance key whose running balance dipped
// below zero during replay. A healthy log never produces one.
type NegativeReplayKey struct {
	ShareholderID string
	StockTypeID   string
	StockSeriesID *string
	Balance       int64
}

// VerifyNonNegative replays the entire log for an entity in
// (transaction_date, created_at, id) order and reports every key whose
// running balance ever goes negative.
func (s *TransactionStore) VerifyNonNegative(ctx context.Context, entityID string) ([]NegativeReplayKey, error) {
	var rows []replayRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT shareholder_id, stock_type_id, stock_series_id, quantity
		FROM share_transactions
		WHERE entity_id = $1
		ORDER BY transaction_date, created_at, id
	`, entityID)
	if err != nil {
		return nil, err
	}
	type key struct {
		shareholder string
		stockType   string
		series      string
	}
	running := make(map[key]int64)
	flagged := make(map[key]NegativeReplayKey)
	order := make([]key, 0)
	for _, row := range rows {
		k := key{shareholder: row.ShareholderID, stockType: row.StockTypeID, series: derefStringPtr(row.StockSeriesID)}
		running[k] += row.Quantity
		if running[k] < 0 {
			if _, seen := flagged[k]; !seen {
				order = append(order, k)
			}
			flagged[k] = NegativeReplayKey{
				ShareholderID: row.ShareholderID,
				StockTypeID:   row.StockTypeID,
				StockSeriesID: row.StockSeriesID,
				Balance:       running[k],
			}
		}
	}
	violations := make([]NegativeReplayKey, 0, len(flagged))
	for _, k := range order {
		violations = append(violations, flagged[k])
	}
	return violations, nil
}

type ShareTransactionInput struct {
	ID                string
	EntityID          string
	ShareholderID     string
	Type              string
	StockTypeID       string
	StockSeriesID     *string
	Quantity          int64
	TransactionDate   time.Time
	CertificateNo     *string
	FromShareholderID *string
	ToShareholderID   *string
	Notes             *string
	CreatedBy         string
}

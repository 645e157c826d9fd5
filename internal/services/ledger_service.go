package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"captable/internal/db"
	"captable/internal/models"
	"captable/internal/store"
	"captable/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrSelfTransfer        = errors.New("cannot transfer shares to the same shareholder")
	ErrUnknownShareholder  = errors.New("shareholder not found")
	ErrInactiveShareholder = errors.New("shareholder is inactive")
	ErrEntityMismatch      = errors.New("shareholder does not belong to entity")
)

// InsufficientSharesError reports both sides of a failed balance check so
// callers and tests can verify the numbers independently.
type InsufficientSharesError struct {
	Available int64
	Requested int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: available %d, requested %d", e.Available, e.Requested)
}

type ShareholderReader interface {
	GetByID(ctx context.Context, shareholderID string) (models.Shareholder, error)
	GetForUpdate(ctx context.Context, tx store.Getter, shareholderID string) (models.Shareholder, error)
}

type TransactionLog interface {
	Insert(ctx context.Context, tx store.Execer, input store.ShareTransactionInput) error
	GetByID(ctx context.Context, q store.Getter, transactionID string) (models.ShareTransaction, error)
	SumForKey(ctx context.Context, q store.Getter, shareholderID, stockTypeID string, stockSeriesID *string) (int64, error)
}

type TaxonomyValidator interface {
	ValidateTypeAndSeries(ctx context.Context, entityID, typeCode, seriesLabel string) (ResolvedStock, error)
}

type AuditLog interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type PositionHub interface {
	BroadcastPosition(entityID string, update websocket.PositionUpdate)
}

// LedgerService is the balance engine: it validates against the taxonomy,
// folds the transaction log into a current balance, and appends new rows.
// Multi-row writes are atomic; check-then-append for debits is serialized
// by locking the debited shareholder row inside a serializable transaction.
type LedgerService struct {
	txRunner     db.TxRunner
	shareholders ShareholderReader
	transactions TransactionLog
	taxonomy     TaxonomyValidator
	audit        AuditLog
	hub          PositionHub
}

func NewLedgerService(txRunner db.TxRunner, shareholders ShareholderReader, transactions TransactionLog, taxonomy TaxonomyValidator, audit AuditLog, hub PositionHub) *LedgerService {
	return &LedgerService{
		txRunner:     txRunner,
		shareholders: shareholders,
		transactions: transactions,
		taxonomy:     taxonomy,
		audit:        audit,
		hub:          hub,
	}
}

// TransactionMeta is passed through unchanged onto the appended rows.
type TransactionMeta struct {
	TransactionDate time.Time
	CertificateNo   *string
	Notes           *string
}

type IssueRequest struct {
	EntityID      string
	ActorUserID   string
	ShareholderID string
	TypeCode      string
	SeriesLabel   string
	Quantity      int64
	Meta          TransactionMeta
}

func (s *LedgerService) IssueShares(ctx context.Context, req IssueRequest) (models.ShareTransaction, error) {
	if req.Quantity <= 0 {
		return models.ShareTransaction{}, ErrInvalidQuantity
	}
	resolved, err := s.taxonomy.ValidateTypeAndSeries(ctx, req.EntityID, req.TypeCode, req.SeriesLabel)
	if err != nil {
		return models.ShareTransaction{}, err
	}
	if err := s.checkShareholder(ctx, req.EntityID, req.ShareholderID); err != nil {
		return models.ShareTransaction{}, err
	}

	rowID := uuid.NewString()
	var persisted models.ShareTransaction
	var balanceAfter int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		input := store.ShareTransactionInput{
			ID:              rowID,
			EntityID:        req.EntityID,
			ShareholderID:   req.ShareholderID,
			Type:            models.TxIssuance,
			StockTypeID:     resolved.TypeID,
			StockSeriesID:   resolved.SeriesID,
			Quantity:        req.Quantity,
			TransactionDate: transactionDate(req.Meta),
			CertificateNo:   req.Meta.CertificateNo,
			Notes:           req.Meta.Notes,
			CreatedBy:       req.ActorUserID,
		}
		if err := s.transactions.Insert(ctx, tx, input); err != nil {
			return err
		}
		persisted, err = s.transactions.GetByID(ctx, tx, rowID)
		if err != nil {
			return err
		}
		balanceAfter, err = s.transactions.SumForKey(ctx, tx, req.ShareholderID, resolved.TypeID, resolved.SeriesID)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"transaction_id": rowID, "quantity": req.Quantity})
		return s.audit.Log(ctx, tx, req.ActorUserID, "issue_shares", "share_transaction", rowID, string(data))
	})
	if err != nil {
		return models.ShareTransaction{}, err
	}
	s.broadcast(req.EntityID, req.ShareholderID, resolved, balanceAfter)
	return persisted, nil
}

type TransferRequest struct {
	EntityID          string
	ActorUserID       string
	FromShareholderID string
	ToShareholderID   string
	TypeCode          string
	SeriesLabel       string
	Quantity          int64
	Meta              TransactionMeta
}

// TransferResult holds both legs of the atomic two-row append.
type TransferResult struct {
	TransferOut models.ShareTransaction
	TransferIn  models.ShareTransaction
}

func (s *LedgerService) TransferShares(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if req.Quantity <= 0 {
		return TransferResult{}, ErrInvalidQuantity
	}
	if req.FromShareholderID == req.ToShareholderID {
		return TransferResult{}, ErrSelfTransfer
	}
	resolved, err := s.taxonomy.ValidateTypeAndSeries(ctx, req.EntityID, req.TypeCode, req.SeriesLabel)
	if err != nil {
		return TransferResult{}, err
	}

	outID := uuid.NewString()
	inID := uuid.NewString()
	var result TransferResult
	var fromBalance, toBalance int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		from, to, err := lockTwoShareholders(ctx, tx, s.shareholders, req.FromShareholderID, req.ToShareholderID)
		if err != nil {
			return err
		}
		if err := requireActiveInEntity(from, req.EntityID); err != nil {
			return err
		}
		if err := requireActiveInEntity(to, req.EntityID); err != nil {
			return err
		}
		balance, err := s.transactions.SumForKey(ctx, tx, req.FromShareholderID, resolved.TypeID, resolved.SeriesID)
		if err != nil {
			return err
		}
		if balance < req.Quantity {
			return &InsufficientSharesError{Available: balance, Requested: req.Quantity}
		}
		date := transactionDate(req.Meta)
		legs := []store.ShareTransactionInput{
			{
				ID:                outID,
				EntityID:          req.EntityID,
				ShareholderID:     req.FromShareholderID,
				Type:              models.TxTransfer,
				StockTypeID:       resolved.TypeID,
				StockSeriesID:     resolved.SeriesID,
				Quantity:          -req.Quantity,
				TransactionDate:   date,
				CertificateNo:     req.Meta.CertificateNo,
				FromShareholderID: &req.FromShareholderID,
				ToShareholderID:   &req.ToShareholderID,
				Notes:             req.Meta.Notes,
				CreatedBy:         req.ActorUserID,
			},
			{
				ID:                inID,
				EntityID:          req.EntityID,
				ShareholderID:     req.ToShareholderID,
				Type:              models.TxTransfer,
				StockTypeID:       resolved.TypeID,
				StockSeriesID:     resolved.SeriesID,
				Quantity:          req.Quantity,
				TransactionDate:   date,
				CertificateNo:     req.Meta.CertificateNo,
				FromShareholderID: &req.FromShareholderID,
				ToShareholderID:   &req.ToShareholderID,
				Notes:             req.Meta.Notes,
				CreatedBy:         req.ActorUserID,
			},
		}
		if err := ensureConserved(legs); err != nil {
			return err
		}
		for _, leg := range legs {
			if err := s.transactions.Insert(ctx, tx, leg); err != nil {
				return err
			}
		}
		result.TransferOut, err = s.transactions.GetByID(ctx, tx, outID)
		if err != nil {
			return err
		}
		result.TransferIn, err = s.transactions.GetByID(ctx, tx, inID)
		if err != nil {
			return err
		}
		fromBalance, err = s.transactions.SumForKey(ctx, tx, req.FromShareholderID, resolved.TypeID, resolved.SeriesID)
		if err != nil {
			return err
		}
		toBalance, err = s.transactions.SumForKey(ctx, tx, req.ToShareholderID, resolved.TypeID, resolved.SeriesID)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"transfer_out": outID,
			"transfer_in":  inID,
			"quantity":     req.Quantity,
		})
		return s.audit.Log(ctx, tx, req.ActorUserID, "transfer_shares", "share_transaction", outID, string(data))
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.broadcast(req.EntityID, req.FromShareholderID, resolved, fromBalance)
	s.broadcast(req.EntityID, req.ToShareholderID, resolved, toBalance)
	return result, nil
}

type CancelRequest struct {
	EntityID      string
	ActorUserID   string
	ShareholderID string
	TypeCode      string
	SeriesLabel   string
	Quantity      int64
	Meta          TransactionMeta
}

func (s *LedgerService) CancelShares(ctx context.Context, req CancelRequest) (models.ShareTransaction, error) {
	if req.Quantity <= 0 {
		return models.ShareTransaction{}, ErrInvalidQuantity
	}
	resolved, err := s.taxonomy.ValidateTypeAndSeries(ctx, req.EntityID, req.TypeCode, req.SeriesLabel)
	if err != nil {
		return models.ShareTransaction{}, err
	}

	rowID := uuid.NewString()
	var persisted models.ShareTransaction
	var balanceAfter int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		holder, err := s.shareholders.GetForUpdate(ctx, tx, req.ShareholderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUnknownShareholder
			}
			return err
		}
		if err := requireActiveInEntity(holder, req.EntityID); err != nil {
			return err
		}
		balance, err := s.transactions.SumForKey(ctx, tx, req.ShareholderID, resolved.TypeID, resolved.SeriesID)
		if err != nil {
			return err
		}
		if balance < req.Quantity {
			return &InsufficientSharesError{Available: balance, Requested: req.Quantity}
		}
		input := store.ShareTransactionInput{
			ID:              rowID,
			EntityID:        req.EntityID,
			ShareholderID:   req.ShareholderID,
			Type:            models.TxCancellation,
			StockTypeID:     resolved.TypeID,
			StockSeriesID:   resolved.SeriesID,
			Quantity:        -req.Quantity,
			TransactionDate: transactionDate(req.Meta),
			CertificateNo:   req.Meta.CertificateNo,
			Notes:           req.Meta.Notes,
			CreatedBy:       req.ActorUserID,
		}
		if err := s.transactions.Insert(ctx, tx, input); err != nil {
			return err
		}
		persisted, err = s.transactions.GetByID(ctx, tx, rowID)
		if err != nil {
			return err
		}
		balanceAfter, err = s.transactions.SumForKey(ctx, tx, req.ShareholderID, resolved.TypeID, resolved.SeriesID)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"transaction_id": rowID, "quantity": req.Quantity})
		return s.audit.Log(ctx, tx, req.ActorUserID, "cancel_shares", "share_transaction", rowID, string(data))
	})
	if err != nil {
		return models.ShareTransaction{}, err
	}
	s.broadcast(req.EntityID, req.ShareholderID, resolved, balanceAfter)
	return persisted, nil
}

func (s *LedgerService) checkShareholder(ctx context.Context, entityID, shareholderID string) error {
	holder, err := s.shareholders.GetByID(ctx, shareholderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownShareholder
		}
		return err
	}
	return requireActiveInEntity(holder, entityID)
}

func requireActiveInEntity(holder models.Shareholder, entityID string) error {
	if holder.EntityID != entityID {
		return ErrEntityMismatch
	}
	if !holder.Active {
		return ErrInactiveShareholder
	}
	return nil
}

// ensureConserved rejects transfer legs whose signed quantities do not sum
// to zero: shares moved out must equal shares moved in.
func ensureConserved(legs []store.ShareTransactionInput) error {
	var sum int64
	for _, leg := range legs {
		sum += leg.Quantity
	}
	if sum != 0 {
		return errors.New("transfer legs are not conserved")
	}
	return nil
}

func transactionDate(meta TransactionMeta) time.Time {
	if meta.TransactionDate.IsZero() {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return meta.TransactionDate
}

func (s *LedgerService) broadcast(entityID, shareholderID string, resolved ResolvedStock, balance int64) {
	update := websocket.PositionUpdate{
		ShareholderID: shareholderID,
		StockType:     resolved.TypeCode,
		Balance:       balance,
	}
	if resolved.SeriesLabel != nil {
		update.Series = *resolved.SeriesLabel
	}
	s.hub.BroadcastPosition(entityID, update)
}

// lockTwoShareholders acquires both row locks in a deterministic order so
// two opposing transfers cannot deadlock.
func lockTwoShareholders(ctx context.Context, tx store.Getter, shareholders ShareholderReader, firstID, secondID string) (models.Shareholder, models.Shareholder, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := shareholders.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Shareholder{}, models.Shareholder{}, ErrUnknownShareholder
		}
		return models.Shareholder{}, models.Shareholder{}, err
	}
	right, err := shareholders.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Shareholder{}, models.Shareholder{}, ErrUnknownShareholder
		}
		return models.Shareholder{}, models.Shareholder{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

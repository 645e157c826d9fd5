package handlers

import (
	"context"

	"captable/internal/models"
	"captable/internal/services"
	"captable/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type OperatorStore interface {
	ScopeFor(ctx context.Context, userID string) (store.OperatorScope, bool, error)
	IsPlatformAdmin(ctx context.Context, userID string) (bool, error)
	CreatePlatformAdmin(ctx context.Context, tx store.Execer, userID string, createdBy *string) error
	AssignOperator(ctx context.Context, tx store.Execer, userID, entityID, role string) error
	HasAnyPlatformAdmin(ctx context.Context) (bool, error)
}

type EntityStore interface {
	Create(ctx context.Context, tx store.Execer, id, name string) error
	GetByID(ctx context.Context, entityID string) (models.Entity, error)
	List(ctx context.Context) ([]models.Entity, error)
	Deactivate(ctx context.Context, tx store.Execer, entityID string) error
}

type StockStore interface {
	CreateType(ctx context.Context, tx store.Execer, id, entityID, code, displayName string, supportsSeries bool) error
	CreateSeries(ctx context.Context, tx store.Execer, id, stockTypeID, label string) error
	GetTypeByID(ctx context.Context, stockTypeID string) (models.StockType, error)
}

type ShareholderStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ShareholderInput) error
	GetByID(ctx context.Context, shareholderID string) (models.Shareholder, error)
	ListByEntity(ctx context.Context, entityID string) ([]models.Shareholder, error)
	HasTransactions(ctx context.Context, shareholderID string) (bool, error)
	Deactivate(ctx context.Context, tx store.Execer, shareholderID string) error
	Delete(ctx context.Context, tx store.Execer, shareholderID string) error
}

type TransactionStore interface {
	ListByEntity(ctx context.Context, entityID string, filter store.ListFilter) ([]models.ShareTransaction, error)
	VerifyNonNegative(ctx context.Context, entityID string) ([]store.NegativeReplayKey, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type TaxonomyService interface {
	ValidateTypeAndSeries(ctx context.Context, entityID, typeCode, seriesLabel string) (services.ResolvedStock, error)
	ListTypes(ctx context.Context, entityID string) ([]models.StockType, error)
	ListSeries(ctx context.Context, entityID, stockTypeID string) ([]models.StockSeries, error)
}

type LedgerService interface {
	IssueShares(ctx context.Context, req services.IssueRequest) (models.ShareTransaction, error)
	TransferShares(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	CancelShares(ctx context.Context, req services.CancelRequest) (models.ShareTransaction, error)
}

type ReportService interface {
	BuildOwnershipReport(ctx context.Context, entityID string, filters services.ReportFilters) (services.OwnershipReport, error)
}

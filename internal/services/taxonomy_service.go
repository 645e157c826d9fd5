package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"captable/internal/models"
)

var (
	ErrUnknownStockType = errors.New("unknown stock type")
	ErrSeriesRequired   = errors.New("series is required for this stock type")
	ErrUnknownSeries    = errors.New("unknown series")
	ErrSeriesNotAllowed = errors.New("stock type does not support series")
	ErrTypeNotFound     = errors.New("stock type not found")
)

type StockCatalog interface {
	GetTypeByID(ctx context.Context, stockTypeID string) (models.StockType, error)
	GetActiveTypeByCode(ctx context.Context, entityID, code string) (models.StockType, error)
	GetActiveSeriesByLabel(ctx context.Context, stockTypeID, label string) (models.StockSeries, error)
	ListTypes(ctx context.Context, entityID string) ([]models.StockType, error)
	ListSeries(ctx context.Context, stockTypeID string) ([]models.StockSeries, error)
}

// TaxonomyService is the read-only validation surface over the stock
// catalog. It resolves free-text type codes and series labels to ids
// exactly once, so the write path never compares strings.
type TaxonomyService struct {
	stocks StockCatalog
}

func NewTaxonomyService(stocks StockCatalog) *TaxonomyService {
	return &TaxonomyService{stocks: stocks}
}

// ResolvedStock carries the numeric identities the ledger writes against.
type ResolvedStock struct {
	TypeID      string
	TypeCode    string
	SeriesID    *string
	SeriesLabel *string
}

func (s *TaxonomyService) ValidateTypeAndSeries(ctx context.Context, entityID, typeCode, seriesLabel string) (ResolvedStock, error) {
	typeCode = strings.TrimSpace(typeCode)
	seriesLabel = strings.TrimSpace(seriesLabel)

	stockType, err := s.stocks.GetActiveTypeByCode(ctx, entityID, typeCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ResolvedStock{}, ErrUnknownStockType
		}
		return ResolvedStock{}, err
	}
	if stockType.SupportsSeries {
		if seriesLabel == "" {
			return ResolvedStock{}, ErrSeriesRequired
		}
		series, err := s.stocks.GetActiveSeriesByLabel(ctx, stockType.ID, seriesLabel)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ResolvedStock{}, ErrUnknownSeries
			}
			return ResolvedStock{}, err
		}
		return ResolvedStock{
			TypeID:      stockType.ID,
			TypeCode:    stockType.Code,
			SeriesID:    &series.ID,
			SeriesLabel: &series.Label,
		}, nil
	}
	if seriesLabel != "" {
		return ResolvedStock{}, ErrSeriesNotAllowed
	}
	return ResolvedStock{TypeID: stockType.ID, TypeCode: stockType.Code}, nil
}

func (s *TaxonomyService) ListTypes(ctx context.Context, entityID string) ([]models.StockType, error) {
	return s.stocks.ListTypes(ctx, entityID)
}

// ListSeries fails with ErrTypeNotFound when the type does not belong to
// the caller's entity, so one tenant cannot enumerate another's series.
func (s *TaxonomyService) ListSeries(ctx context.Context, entityID, stockTypeID string) ([]models.StockSeries, error) {
	stockType, err := s.stocks.GetTypeByID(ctx, stockTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, err
	}
	if stockType.EntityID != entityID {
		return nil, ErrTypeNotFound
	}
	return s.stocks.ListSeries(ctx, stockTypeID)
}

package services

import (
	"context"
	"sort"

	"captable/internal/models"
	"captable/internal/store"

	"github.com/shopspring/decimal"
)

// ReportService projects the transaction log into the ownership grid: one
// row per shareholder, one column per (stock type, series) combination.
// It is a pure read path and never touches the write side.
type ReportService struct {
	stocks       ReportStockCatalog
	shareholders ShareholderLister
	positions    PositionSource
}

type ReportStockCatalog interface {
	ListActiveTypes(ctx context.Context, entityID string) ([]models.StockType, error)
	ListActiveSeries(ctx context.Context, stockTypeID string) ([]models.StockSeries, error)
}

type ShareholderLister interface {
	ListByEntity(ctx context.Context, entityID string) ([]models.Shareholder, error)
}

type PositionSource interface {
	SumByEntity(ctx context.Context, entityID string) ([]store.PositionSum, error)
}

func NewReportService(stocks ReportStockCatalog, shareholders ShareholderLister, positions PositionSource) *ReportService {
	return &ReportService{stocks: stocks, shareholders: shareholders, positions: positions}
}

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

type ReportFilters struct {
	TypeCode    string
	SeriesLabel string
	Status      string
}

type ReportColumn struct {
	StockTypeID   string  `json:"stock_type_id"`
	TypeCode      string  `json:"type_code"`
	DisplayName   string  `json:"display_name"`
	StockSeriesID *string `json:"stock_series_id,omitempty"`
	SeriesLabel   *string `json:"series_label,omitempty"`
}

type ReportRow struct {
	ShareholderID string          `json:"shareholder_id"`
	FullName      string          `json:"full_name"`
	ExternalID    *string         `json:"external_id,omitempty"`
	Balances      []int64         `json:"balances"`
	Total         int64           `json:"total"`
	Percent       decimal.Decimal `json:"percent"`
}

type OwnershipReport struct {
	Columns      []ReportColumn `json:"columns"`
	Rows         []ReportRow    `json:"rows"`
	ColumnTotals []int64        `json:"column_totals"`
	GrandTotal   int64          `json:"grand_total"`
}

// Well-known codes sort ahead of everything else; the rest alphabetically.
var columnPriority = map[string]int{
	"COMMON":    0,
	"PREFERRED": 1,
	"WARRANT":   2,
}

func (s *ReportService) BuildOwnershipReport(ctx context.Context, entityID string, filters ReportFilters) (OwnershipReport, error) {
	columns, err := s.buildColumns(ctx, entityID, filters)
	if err != nil {
		return OwnershipReport{}, err
	}
	holders, err := s.shareholders.ListByEntity(ctx, entityID)
	if err != nil {
		return OwnershipReport{}, err
	}
	sums, err := s.positions.SumByEntity(ctx, entityID)
	if err != nil {
		return OwnershipReport{}, err
	}

	type cell struct {
		typeID string
		series string
	}
	columnIndex := make(map[cell]int, len(columns))
	for i, col := range columns {
		columnIndex[cell{typeID: col.StockTypeID, series: deref(col.StockSeriesID)}] = i
	}
	balances := make(map[string][]int64, len(holders))
	for _, sum := range sums {
		idx, ok := columnIndex[cell{typeID: sum.StockTypeID, series: deref(sum.StockSeriesID)}]
		if !ok {
			continue
		}
		row := balances[sum.ShareholderID]
		if row == nil {
			row = make([]int64, len(columns))
			balances[sum.ShareholderID] = row
		}
		row[idx] = sum.Balance
	}

	rows := make([]ReportRow, 0, len(holders))
	columnTotals := make([]int64, len(columns))
	var grandTotal int64
	for _, holder := range holders {
		cells := balances[holder.ID]
		if cells == nil {
			cells = make([]int64, len(columns))
		}
		var total int64
		for _, balance := range cells {
			total += balance
		}
		switch filters.Status {
		case StatusActive:
			if total == 0 {
				continue
			}
		case StatusInactive:
			if total != 0 {
				continue
			}
		}
		for i, balance := range cells {
			columnTotals[i] += balance
		}
		grandTotal += total
		rows = append(rows, ReportRow{
			ShareholderID: holder.ID,
			FullName:      holder.FullName,
			ExternalID:    holder.ExternalID,
			Balances:      cells,
			Total:         total,
		})
	}
	for i := range rows {
		rows[i].Percent = percentOf(rows[i].Total, grandTotal)
	}
	return OwnershipReport{
		Columns:      columns,
		Rows:         rows,
		ColumnTotals: columnTotals,
		GrandTotal:   grandTotal,
	}, nil
}

func (s *ReportService) buildColumns(ctx context.Context, entityID string, filters ReportFilters) ([]ReportColumn, error) {
	types, err := s.stocks.ListActiveTypes(ctx, entityID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(types, func(i, j int) bool {
		pi, pj := typePriority(types[i].Code), typePriority(types[j].Code)
		if pi != pj {
			return pi < pj
		}
		return types[i].Code < types[j].Code
	})
	columns := make([]ReportColumn, 0, len(types))
	for _, stockType := range types {
		if filters.TypeCode != "" && stockType.Code != filters.TypeCode {
			continue
		}
		if !stockType.SupportsSeries {
			if filters.SeriesLabel != "" {
				continue
			}
			columns = append(columns, ReportColumn{
				StockTypeID: stockType.ID,
				TypeCode:    stockType.Code,
				DisplayName: stockType.DisplayName,
			})
			continue
		}
		series, err := s.stocks.ListActiveSeries(ctx, stockType.ID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(series, func(i, j int) bool { return series[i].Label < series[j].Label })
		for _, sr := range series {
			if filters.SeriesLabel != "" && sr.Label != filters.SeriesLabel {
				continue
			}
			sr := sr
			columns = append(columns, ReportColumn{
				StockTypeID:   stockType.ID,
				TypeCode:      stockType.Code,
				DisplayName:   stockType.DisplayName,
				StockSeriesID: &sr.ID,
				SeriesLabel:   &sr.Label,
			})
		}
	}
	return columns, nil
}

func typePriority(code string) int {
	if p, ok := columnPriority[code]; ok {
		return p
	}
	return len(columnPriority)
}

func percentOf(total, grandTotal int64) decimal.Decimal {
	if grandTotal == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(grandTotal)).Mul(decimal.NewFromInt(100))
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

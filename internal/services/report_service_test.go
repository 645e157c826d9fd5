package services

import (
	"context"
	"reflect"
	"testing"

	"captable/internal/models"
	"captable/internal/store"

	"github.com/shopspring/decimal"
)

type stubReportCatalog struct {
	types  []models.StockType
	series map[string][]models.StockSeries
}

func (s stubReportCatalog) ListActiveTypes(_ context.Context, _ string) ([]models.StockType, error) {
	out := make([]models.StockType, len(s.types))
	copy(out, s.types)
	return out, nil
}

func (s stubReportCatalog) ListActiveSeries(_ context.Context, stockTypeID string) ([]models.StockSeries, error) {
	return s.series[stockTypeID], nil
}

type stubHolders struct {
	holders []models.Shareholder
}

func (s stubHolders) ListByEntity(_ context.Context, _ string) ([]models.Shareholder, error) {
	return s.holders, nil
}

type stubPositions struct {
	sums []store.PositionSum
}

func (s stubPositions) SumByEntity(_ context.Context, _ string) ([]store.PositionSum, error) {
	return s.sums, nil
}

func reportFixture() *ReportService {
	catalog := stubReportCatalog{
		types: []models.StockType{
			{ID: "st-warrant", Code: "WARRANT", DisplayName: "Warrant", Active: true},
			{ID: "st-zclass", Code: "ZCLASS", DisplayName: "Class Z", Active: true},
			{ID: "st-pref", Code: "PREFERRED", DisplayName: "Preferred", SupportsSeries: true, Active: true},
			{ID: "st-common", Code: "COMMON", DisplayName: "Common", Active: true},
		},
		series: map[string][]models.StockSeries{
			"st-pref": {
				{ID: "sr-b", StockTypeID: "st-pref", Label: "B", Active: true},
				{ID: "sr-a", StockTypeID: "st-pref", Label: "A", Active: true},
			},
		},
	}
	holders := stubHolders{holders: []models.Shareholder{
		{ID: "sh-1", EntityID: "e1", FullName: "Ada Holder", Active: true},
		{ID: "sh-2", EntityID: "e1", FullName: "Bo Holder", Active: true},
		{ID: "sh-3", EntityID: "e1", FullName: "Cy Holder", Active: true},
	}}
	positions := stubPositions{sums: []store.PositionSum{
		{ShareholderID: "sh-1", StockTypeID: "st-common", Balance: 600},
		{ShareholderID: "sh-1", StockTypeID: "st-pref", StockSeriesID: strPointer("sr-a"), Balance: 150},
		{ShareholderID: "sh-2", StockTypeID: "st-common", Balance: 400},
		{ShareholderID: "sh-2", StockTypeID: "st-pref", StockSeriesID: strPointer("sr-b"), Balance: 50},
	}}
	return NewReportService(catalog, holders, positions)
}

func strPointer(value string) *string {
	return &value
}

func TestReportColumnOrdering(t *testing.T) {
	service := reportFixture()
	report, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([]string, 0, len(report.Columns))
	for _, col := range report.Columns {
		key := col.TypeCode
		if col.SeriesLabel != nil {
			key += "/" + *col.SeriesLabel
		}
		got = append(got, key)
	}
	want := []string{"COMMON", "PREFERRED/A", "PREFERRED/B", "WARRANT", "ZCLASS"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected column order: %#v", got)
	}
}

func TestReportTotalsIdentity(t *testing.T) {
	service := reportFixture()
	report, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var columnSum int64
	for _, total := range report.ColumnTotals {
		columnSum += total
	}
	var rowSum int64
	for _, row := range report.Rows {
		var cells int64
		for _, balance := range row.Balances {
			cells += balance
		}
		if cells != row.Total {
			t.Fatalf("row total mismatch for %s: %d != %d", row.ShareholderID, cells, row.Total)
		}
		rowSum += row.Total
	}
	if report.GrandTotal != columnSum || report.GrandTotal != rowSum {
		t.Fatalf("grand total identity broken: grand=%d columns=%d rows=%d", report.GrandTotal, columnSum, rowSum)
	}
	if report.GrandTotal != 1200 {
		t.Fatalf("unexpected grand total: %d", report.GrandTotal)
	}
}

func TestReportPercentages(t *testing.T) {
	service := reportFixture()
	report, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := map[string]ReportRow{}
	for _, row := range report.Rows {
		byID[row.ShareholderID] = row
	}
	wantSh1 := decimal.NewFromInt(750).Div(decimal.NewFromInt(1200)).Mul(decimal.NewFromInt(100))
	if !byID["sh-1"].Percent.Equal(wantSh1) {
		t.Fatalf("unexpected percent for sh-1: %s", byID["sh-1"].Percent)
	}
	if !byID["sh-3"].Percent.Equal(decimal.Zero) {
		t.Fatalf("zero-balance holder must have zero percent: %s", byID["sh-3"].Percent)
	}
}

func TestReportStatusFilters(t *testing.T) {
	service := reportFixture()

	active, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{Status: StatusActive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active.Rows) != 2 {
		t.Fatalf("ACTIVE must drop zero-balance holders: %#v", active.Rows)
	}

	inactive, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{Status: StatusInactive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inactive.Rows) != 1 || inactive.Rows[0].ShareholderID != "sh-3" {
		t.Fatalf("INACTIVE must keep only zero-balance holders: %#v", inactive.Rows)
	}

	all, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all.Rows) != 3 {
		t.Fatalf("no filter must keep every holder: %#v", all.Rows)
	}
}

func TestReportTypeAndSeriesFilters(t *testing.T) {
	service := reportFixture()
	report, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{TypeCode: "PREFERRED", SeriesLabel: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Columns) != 1 || report.Columns[0].TypeCode != "PREFERRED" || *report.Columns[0].SeriesLabel != "A" {
		t.Fatalf("unexpected columns: %#v", report.Columns)
	}
	if report.GrandTotal != 150 {
		t.Fatalf("unexpected filtered grand total: %d", report.GrandTotal)
	}
}

func TestReportIsDeterministic(t *testing.T) {
	service := reportFixture()
	first, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical snapshots must produce identical reports")
	}
}

func TestReportEmptyEntity(t *testing.T) {
	service := NewReportService(stubReportCatalog{}, stubHolders{}, stubPositions{})
	report, err := service.BuildOwnershipReport(context.Background(), "e1", ReportFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Rows) != 0 || report.GrandTotal != 0 {
		t.Fatalf("expected empty report: %#v", report)
	}
}

package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestTransactionStoreInsert(t *testing.T) {
	ctx := context.Background()
	var gotQuery string
	var gotArgs []any
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			gotQuery = query
			gotArgs = args
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	input := ShareTransactionInput{
		ID:              "tx-1",
		EntityID:        "e1",
		ShareholderID:   "sh-1",
		Type:            "ISSUANCE",
		StockTypeID:     "st-1",
		Quantity:        1000,
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:       "user-1",
	}
	if err := store.Insert(ctx, execer, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "INSERT INTO share_transactions") {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if len(gotArgs) != 13 {
		t.Fatalf("expected 13 args, got %d", len(gotArgs))
	}
	if gotArgs[6] != int64(1000) {
		t.Fatalf("unexpected quantity arg: %#v", gotArgs[6])
	}
}

func TestTransactionStoreSumForKey(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{})
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "IS NOT DISTINCT FROM") {
				t.Fatalf("series match must treat NULL as a key value: %s", query)
			}
			if len(args) != 3 || args[0] != "sh-1" || args[1] != "st-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			if args[2] != (*string)(nil) {
				t.Fatalf("expected nil series, got %#v", args[2])
			}
			*dest.(*int64) = 600
			return nil
		},
	}
	sum, err := store.SumForKey(ctx, getter, "sh-1", "st-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 600 {
		t.Fatalf("unexpected sum: %d", sum)
	}
}

func TestTransactionStoreListByEntityCompilesFilters(t *testing.T) {
	ctx := context.Background()
	var gotQuery string
	var gotArgs []any
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			gotQuery = query
			gotArgs = args
			return nil
		},
	})
	txType := "TRANSFER"
	shareholderID := "sh-1"
	_, err := store.ListByEntity(ctx, "e1", ListFilter{
		ShareholderID: &shareholderID,
		Type:          &txType,
		Limit:         25,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "shareholder_id = $2") || !strings.Contains(gotQuery, "tx_type = $3") {
		t.Fatalf("filters not compiled into placeholders: %s", gotQuery)
	}
	if strings.Contains(gotQuery, "stock_type_id = ") {
		t.Fatalf("unset filter leaked into query: %s", gotQuery)
	}
	want := []any{"e1", "sh-1", "TRANSFER", 25, 0}
	if len(gotArgs) != len(want) {
		t.Fatalf("unexpected args: %#v", gotArgs)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("arg %d: want %#v, got %#v", i, want[i], gotArgs[i])
		}
	}
}

func TestTransactionStoreListByEntityCapsLimit(t *testing.T) {
	ctx := context.Background()
	var gotArgs []any
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			gotArgs = args
			return nil
		},
	})
	if _, err := store.ListByEntity(ctx, "e1", ListFilter{Limit: 10000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotArgs[len(gotArgs)-2] != 100 {
		t.Fatalf("oversized limit not capped: %#v", gotArgs)
	}
}

func TestVerifyNonNegativeFlagsOverdraw(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "ORDER BY transaction_date, created_at, id") {
				t.Fatalf("replay must be ordered: %s", query)
			}
			rows := dest.(*[]replayRow)
			*rows = []replayRow{
				{ShareholderID: "sh-1", StockTypeID: "st-1", Quantity: 1000},
				{ShareholderID: "sh-1", StockTypeID: "st-1", Quantity: -400},
				{ShareholderID: "sh-2", StockTypeID: "st-1", Quantity: -50},
				{ShareholderID: "sh-2", StockTypeID: "st-1", Quantity: 200},
			}
			return nil
		},
	})
	violations, err := store.VerifyNonNegative(ctx, "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %#v", violations)
	}
	if violations[0].ShareholderID != "sh-2" || violations[0].Balance != -50 {
		t.Fatalf("unexpected violation: %#v", violations[0])
	}
}

func TestVerifyNonNegativeSeparatesSeriesKeys(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			rows := dest.(*[]replayRow)
			*rows = []replayRow{
				{ShareholderID: "sh-1", StockTypeID: "st-1", StockSeriesID: strPtr("sr-a"), Quantity: 100},
				{ShareholderID: "sh-1", StockTypeID: "st-1", StockSeriesID: strPtr("sr-b"), Quantity: -100},
			}
			return nil
		},
	})
	violations, err := store.VerifyNonNegative(ctx, "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 1 || violations[0].StockSeriesID == nil || *violations[0].StockSeriesID != "sr-b" {
		t.Fatalf("series keys must not net against each other: %#v", violations)
	}
}

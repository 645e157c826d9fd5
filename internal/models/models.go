package models

import "time"

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Entity struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type StockType struct {
	ID             string    `db:"id" json:"id"`
	EntityID       string    `db:"entity_id" json:"entity_id"`
	Code           string    `db:"code" json:"code"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	SupportsSeries bool      `db:"supports_series" json:"supports_series"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type StockSeries struct {
	ID          string    `db:"id" json:"id"`
	StockTypeID string    `db:"stock_type_id" json:"stock_type_id"`
	Label       string    `db:"label" json:"label"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Shareholder struct {
	ID         string    `db:"id" json:"id"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	ExternalID *string   `db:"external_id" json:"external_id,omitempty"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      *string   `db:"email" json:"email,omitempty"`
	Address    *string   `db:"address" json:"address,omitempty"`
	HolderType string    `db:"holder_type" json:"holder_type"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ShareTransaction is one immutable leg of an economic event. Quantity is
// signed: positive rows increase the holder's position, negative rows
// decrease it. Rows are never updated or deleted; corrections append
// offsetting rows.
type ShareTransaction struct {
	ID                string    `db:"id" json:"id"`
	EntityID          string    `db:"entity_id" json:"entity_id"`
	ShareholderID     string    `db:"shareholder_id" json:"shareholder_id"`
	Type              string    `db:"tx_type" json:"type"`
	StockTypeID       string    `db:"stock_type_id" json:"stock_type_id"`
	StockSeriesID     *string   `db:"stock_series_id" json:"stock_series_id,omitempty"`
	Quantity          int64     `db:"quantity" json:"quantity"`
	TransactionDate   time.Time `db:"transaction_date" json:"transaction_date"`
	CertificateNo     *string   `db:"certificate_no" json:"certificate_no,omitempty"`
	FromShareholderID *string   `db:"from_shareholder_id" json:"from_shareholder_id,omitempty"`
	ToShareholderID   *string   `db:"to_shareholder_id" json:"to_shareholder_id,omitempty"`
	Notes             *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy         string    `db:"created_by" json:"created_by"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

const (
	TxIssuance     = "ISSUANCE"
	TxTransfer     = "TRANSFER"
	TxCancellation = "CANCELLATION"
)

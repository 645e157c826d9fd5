package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"captable/internal/middleware"
	"captable/internal/services"
	"captable/internal/shares"
	"captable/internal/store"
)

type ledgerRequest struct {
	ShareholderID     string `json:"shareholder_id"`
	FromShareholderID string `json:"from_shareholder_id"`
	ToShareholderID   string `json:"to_shareholder_id"`
	TypeCode          string `json:"type_code"`
	SeriesLabel       string `json:"series_label"`
	Quantity          string `json:"quantity"`
	TransactionDate   string `json:"transaction_date"`
	CertificateNo     string `json:"certificate_no"`
	Notes             string `json:"notes"`
}

func (req ledgerRequest) meta() (services.TransactionMeta, error) {
	meta := services.TransactionMeta{
		CertificateNo: optionalString(req.CertificateNo),
		Notes:         optionalString(req.Notes),
	}
	if req.TransactionDate != "" {
		date, err := time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			return services.TransactionMeta{}, err
		}
		meta.TransactionDate = date
	}
	return meta, nil
}

func (h *Handler) IssueShares(w http.ResponseWriter, r *http.Request) {
	entityID, actorID, req, quantity, meta, ok := h.decodeLedgerRequest(w, r)
	if !ok {
		return
	}
	row, err := h.ledger.IssueShares(r.Context(), services.IssueRequest{
		EntityID:      entityID,
		ActorUserID:   actorID,
		ShareholderID: req.ShareholderID,
		TypeCode:      req.TypeCode,
		SeriesLabel:   req.SeriesLabel,
		Quantity:      quantity,
		Meta:          meta,
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, row)
}

func (h *Handler) TransferShares(w http.ResponseWriter, r *http.Request) {
	entityID, actorID, req, quantity, meta, ok := h.decodeLedgerRequest(w, r)
	if !ok {
		return
	}
	result, err := h.ledger.TransferShares(r.Context(), services.TransferRequest{
		EntityID:          entityID,
		ActorUserID:       actorID,
		FromShareholderID: req.FromShareholderID,
		ToShareholderID:   req.ToShareholderID,
		TypeCode:          req.TypeCode,
		SeriesLabel:       req.SeriesLabel,
		Quantity:          quantity,
		Meta:              meta,
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transfer_out": result.TransferOut,
		"transfer_in":  result.TransferIn,
	})
}

func (h *Handler) CancelShares(w http.ResponseWriter, r *http.Request) {
	entityID, actorID, req, quantity, meta, ok := h.decodeLedgerRequest(w, r)
	if !ok {
		return
	}
	row, err := h.ledger.CancelShares(r.Context(), services.CancelRequest{
		EntityID:      entityID,
		ActorUserID:   actorID,
		ShareholderID: req.ShareholderID,
		TypeCode:      req.TypeCode,
		SeriesLabel:   req.SeriesLabel,
		Quantity:      quantity,
		Meta:          meta,
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, row)
}

func (h *Handler) decodeLedgerRequest(w http.ResponseWriter, r *http.Request) (string, string, ledgerRequest, int64, services.TransactionMeta, bool) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return "", "", ledgerRequest{}, 0, services.TransactionMeta{}, false
	}
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req ledgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return "", "", ledgerRequest{}, 0, services.TransactionMeta{}, false
	}
	quantity, err := shares.ParseQuantity(req.Quantity)
	if err != nil || quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity")
		return "", "", ledgerRequest{}, 0, services.TransactionMeta{}, false
	}
	meta, err := req.meta()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_transaction_date")
		return "", "", ledgerRequest{}, 0, services.TransactionMeta{}, false
	}
	return entityID, actorID, req, quantity, meta, true
}

func respondLedgerError(w http.ResponseWriter, err error) {
	var insufficient *services.InsufficientSharesError
	if errors.As(err, &insufficient) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     "insufficient_shares",
			"message":   insufficient.Error(),
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
		return
	}
	switch {
	case errors.Is(err, services.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity")
	case errors.Is(err, services.ErrSelfTransfer):
		respondError(w, http.StatusBadRequest, "self_transfer")
	case errors.Is(err, services.ErrUnknownStockType):
		respondError(w, http.StatusBadRequest, "unknown_stock_type")
	case errors.Is(err, services.ErrSeriesRequired):
		respondError(w, http.StatusBadRequest, "series_required")
	case errors.Is(err, services.ErrUnknownSeries):
		respondError(w, http.StatusBadRequest, "unknown_series")
	case errors.Is(err, services.ErrSeriesNotAllowed):
		respondError(w, http.StatusBadRequest, "series_not_allowed")
	case errors.Is(err, services.ErrUnknownShareholder):
		respondError(w, http.StatusNotFound, "shareholder_not_found")
	case errors.Is(err, services.ErrInactiveShareholder):
		respondError(w, http.StatusBadRequest, "inactive_shareholder")
	case errors.Is(err, services.ErrEntityMismatch):
		respondError(w, http.StatusForbidden, "shareholder_access_denied")
	default:
		respondError(w, http.StatusInternalServerError, "ledger_operation_failed")
	}
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	query := r.URL.Query()
	filter := store.ListFilter{
		ShareholderID: optionalString(query.Get("shareholder_id")),
		StockTypeID:   optionalString(query.Get("stock_type_id")),
		StockSeriesID: optionalString(query.Get("stock_series_id")),
		Type:          optionalString(query.Get("type")),
		Limit:         queryInt(r, "limit", 100),
		Offset:        queryInt(r, "offset", 0),
	}
	rows, err := h.transactions.ListByEntity(r.Context(), entityID, filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// VerifyLedger replays the entity's log and reports any key whose running
// balance ever went negative. An empty list means the log is consistent.
func (h *Handler) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	violations, err := h.transactions.VerifyNonNegative(r.Context(), entityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"consistent": len(violations) == 0,
		"violations": violations,
	})
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"captable/internal/middleware"
	"captable/internal/store"
	"captable/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func (h *Handler) ListShareholders(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	holders, err := h.shareholders.ListByEntity(r.Context(), entityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list shareholders")
		return
	}
	respondJSON(w, http.StatusOK, holders)
}

type createShareholderRequest struct {
	ExternalID string `json:"external_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	HolderType string `json:"holder_type"`
}

func (h *Handler) CreateShareholder(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req createShareholderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.FullName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.HolderType == "" {
		req.HolderType = "individual"
	}
	if err := validator.ValidateHolderType(req.HolderType); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email != "" {
		if err := validator.ValidateEmail(req.Email); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	shareholderID := uuid.NewString()
	input := store.ShareholderInput{
		ID:         shareholderID,
		EntityID:   entityID,
		ExternalID: optionalString(strings.TrimSpace(req.ExternalID)),
		FullName:   req.FullName,
		Email:      optionalString(req.Email),
		Address:    optionalString(req.Address),
		HolderType: req.HolderType,
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.shareholders.Create(r.Context(), tx, input); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"full_name": req.FullName})
		return h.audit.Log(r.Context(), tx, actorID, "create_shareholder", "shareholder", shareholderID, string(data))
	})
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			respondError(w, http.StatusConflict, "external id already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "shareholder creation failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": shareholderID})
}

func (h *Handler) GetShareholder(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	holder, err := h.shareholders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil || holder.EntityID != entityID {
		respondError(w, http.StatusNotFound, "shareholder not found")
		return
	}
	respondJSON(w, http.StatusOK, holder)
}

// DeleteShareholder hard-deletes only when the holder has no transaction
// history; otherwise it soft-deactivates so the ledger stays replayable.
func (h *Handler) DeleteShareholder(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	actorID, _ := middleware.UserIDFromContext(r.Context())
	shareholderID := chi.URLParam(r, "id")
	holder, err := h.shareholders.GetByID(r.Context(), shareholderID)
	if err != nil || holder.EntityID != entityID {
		if errors.Is(err, sql.ErrNoRows) || err == nil {
			respondError(w, http.StatusNotFound, "shareholder not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load shareholder")
		return
	}
	hasHistory, err := h.shareholders.HasTransactions(r.Context(), shareholderID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check history")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if hasHistory {
			if err := h.shareholders.Deactivate(r.Context(), tx, shareholderID); err != nil {
				return err
			}
		} else {
			if err := h.shareholders.Delete(r.Context(), tx, shareholderID); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]bool{"soft": hasHistory})
		return h.audit.Log(r.Context(), tx, actorID, "delete_shareholder", "shareholder", shareholderID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "deletion failed")
		return
	}
	status := "deleted"
	if hasHistory {
		status = "deactivated"
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": shareholderID, "status": status})
}

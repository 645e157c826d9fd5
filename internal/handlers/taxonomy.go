package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"captable/internal/middleware"
	"captable/internal/services"
	"captable/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func (h *Handler) ListStockTypes(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	types, err := h.taxonomy.ListTypes(r.Context(), entityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list stock types")
		return
	}
	respondJSON(w, http.StatusOK, types)
}

type createStockTypeRequest struct {
	Code           string `json:"code"`
	DisplayName    string `json:"display_name"`
	SupportsSeries bool   `json:"supports_series"`
}

func (h *Handler) CreateStockType(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req createStockTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validator.ValidateTypeCode(req.Code); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidateName(req.DisplayName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	typeID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.stocks.CreateType(r.Context(), tx, typeID, entityID, req.Code, req.DisplayName, req.SupportsSeries); err != nil {
			return err
		}
		data, _ := json.Marshal(req)
		return h.audit.Log(r.Context(), tx, actorID, "create_stock_type", "stock_type", typeID, string(data))
	})
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			respondError(w, http.StatusConflict, "stock type code already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "stock type creation failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": typeID})
}

func (h *Handler) ListStockSeries(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	stockTypeID := chi.URLParam(r, "id")
	series, err := h.taxonomy.ListSeries(r.Context(), entityID, stockTypeID)
	if err != nil {
		if errors.Is(err, services.ErrTypeNotFound) {
			respondError(w, http.StatusNotFound, "stock type not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to list series")
		return
	}
	respondJSON(w, http.StatusOK, series)
}

type createStockSeriesRequest struct {
	Label string `json:"label"`
}

func (h *Handler) CreateStockSeries(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	actorID, _ := middleware.UserIDFromContext(r.Context())
	stockTypeID := chi.URLParam(r, "id")
	var req createStockSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Label = strings.ToUpper(strings.TrimSpace(req.Label))
	if err := validator.ValidateSeriesLabel(req.Label); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	stockType, err := h.stocks.GetTypeByID(r.Context(), stockTypeID)
	if err != nil || stockType.EntityID != entityID {
		respondError(w, http.StatusNotFound, "stock type not found")
		return
	}
	if !stockType.SupportsSeries {
		respondError(w, http.StatusBadRequest, "stock type does not support series")
		return
	}
	seriesID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.stocks.CreateSeries(r.Context(), tx, seriesID, stockTypeID, req.Label); err != nil {
			return err
		}
		data, _ := json.Marshal(req)
		return h.audit.Log(r.Context(), tx, actorID, "create_stock_series", "stock_series", seriesID, string(data))
	})
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			respondError(w, http.StatusConflict, "series label already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "series creation failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": seriesID})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"captable/internal/middleware"
	"captable/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type createEntityRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entityID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.entities.Create(r.Context(), tx, entityID, req.Name); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"name": req.Name})
		return h.audit.Log(r.Context(), tx, actorID, "create_entity", "entity", entityID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "entity creation failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": entityID})
}

func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.entities.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list entities")
		return
	}
	respondJSON(w, http.StatusOK, entities)
}

// DeactivateEntity soft-deletes: issuers with history are never removed,
// only flagged inactive.
func (h *Handler) DeactivateEntity(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	entityID := chi.URLParam(r, "id")
	if _, err := h.entities.GetByID(r.Context(), entityID); err != nil {
		respondError(w, http.StatusNotFound, "entity not found")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.entities.Deactivate(r.Context(), tx, entityID); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, actorID, "deactivate_entity", "entity", entityID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "deactivation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": entityID, "status": "inactive"})
}

type assignOperatorRequest struct {
	UserID   string `json:"user_id"`
	EntityID string `json:"entity_id"`
	Role     string `json:"role"`
}

func (h *Handler) AssignOperator(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req assignOperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Role {
	case middleware.RoleAdmin, middleware.RoleIssuer, middleware.RoleViewer:
	default:
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if _, err := h.entities.GetByID(r.Context(), req.EntityID); err != nil {
		respondError(w, http.StatusNotFound, "entity not found")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.operators.AssignOperator(r.Context(), tx, req.UserID, req.EntityID, req.Role); err != nil {
			return err
		}
		data, _ := json.Marshal(req)
		return h.audit.Log(r.Context(), tx, actorID, "assign_operator", "operator", req.UserID, string(data))
	})
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23503" {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "operator assignment failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"user_id": req.UserID, "entity_id": req.EntityID, "role": req.Role})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

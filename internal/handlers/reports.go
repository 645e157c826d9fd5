package handlers

import (
	"net/http"
	"strings"

	"captable/internal/middleware"
	"captable/internal/services"
	"captable/internal/shares"
)

func (h *Handler) OwnershipReport(w http.ResponseWriter, r *http.Request) {
	entityID, _, ok := middleware.EntityScopeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	query := r.URL.Query()
	status := strings.ToUpper(query.Get("status"))
	switch status {
	case "", services.StatusActive, services.StatusInactive:
	default:
		respondError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	report, err := h.reports.BuildOwnershipReport(r.Context(), entityID, services.ReportFilters{
		TypeCode:    strings.ToUpper(query.Get("type")),
		SeriesLabel: strings.ToUpper(query.Get("series")),
		Status:      status,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build report")
		return
	}
	rows := make([]map[string]any, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, map[string]any{
			"shareholder_id": row.ShareholderID,
			"full_name":      row.FullName,
			"external_id":    row.ExternalID,
			"balances":       row.Balances,
			"total":          row.Total,
			"percent":        shares.FormatPercent(row.Percent),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"columns":       report.Columns,
		"rows":          rows,
		"column_totals": report.ColumnTotals,
		"grand_total":   report.GrandTotal,
	})
}

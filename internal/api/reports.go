package api

import (
	"fmt"
	"net/http"
	"time"

	"pharmadesk/m/internal/reports"
)

// summaryFromQuery resolves either an explicit start/end pair or a named
// period (weekly, monthly, yearly) into a report summary. Period wins when
// both are present.
func (h *Handler) summaryFromQuery(r *http.Request) (*reports.Summary, error) {
	switch r.URL.Query().Get("period") {
	case "weekly":
		return h.reports.PeriodSummary(r.Context(), reports.PeriodWeekly)
	case "monthly":
		return h.reports.PeriodSummary(r.Context(), reports.PeriodMonthly)
	case "yearly":
		return h.reports.PeriodSummary(r.Context(), reports.PeriodYearly)
	case "":
	default:
		return nil, reports.ErrBadDateRange
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" && end == "" {
		return h.reports.PeriodSummary(r.Context(), reports.PeriodMonthly)
	}
	return h.reports.Summary(r.Context(), start, end)
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summaryFromQuery(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (h *Handler) exportSalesReport(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summaryFromQuery(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("sales_report_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := reports.WriteExcel(w, sum); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

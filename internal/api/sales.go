package api

import (
	"net/http"
)

type checkoutRequest struct {
	PatientID int64 `json:"patient_id"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userIDFromContext(r)
	receipt, err := h.sales.Checkout(r.Context(), h.carts.get(userID), req.PatientID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) salesHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sales.History(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

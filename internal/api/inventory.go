package api

import (
	"net/http"
)

type batchRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	ExpiryDate string  `json:"expiry_date"`
	Price      float64 `json:"price"`
	Quantity   int64   `json:"quantity"`
}

type addStockRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *Handler) listMedicineGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.ledger.Groups(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.inventory.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, batches)
}

func (h *Handler) addBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	batch, err := h.inventory.AddBatch(r.Context(), req.Name, req.Type, req.ExpiryDate, req.Price, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, batch)
}

func (h *Handler) updateBatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.inventory.UpdateBatch(r.Context(), id, req.Name, req.Type, req.ExpiryDate, req.Price, req.Quantity); err != nil {
		respondServiceError(w, err)
		return
	}
	batch, err := h.inventory.Batch(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	if err := h.inventory.DeleteBatch(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var req addStockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.inventory.AddStock(r.Context(), id, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.inventory.Alerts(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

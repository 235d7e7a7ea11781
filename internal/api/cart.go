package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/prescription"
)

type cartLineRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Quantity     int64  `json:"quantity"`
	Prescription string `json:"prescription"`
}

type cartView struct {
	Lines []cartLineView `json:"lines"`
	Total float64        `json:"total"`
}

type cartLineView struct {
	Medicine     string  `json:"medicine"`
	Quantity     int64   `json:"quantity"`
	Available    int64   `json:"available"`
	Prescription string  `json:"prescription"`
	DosageUnit   string  `json:"dosage_unit"`
	Subtotal     float64 `json:"subtotal"`
}

func (h *Handler) cartViewFor(userID int64) cartView {
	c := h.carts.get(userID)
	lines := c.Lines()
	view := cartView{Lines: make([]cartLineView, 0, len(lines)), Total: c.Total().InexactFloat64()}
	for _, line := range lines {
		view.Lines = append(view.Lines, cartLineView{
			Medicine:     line.Group.Key.String(),
			Quantity:     line.Quantity,
			Available:    line.Group.Quantity,
			Prescription: line.Prescription,
			DosageUnit:   prescription.UnitLabel(line.Group.Key.Type),
			Subtotal:     line.Subtotal.InexactFloat64(),
		})
	}
	return view
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartViewFor(userIDFromContext(r)))
}

func (h *Handler) addCartLine(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userIDFromContext(r)
	c := h.carts.get(userID)
	key := domain.GroupKey{Name: req.Name, Type: req.Type}
	if err := c.AddLine(r.Context(), key, req.Quantity, req.Prescription); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.cartViewFor(userID))
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	userID := userIDFromContext(r)
	h.carts.get(userID).RemoveLine(index)
	respondJSON(w, http.StatusOK, h.cartViewFor(userID))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	h.carts.get(userID).Clear()
	respondJSON(w, http.StatusOK, h.cartViewFor(userID))
}

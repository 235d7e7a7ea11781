package api

import (
	"net/http"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/sales"
)

type patientRequest struct {
	Name           string `json:"name"`
	Age            *int64 `json:"age"`
	MedicalHistory string `json:"medical_history"`
}

func (h *Handler) createPatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	patient, err := h.patients.Create(r.Context(), req.Name, req.Age, req.MedicalHistory)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, patient)
}

func (h *Handler) listPatients(w http.ResponseWriter, r *http.Request) {
	list, err := h.patients.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) updatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var req patientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.patients.Update(r.Context(), id, req.Name, req.Age, req.MedicalHistory); err != nil {
		respondServiceError(w, err)
		return
	}
	patient, err := h.patients.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) deletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	if err := h.patients.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type patientHistoryResponse struct {
	Patient domain.Patient         `json:"patient"`
	Sales   []sales.PatientSaleRow `json:"sales"`
}

func (h *Handler) patientHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	patient, err := h.patients.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	rows, err := h.sales.PatientHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, patientHistoryResponse{Patient: patient, Sales: rows})
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/migrations"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := database.Connect(":memory:")
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)

	srv := httptest.NewServer(New(db, "test_secret").Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &payload)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	status := doJSON(t, srv, http.MethodPost, "/auth/login",
		"", map[string]string{"username": username, "password": password}, &out)
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", username, status)
	}
	if out.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}
	return out.Token
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/medicines", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", resp.StatusCode)
	}

	var out map[string]string
	if status := doJSON(t, srv, http.MethodPost, "/auth/login", "",
		map[string]string{"username": "admin", "password": "wrong"}, &out); status != http.StatusUnauthorized {
		t.Errorf("bad credentials: status %d, want 401", status)
	}
}

func TestRoleGating(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, "staff1", "1234")
	manager := login(t, srv, "admin", "admin123")

	batch := map[string]any{"name": "Napa", "type": "Tablet", "expiry_date": "2030-01-01", "price": 1.5, "quantity": 100}

	if status := doJSON(t, srv, http.MethodPost, "/medicines", staff, batch, nil); status != http.StatusForbidden {
		t.Errorf("staff add batch: status %d, want 403", status)
	}
	if status := doJSON(t, srv, http.MethodGet, "/reports/sales", staff, nil, nil); status != http.StatusForbidden {
		t.Errorf("staff reports: status %d, want 403", status)
	}
	if status := doJSON(t, srv, http.MethodGet, "/users", staff, nil, nil); status != http.StatusForbidden {
		t.Errorf("staff users: status %d, want 403", status)
	}

	if status := doJSON(t, srv, http.MethodPost, "/medicines", manager, batch, nil); status != http.StatusCreated {
		t.Errorf("manager add batch: status %d, want 201", status)
	}
	if status := doJSON(t, srv, http.MethodGet, "/medicines", staff, nil, nil); status != http.StatusOK {
		t.Errorf("staff browse medicines: status %d, want 200", status)
	}
}

func TestCartCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "admin", "admin123")
	staff := login(t, srv, "staff1", "1234")

	var batch struct {
		ID int64 `json:"id"`
	}
	if status := doJSON(t, srv, http.MethodPost, "/medicines", manager,
		map[string]any{"name": "Napa", "type": "Tablet", "expiry_date": "2030-01-01", "price": 2.0, "quantity": 50},
		&batch); status != http.StatusCreated {
		t.Fatalf("add batch: status %d", status)
	}

	var patient struct {
		ID int64 `json:"id"`
	}
	if status := doJSON(t, srv, http.MethodPost, "/patients", staff,
		map[string]any{"name": "Rahim Uddin", "age": 52, "medical_history": "diabetes"},
		&patient); status != http.StatusCreated {
		t.Fatalf("create patient: status %d", status)
	}

	line := map[string]any{"name": "Napa", "type": "Tablet", "quantity": 10, "prescription": "1*3*7"}
	var view cartView
	if status := doJSON(t, srv, http.MethodPost, "/cart/lines", staff, line, &view); status != http.StatusCreated {
		t.Fatalf("add cart line: status %d", status)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 10 {
		t.Fatalf("cart view = %+v", view)
	}
	if view.Total != 20.0 {
		t.Errorf("cart total = %v, want 20.0", view.Total)
	}

	// Carts are per operator: the manager's cart stays empty.
	var managerView cartView
	doJSON(t, srv, http.MethodGet, "/cart", manager, nil, &managerView)
	if len(managerView.Lines) != 0 {
		t.Errorf("manager cart has %d lines, want 0", len(managerView.Lines))
	}

	var receipt struct {
		Sale struct {
			InvoiceNo   string  `json:"invoice_no"`
			TotalAmount float64 `json:"total_amount"`
		} `json:"sale"`
		Items []json.RawMessage `json:"items"`
	}
	if status := doJSON(t, srv, http.MethodPost, "/sales/checkout", staff,
		map[string]any{"patient_id": patient.ID}, &receipt); status != http.StatusCreated {
		t.Fatalf("checkout: status %d", status)
	}
	if receipt.Sale.InvoiceNo == "" || receipt.Sale.TotalAmount != 20.0 || len(receipt.Items) != 1 {
		t.Errorf("receipt = %+v", receipt)
	}

	doJSON(t, srv, http.MethodGet, "/cart", staff, nil, &view)
	if len(view.Lines) != 0 {
		t.Errorf("cart after checkout has %d lines, want 0", len(view.Lines))
	}

	var history []struct {
		InvoiceNo   string `json:"invoice_no"`
		PatientName string `json:"patient_name"`
	}
	if status := doJSON(t, srv, http.MethodGet, "/sales", staff, nil, &history); status != http.StatusOK {
		t.Fatalf("history: status %d", status)
	}
	if len(history) != 1 || history[0].InvoiceNo != receipt.Sale.InvoiceNo {
		t.Errorf("history = %+v", history)
	}

	path := fmt.Sprintf("/patients/%d/history", patient.ID)
	var patientHist struct {
		Sales []json.RawMessage `json:"sales"`
	}
	if status := doJSON(t, srv, http.MethodGet, path, staff, nil, &patientHist); status != http.StatusOK {
		t.Fatalf("patient history: status %d", status)
	}
	if len(patientHist.Sales) != 1 {
		t.Errorf("patient history rows = %d, want 1", len(patientHist.Sales))
	}
}

func TestCheckoutConflictLeavesCart(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "admin", "admin123")

	doJSON(t, srv, http.MethodPost, "/medicines", manager,
		map[string]any{"name": "Seclo", "type": "Capsule", "expiry_date": "2030-01-01", "price": 6.0, "quantity": 5}, nil)

	line := map[string]any{"name": "Seclo", "type": "Capsule", "quantity": 10, "prescription": "1*2*5"}
	if status := doJSON(t, srv, http.MethodPost, "/cart/lines", manager, line, nil); status != http.StatusConflict {
		t.Errorf("overdraw cart line: status %d, want 409", status)
	}

	if status := doJSON(t, srv, http.MethodPost, "/sales/checkout", manager,
		map[string]any{"patient_id": 1}, nil); status != http.StatusBadRequest {
		t.Errorf("empty cart checkout: status %d, want 400", status)
	}
}

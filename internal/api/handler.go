// Package api is the HTTP boundary: it wires the services together, owns
// the session tokens and role gates, and maps service errors to statuses.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/cart"
	"pharmadesk/m/internal/inventory"
	"pharmadesk/m/internal/patients"
	"pharmadesk/m/internal/prescription"
	"pharmadesk/m/internal/reports"
	"pharmadesk/m/internal/sales"
	"pharmadesk/m/internal/stock"
	"pharmadesk/m/internal/users"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	secret    string
	ledger    *stock.Ledger
	inventory *inventory.Service
	patients  *patients.Service
	sales     *sales.Service
	reports   *reports.Service
	users     *users.Service
	carts     *cartStore
}

// New constructs a Handler with all services over one database.
func New(db *sqlx.DB, secret string) *Handler {
	ledger := stock.NewLedger(db)
	return &Handler{
		secret:    secret,
		ledger:    ledger,
		inventory: inventory.New(db),
		patients:  patients.New(db),
		sales:     sales.New(db),
		reports:   reports.New(db),
		users:     users.New(db),
		carts:     newCartStore(ledger),
	}
}

// Router wires up the HTTP API. Staff reach sales, cart, patients and
// medicine browsing; managers additionally administer inventory, alerts,
// reports and accounts.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicineGroups)
			r.Get("/batches", h.listBatches)
			r.With(h.requireManager).Post("/", h.addBatch)
			r.With(h.requireManager).Put("/{id}", h.updateBatch)
			r.With(h.requireManager).Delete("/{id}", h.deleteBatch)
			r.With(h.requireManager).Post("/{id}/stock", h.addStock)
			r.With(h.requireManager).Get("/alerts", h.alerts)
		})

		pr.Route("/patients", func(r chi.Router) {
			r.Post("/", h.createPatient)
			r.Get("/", h.listPatients)
			r.Put("/{id}", h.updatePatient)
			r.Delete("/{id}", h.deletePatient)
			r.Get("/{id}/history", h.patientHistory)
		})

		pr.Route("/cart", func(r chi.Router) {
			r.Get("/", h.viewCart)
			r.Post("/lines", h.addCartLine)
			r.Delete("/lines/{index}", h.removeCartLine)
			r.Delete("/", h.clearCart)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Post("/checkout", h.checkout)
			r.Get("/", h.salesHistory)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Use(h.requireManager)
			r.Get("/sales", h.salesReport)
			r.Get("/sales/export", h.exportSalesReport)
		})

		pr.Route("/users", func(r chi.Router) {
			r.Use(h.requireManager)
			r.Post("/", h.createUser)
			r.Get("/", h.listUsers)
			r.Put("/{id}", h.updateUser)
			r.Delete("/{id}", h.deleteUser)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError translates service errors into HTTP statuses:
// validation 400, missing references 404, stock conflicts 409, everything
// else 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var insufficient stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		respondError(w, http.StatusConflict, insufficient.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrUnknownMedicine),
		errors.Is(err, prescription.ErrInvalidFormat),
		errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, inventory.ErrNameRequired),
		errors.Is(err, inventory.ErrInvalidPrice),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrBadExpiryDate),
		errors.Is(err, inventory.ErrExpired),
		errors.Is(err, patients.ErrNameRequired),
		errors.Is(err, patients.ErrInvalidAge),
		errors.Is(err, reports.ErrBadDateRange),
		errors.Is(err, users.ErrUsernameRequired),
		errors.Is(err, users.ErrPasswordRequired),
		errors.Is(err, users.ErrInvalidRole),
		errors.Is(err, users.ErrManagerUndeletable):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrUsernameTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sales.ErrUnknownPatient),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, patients.ErrNotFound),
		errors.Is(err, users.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if roleFromContext(r) != domain.RoleManager {
			respondError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

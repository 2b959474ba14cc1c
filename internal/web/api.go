package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/booking"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/internal/query"
	"github.com/wolfman30/homecare-booking/internal/views"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

const maxBookingBody = 16 << 10

// API is the JSON mirror of the pages for script clients. It shares the
// visitor session with the HTML site.
type API struct {
	queries  *query.Queries
	workflow *booking.Workflow
	identity *identity.Manager
	logger   *logging.Logger
}

func NewAPI(deps Deps) *API {
	deps = deps.withDefaults()
	return &API{queries: deps.Queries, workflow: deps.Workflow, identity: deps.Identity, logger: deps.Logger}
}

type errorResponse struct {
	Error  string              `json:"error,omitempty"`
	Errors booking.FieldErrors `json:"errors,omitempty"`
}

type servicesResponse struct {
	Services []backend.Service `json:"services"`
	Summary  string            `json:"summary"`
}

func (a *API) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := a.queries.Services(r.Context())
	if err != nil {
		a.logger.Warn("api: load services failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msgServicesFailed})
		return
	}
	filtered := views.FilterServices(services, r.URL.Query().Get("q"), r.URL.Query().Get("locality"))
	writeJSON(w, http.StatusOK, servicesResponse{Services: filtered, Summary: views.ResultSummary(len(filtered))})
}

func (a *API) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := a.queries.Service(r.Context(), chi.URLParam(r, "serviceID"))
	switch {
	case err == nil && service != nil:
		writeJSON(w, http.StatusOK, service)
	case err == nil || errors.Is(err, backend.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "service not found"})
	default:
		a.logger.Warn("api: load service failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msgServiceFailed})
	}
}

type bookingView struct {
	backend.BookingRequest
	Category        string `json:"category"`
	AwaitingContact bool   `json:"awaitingContact"`
}

type bookingsResponse struct {
	Bookings []bookingView `json:"bookings"`
}

func (a *API) ListBookings(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.identity.CurrentIdentity(sessionFrom(r))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "login required"})
		return
	}
	bookings, err := a.queries.UserBookings(r.Context(), principal)
	if err != nil {
		a.logger.Warn("api: load bookings failed", "principal", principal, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msgBookingsFailed})
		return
	}
	out := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingView{
			BookingRequest:  b,
			Category:        views.StatusCategory(b.Status),
			AwaitingContact: views.AwaitingContact(b.Status),
		})
	}
	writeJSON(w, http.StatusOK, bookingsResponse{Bookings: out})
}

type createBookingResponse struct {
	Confirmation *booking.Confirmation `json:"confirmation"`
}

func (a *API) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var form booking.Form
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookingBody)).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out := a.workflow.Submit(r.Context(), form, a.identity.Caller(sessionFrom(r)))
	switch {
	case len(out.Errors) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: out.Errors})
	case out.LoginRequired:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "login required"})
	case out.State == booking.StateSucceeded:
		writeJSON(w, http.StatusCreated, createBookingResponse{Confirmation: out.Confirmation})
	default:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: out.Banner})
	}
}

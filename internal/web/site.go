package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/booking"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/internal/query"
	"github.com/wolfman30/homecare-booking/internal/views"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

const (
	msgServicesFailed = "Failed to load services. Please try again later."
	msgNoServices     = "No services found matching your criteria."
	msgServiceFailed  = "Failed to load service details. Please try again later."
	msgBookingsFailed = "Failed to load your bookings. Please try again later."
	msgLoginFailed    = "Sign-in is temporarily unavailable. Please try again later."
)

// Site renders the HTML pages.
type Site struct {
	queries  *query.Queries
	workflow *booking.Workflow
	identity *identity.Manager
	logger   *logging.Logger
	pages    map[string]*template.Template
}

func NewSite(deps Deps) (*Site, error) {
	deps = deps.withDefaults()
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Site{
		queries:  deps.Queries,
		workflow: deps.Workflow,
		identity: deps.Identity,
		logger:   deps.Logger,
		pages:    pages,
	}, nil
}

func (s *Site) Home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", "Quality Healthcare at Your Doorstep", nil)
}

type servicesData struct {
	Term          string
	Locality      string
	Localities    []string
	Services      []backend.Service
	FiltersActive bool
	Summary       string
	Banner        string
	EmptyMessage  string
}

func (s *Site) Services(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	locality := r.URL.Query().Get("locality")
	if locality == "" {
		locality = views.AllAreas
	}

	data := servicesData{
		Term:          term,
		Locality:      locality,
		Localities:    views.CatalogLocalities,
		FiltersActive: views.FiltersActive(term, locality),
	}

	status := http.StatusOK
	services, err := s.queries.Services(r.Context())
	if err != nil {
		s.logger.Warn("load services failed", "error", err)
		data.Banner = msgServicesFailed
		status = http.StatusBadGateway
	} else {
		data.Services = views.FilterServices(services, term, locality)
		data.Summary = views.ResultSummary(len(data.Services))
		if len(data.Services) == 0 {
			data.EmptyMessage = msgNoServices
		}
	}
	s.render(w, r, status, "services", "Our Services", data)
}

type serviceData struct {
	Service       *backend.Service
	CoverageAreas []string
}

func (s *Site) ServiceDetail(w http.ResponseWriter, r *http.Request) {
	service, err := s.queries.Service(r.Context(), chi.URLParam(r, "serviceID"))
	switch {
	case err == nil && service != nil:
		s.render(w, r, http.StatusOK, "service", service.Name, serviceData{Service: service, CoverageAreas: views.CoverageAreas})
	case err == nil || errors.Is(err, backend.ErrNotFound):
		s.NotFound(w, r)
	default:
		s.logger.Warn("load service failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, msgServiceFailed)
	}
}

type bookingData struct {
	Service       *backend.Service
	Form          booking.Form
	Errors        booking.FieldErrors
	Banner        string
	Localities    []string
	City          string
	Authenticated bool
}

func (s *Site) BookingForm(w http.ResponseWriter, r *http.Request) {
	serviceID := strings.TrimSpace(r.URL.Query().Get("serviceId"))
	if serviceID == "" {
		http.Redirect(w, r, "/services", http.StatusFound)
		return
	}

	service, ok := s.lookupService(w, r, serviceID)
	if !ok {
		return
	}

	sess := sessionFrom(r)
	form := booking.Form{ServiceID: serviceID}
	if draft, err := s.identity.TakeDraft(r.Context(), sess); err != nil {
		s.logger.Warn("restore booking draft failed", "error", err)
	} else if draft != nil && draft[booking.FieldServiceID] == serviceID {
		form = booking.FormFromValues(draft)
	}

	s.renderBooking(w, r, http.StatusOK, service, bookingData{Form: form})
}

func (s *Site) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r.PostForm)
	if strings.TrimSpace(form.ServiceID) == "" {
		http.Redirect(w, r, "/services", http.StatusSeeOther)
		return
	}

	// Nothing reaches the backend before the workflow has validated the form.
	sess := sessionFrom(r)
	out := s.workflow.Submit(r.Context(), form, s.identity.Caller(sess))
	switch {
	case len(out.Errors) > 0:
		s.renderBooking(w, r, http.StatusUnprocessableEntity, nil, bookingData{Form: form, Errors: out.Errors})
	case out.LoginRequired:
		if err := s.identity.SaveDraft(r.Context(), sess, form.Values()); err != nil {
			s.logger.Warn("save booking draft failed", "error", err)
		}
		returnTo := "/booking?serviceId=" + url.QueryEscape(form.ServiceID)
		http.Redirect(w, r, "/login?return="+url.QueryEscape(returnTo), http.StatusSeeOther)
	case out.State == booking.StateSucceeded:
		if service, err := s.queries.Service(r.Context(), form.ServiceID); err == nil && service != nil {
			out.Confirmation.ServiceName = service.Name
		}
		s.render(w, r, http.StatusOK, "confirmation", "Booking Request Submitted", out.Confirmation)
	default:
		service, ok := s.lookupService(w, r, form.ServiceID)
		if !ok {
			return
		}
		s.renderBooking(w, r, http.StatusBadGateway, service, bookingData{Form: form, Banner: out.Banner})
	}
}

// lookupService loads the service being booked. Not-found ends the request;
// a backend failure still lets the visitor fill in the form.
func (s *Site) lookupService(w http.ResponseWriter, r *http.Request, serviceID string) (*backend.Service, bool) {
	service, err := s.queries.Service(r.Context(), serviceID)
	if errors.Is(err, backend.ErrNotFound) {
		s.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.logger.Warn("load service for booking failed", "service_id", serviceID, "error", err)
	}
	return service, true
}

func (s *Site) renderBooking(w http.ResponseWriter, r *http.Request, status int, service *backend.Service, data bookingData) {
	data.Service = service
	data.Localities = booking.Localities
	data.City = s.workflow.City()
	data.Authenticated = s.identity.IsAuthenticated(sessionFrom(r))
	s.render(w, r, status, "booking", "Book Service", data)
}

type myBookingsData struct {
	LoginRequired bool
	Bookings      []backend.BookingRequest
	Banner        string
}

func (s *Site) MyBookings(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.identity.CurrentIdentity(sessionFrom(r))
	if !ok {
		s.render(w, r, http.StatusOK, "my_bookings", "My Bookings", myBookingsData{LoginRequired: true})
		return
	}

	bookings, err := s.queries.UserBookings(r.Context(), principal)
	if err != nil {
		s.logger.Warn("load bookings failed", "principal", principal, "error", err)
		s.render(w, r, http.StatusBadGateway, "my_bookings", "My Bookings", myBookingsData{Banner: msgBookingsFailed})
		return
	}
	s.render(w, r, http.StatusOK, "my_bookings", "My Bookings", myBookingsData{Bookings: bookings})
}

func (s *Site) Login(w http.ResponseWriter, r *http.Request) {
	target, err := s.identity.BeginLogin(r.Context(), sessionFrom(r), r.URL.Query().Get("return"))
	if err != nil {
		s.logger.Error("begin login failed", "error", err)
		s.renderError(w, r, http.StatusServiceUnavailable, msgLoginFailed)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Site) AuthCallback(w http.ResponseWriter, r *http.Request) {
	returnTo, err := s.identity.CompleteLogin(r.Context(), sessionFrom(r), r.URL.Query())
	if err != nil {
		s.logger.Warn("login not completed", "error", err)
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func (s *Site) Logout(w http.ResponseWriter, r *http.Request) {
	if err := s.identity.Logout(r.Context(), sessionFrom(r)); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found", "Not Found", nil)
}

func (s *Site) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", "Something went wrong", message)
}

func formFromRequest(v url.Values) booking.Form {
	return booking.Form{
		ServiceID:     v.Get(booking.FieldServiceID),
		PatientName:   v.Get(booking.FieldPatientName),
		Phone:         v.Get(booking.FieldPhone),
		Locality:      v.Get(booking.FieldLocality),
		Address:       v.Get(booking.FieldAddress),
		PreferredDate: v.Get(booking.FieldPreferredDate),
		PreferredTime: v.Get(booking.FieldPreferredTime),
		Notes:         v.Get(booking.FieldNotes),
	}
}

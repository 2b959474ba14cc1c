package demo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

// Backend is an in-memory stand-in for the booking backend. It speaks the
// same RPC wire format so the site can run without the real service.
type Backend struct {
	mu            sync.Mutex
	services      []backend.Service
	bookings      []backend.BookingRequest
	nextServiceID backend.ServiceID
	nextBookingID backend.BookingID

	verifier identity.Verifier
	logger   *logging.Logger
}

// NewBackend creates an empty stand-in. requestBooking resolves callers
// through verifier.
func NewBackend(verifier identity.Verifier, logger *logging.Logger) *Backend {
	if logger == nil {
		logger = logging.Default()
	}
	return &Backend{nextServiceID: 1, nextBookingID: 1, verifier: verifier, logger: logger}
}

// DefaultCatalog is the catalog a fresh development backend starts with.
var DefaultCatalog = []backend.Service{
	{Name: "Nursing Care", Description: "Skilled nurses for wound dressing, injections, catheter care and post-operative recovery at home.", PricePerVisit: 1200},
	{Name: "Physiotherapy", Description: "Guided exercise and mobility sessions for stroke, orthopaedic and post-surgery rehabilitation.", PricePerVisit: 900},
	{Name: "Elder Care", Description: "Compassionate daily assistance, companionship and health monitoring for seniors.", PricePerVisit: 800},
	{Name: "Doctor Home Visit", Description: "General physician consultation at your doorstep, including basic examination and prescriptions.", PricePerVisit: 1500},
	{Name: "Lab Sample Collection", Description: "Blood and urine sample collection at home with reports shared online.", PricePerVisit: 300},
	{Name: "Palliative Care", Description: "Comfort-focused care and pain management for patients with serious illness.", PricePerVisit: 1800},
}

// Seed adds the default catalog.
func (b *Backend) Seed() {
	for _, s := range DefaultCatalog {
		b.AddService(s.Name, s.Description, s.PricePerVisit)
	}
}

// AddService appends a service and returns it with its assigned id.
func (b *Backend) AddService(name, description string, pricePerVisit uint64) backend.Service {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := backend.Service{ID: b.nextServiceID, Name: name, Description: description, PricePerVisit: pricePerVisit}
	b.nextServiceID++
	b.services = append(b.services, s)
	return s
}

// Bookings returns a snapshot of every booking.
func (b *Backend) Bookings() []backend.BookingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.BookingRequest{}, b.bookings...)
}

// SetStatus changes a booking's status, standing in for the provider's
// back-office confirming a visit.
func (b *Backend) SetStatus(id backend.BookingID, status string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bookings {
		if b.bookings[i].ID == id {
			b.bookings[i].Status = status
			return true
		}
	}
	return false
}

func (b *Backend) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/rpc/{method}", b.handleRPC)
	return r
}

type rpcError struct {
	status int
	code   string
	msg    string
}

func (e *rpcError) Error() string { return e.msg }

func errInvalid(format string, args ...any) *rpcError {
	return &rpcError{status: http.StatusBadRequest, code: backend.CodeInvalidArgument, msg: fmt.Sprintf(format, args...)}
}

func (b *Backend) handleRPC(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")
	result, err := b.dispatch(r, method)
	if err != nil {
		var rpcErr *rpcError
		if !errors.As(err, &rpcErr) {
			rpcErr = &rpcError{status: http.StatusInternalServerError, code: backend.CodeInternal, msg: err.Error()}
		}
		b.logger.Debug("demo rpc rejected", "method", method, "code", rpcErr.code, "error", rpcErr.msg)
		writeEnvelope(w, rpcErr.status, backend.Envelope{Error: &backend.WireError{Code: rpcErr.code, Message: rpcErr.msg}})
		return
	}

	var ok json.RawMessage
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			writeEnvelope(w, http.StatusInternalServerError, backend.Envelope{Error: &backend.WireError{Code: backend.CodeInternal, Message: err.Error()}})
			return
		}
		ok = data
	}
	writeEnvelope(w, http.StatusOK, backend.Envelope{OK: ok})
}

func (b *Backend) dispatch(r *http.Request, method string) (any, error) {
	switch method {
	case backend.MethodGetServices:
		b.mu.Lock()
		defer b.mu.Unlock()
		return append([]backend.Service{}, b.services...), nil

	case backend.MethodGetService:
		var args backend.GetServiceArgs
		if err := decodeArgs(r, &args); err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.findServiceLocked(args.ServiceID); ok {
			return s, nil
		}
		return nil, &rpcError{status: http.StatusNotFound, code: backend.CodeNotFound, msg: fmt.Sprintf("service %d not found", args.ServiceID)}

	case backend.MethodGetUserBookings:
		var args backend.GetUserBookingsArgs
		if err := decodeArgs(r, &args); err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []backend.BookingRequest{}
		for _, bk := range b.bookings {
			if bk.User == args.User {
				out = append(out, bk)
			}
		}
		return out, nil

	case backend.MethodRequestBooking:
		principal, err := b.authenticate(r)
		if err != nil {
			return nil, err
		}
		var args backend.BookingInput
		if err := decodeArgs(r, &args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.Address) == "" {
			return nil, errInvalid("address is required")
		}
		if strings.TrimSpace(args.RequestedDate) == "" {
			return nil, errInvalid("requested date is required")
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.findServiceLocked(args.ServiceID); !ok {
			return nil, errInvalid("service %d does not exist", args.ServiceID)
		}
		bk := backend.BookingRequest{
			ID:            b.nextBookingID,
			User:          principal,
			ServiceID:     args.ServiceID,
			Address:       args.Address,
			RequestedDate: args.RequestedDate,
			Status:        backend.StatusPending,
		}
		b.nextBookingID++
		b.bookings = append(b.bookings, bk)
		b.logger.Info("demo booking created", "booking_id", bk.ID, "service_id", bk.ServiceID, "principal", principal)
		return nil, nil

	case backend.MethodAddService:
		var args backend.AddServiceArgs
		if err := decodeArgs(r, &args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.Name) == "" {
			return nil, errInvalid("name is required")
		}
		b.AddService(args.Name, args.Description, args.PricePerVisit)
		return nil, nil

	case backend.MethodGetAllBookings:
		return b.Bookings(), nil

	default:
		return nil, &rpcError{status: http.StatusNotFound, code: backend.CodeNotFound, msg: "unknown method " + method}
	}
}

func (b *Backend) findServiceLocked(id backend.ServiceID) (backend.Service, bool) {
	for _, s := range b.services {
		if s.ID == id {
			return s, true
		}
	}
	return backend.Service{}, false
}

func (b *Backend) authenticate(r *http.Request) (backend.Principal, error) {
	unauth := &rpcError{status: http.StatusUnauthorized, code: backend.CodeUnauthenticated, msg: "caller identity required"}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || b.verifier == nil {
		return "", unauth
	}
	principal, err := b.verifier.Verify(r.Context(), strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		unauth.msg = err.Error()
		return "", unauth
	}
	return principal, nil
}

func decodeArgs(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalid("malformed arguments: %v", err)
	}
	return nil
}

func writeEnvelope(w http.ResponseWriter, status int, env backend.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

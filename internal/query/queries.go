package query

import (
	"context"
	"strings"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

// Cache families.
const (
	FamilyServices = "services"
	FamilyService  = "service"
	FamilyBookings = "bookings"
)

// Backend is the subset of the RPC client the queries depend on.
type Backend interface {
	ListServices(ctx context.Context) ([]backend.Service, error)
	GetService(ctx context.Context, id backend.ServiceID) (*backend.Service, error)
	ListUserBookings(ctx context.Context, principal backend.Principal) ([]backend.BookingRequest, error)
	SubmitBooking(ctx context.Context, caller *backend.Caller, input backend.BookingInput) error
}

// Queries exposes the site's reads and the booking mutation through the cache.
type Queries struct {
	client Backend
	cache  *Cache
	logger *logging.Logger
}

// NewQueries binds a cache to a backend client. A nil client disables every read.
func NewQueries(client Backend, cache *Cache, logger *logging.Logger) *Queries {
	if cache == nil {
		cache = NewCache(nil, nil, logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Queries{client: client, cache: cache, logger: logger}
}

// Services lists the catalog.
func (q *Queries) Services(ctx context.Context) ([]backend.Service, error) {
	return Fetch(ctx, q.cache, Key{Family: FamilyServices}, q.client != nil,
		func(ctx context.Context) ([]backend.Service, error) {
			return q.client.ListServices(ctx)
		})
}

// Service loads one service by its path parameter. An empty idParam
// yields (nil, nil); a malformed one is reported as not found.
func (q *Queries) Service(ctx context.Context, idParam string) (*backend.Service, error) {
	idParam = strings.TrimSpace(idParam)
	enabled := q.client != nil && idParam != ""
	if enabled {
		if _, err := backend.ParseServiceID(idParam); err != nil {
			return nil, &backend.Error{Op: backend.MethodGetService, Kind: backend.ErrNotFound, Message: "malformed service id " + idParam}
		}
	}
	return Fetch(ctx, q.cache, Key{Family: FamilyService, Param: idParam}, enabled,
		func(ctx context.Context) (*backend.Service, error) {
			id, _ := backend.ParseServiceID(idParam)
			return q.client.GetService(ctx, id)
		})
}

// UserBookings lists the bookings owned by principal. An empty principal
// yields no bookings and no remote call.
func (q *Queries) UserBookings(ctx context.Context, principal backend.Principal) ([]backend.BookingRequest, error) {
	enabled := q.client != nil && principal != ""
	return Fetch(ctx, q.cache, Key{Family: FamilyBookings, Param: string(principal)}, enabled,
		func(ctx context.Context) ([]backend.BookingRequest, error) {
			return q.client.ListUserBookings(ctx, principal)
		})
}

// RequestBooking submits a booking and, once it succeeds, invalidates every
// cached bookings read so the new request shows up on the next load.
func (q *Queries) RequestBooking(ctx context.Context, caller *backend.Caller, input backend.BookingInput) error {
	if q.client == nil {
		return &backend.Error{Op: backend.MethodRequestBooking, Kind: backend.ErrTransport, Message: "backend not configured"}
	}
	if err := q.client.SubmitBooking(ctx, caller, input); err != nil {
		return err
	}
	// The booking exists now; reporting a cache failure would invite a duplicate retry.
	if err := q.cache.Invalidate(context.WithoutCancel(ctx), FamilyBookings); err != nil {
		q.logger.Error("bookings invalidation failed after successful booking", "error", err)
	}
	return nil
}

// Package backend is the typed client for the booking backend's RPC surface.
package backend

import "strconv"

// ServiceID identifies a Service; assigned by the backend.
type ServiceID uint64

// String renders the id the way it appears in URLs.
func (id ServiceID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseServiceID parses a decimal service id taken from a URL or form field.
func ParseServiceID(raw string) (ServiceID, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return ServiceID(v), nil
}

// BookingID identifies a BookingRequest; assigned by the backend.
type BookingID uint64

func (id BookingID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Principal is an externally issued identity.
type Principal string

func (p Principal) String() string { return string(p) }

// Service represents a bookable home healthcare service.
type Service struct {
	ID            ServiceID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PricePerVisit uint64    `json:"pricePerVisit"`
}

// Booking statuses the site knows how to present. The backend may return others.
const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
)

// BookingRequest is a booking owned by one principal for one service.
type BookingRequest struct {
	ID            BookingID `json:"id"`
	User          Principal `json:"user"`
	ServiceID     ServiceID `json:"serviceId"`
	Address       string    `json:"address"`
	RequestedDate string    `json:"requestedDate"`
	Status        string    `json:"status"`
}

// BookingInput carries the arguments of a booking request.
type BookingInput struct {
	ServiceID     ServiceID `json:"serviceId"`
	Address       string    `json:"address"`
	RequestedDate string    `json:"requestedDate"`
}

// Caller is the authenticated identity attached to a write call.
type Caller struct {
	Principal Principal
	Token     string
}

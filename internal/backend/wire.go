package backend

import "encoding/json"

// RPC method names on the backend.
const (
	MethodGetServices     = "getServices"
	MethodGetService      = "getService"
	MethodGetUserBookings = "getUserBookings"
	MethodRequestBooking  = "requestBooking"
	MethodAddService      = "addService"
	MethodGetAllBookings  = "getAllBookings"
)

// Error codes carried in the error envelope.
const (
	CodeNotFound        = "not_found"
	CodeInvalidArgument = "invalid_argument"
	CodeUnauthenticated = "unauthenticated"
	CodeInternal        = "internal"
)

// Envelope is the body of every RPC response.
type Envelope struct {
	OK    json.RawMessage `json:"ok,omitempty"`
	Error *WireError      `json:"error,omitempty"`
}

// WireError is the error half of an Envelope.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetServiceArgs are the arguments of getService.
type GetServiceArgs struct {
	ServiceID ServiceID `json:"serviceId"`
}

// GetUserBookingsArgs are the arguments of getUserBookings.
type GetUserBookingsArgs struct {
	User Principal `json:"user"`
}

// AddServiceArgs are the arguments of the admin-path addService call.
type AddServiceArgs struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PricePerVisit uint64 `json:"pricePerVisit"`
}

// RPCPath returns the HTTP path of an RPC method.
func RPCPath(method string) string {
	return "/rpc/" + method
}

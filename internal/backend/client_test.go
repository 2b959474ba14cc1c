package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/homecare-booking/internal/observability/metrics"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, time.Second, metrics.NewBackendMetrics(prometheus.NewRegistry()), logging.New("error"))
}

func writeOK(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Envelope{OK: data})
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: &WireError{Code: code, Message: message}})
}

func TestClient_ListServices_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rpc/getServices", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeOK(t, w, []Service{
			{ID: 1, Name: "Nursing Care", Description: "Skilled nursing at home", PricePerVisit: 1200},
			{ID: 2, Name: "Physiotherapy", Description: "Mobility sessions", PricePerVisit: 900},
		})
	})

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, ServiceID(1), services[0].ID)
	assert.Equal(t, uint64(900), services[1].PricePerVisit)
}

func TestClient_ListServices_EmptyIsNonNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":null}`))
	})

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, services)
	assert.Empty(t, services)
}

func TestClient_GetService_SendsID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var args GetServiceArgs
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, ServiceID(42), args.ServiceID)
		writeOK(t, w, Service{ID: 42, Name: "Elder Care"})
	})

	service, err := client.GetService(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Elder Care", service.Name)
}

func TestClient_GetService_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, CodeNotFound, "service 9 does not exist")
	})

	_, err := client.GetService(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, MethodGetService, rpcErr.Op)
	assert.Equal(t, http.StatusNotFound, rpcErr.Status)
	assert.Equal(t, "service 9 does not exist", rpcErr.Message)
}

func TestClient_ListUserBookings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var args GetUserBookingsArgs
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, Principal("aaaaa-aa"), args.User)
		writeOK(t, w, []BookingRequest{{ID: 3, User: "aaaaa-aa", ServiceID: 1, Status: StatusPending}})
	})

	bookings, err := client.ListUserBookings(context.Background(), "aaaaa-aa")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, StatusPending, bookings[0].Status)
}

func TestClient_SubmitBooking_SendsPayloadAndToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc/requestBooking", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"serviceId":1,"address":"12 Main St, Adyar, Chennai","requestedDate":"2025-06-01 10:00"}`, string(body))
		_, _ = w.Write([]byte(`{"ok":null}`))
	})

	err := client.SubmitBooking(context.Background(), &Caller{Principal: "aaaaa-aa", Token: "tok-123"}, BookingInput{
		ServiceID:     1,
		Address:       "12 Main St, Adyar, Chennai",
		RequestedDate: "2025-06-01 10:00",
	})
	require.NoError(t, err)
}

func TestClient_SubmitBooking_WithoutCallerNeverCallsBackend(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := client.SubmitBooking(context.Background(), nil, BookingInput{ServiceID: 1})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	assert.False(t, called)
}

func TestClient_SubmitBooking_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"validation code", http.StatusBadRequest, CodeInvalidArgument, ErrValidation},
		{"unprocessable without code", http.StatusUnprocessableEntity, "", ErrValidation},
		{"unauthenticated", http.StatusUnauthorized, CodeUnauthenticated, ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, "", ErrUnauthenticated},
		{"server error", http.StatusInternalServerError, CodeInternal, ErrTransport},
		{"bad gateway", http.StatusBadGateway, "", ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.code == "" {
					http.Error(w, "upstream failed", tt.status)
					return
				}
				writeErr(w, tt.status, tt.code, "nope")
			})
			err := client.SubmitBooking(context.Background(), &Caller{Principal: "p", Token: "t"}, BookingInput{ServiceID: 1})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClient_InvalidJSONIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":[`))
	})

	_, err := client.ListServices(context.Background())
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
}

func TestClient_UnreachableIsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(url, time.Second, nil, logging.New("error"))
	_, err := client.ListServices(context.Background())
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
}

func TestClient_MissingBaseURLIsTransportError(t *testing.T) {
	client := NewClient("  ", 0, nil, nil)
	_, err := client.GetService(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"ok":[]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListServices(ctx)
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
}

func TestParseServiceID(t *testing.T) {
	id, err := ParseServiceID("17")
	require.NoError(t, err)
	assert.Equal(t, ServiceID(17), id)
	assert.Equal(t, "17", id.String())

	_, err = ParseServiceID("abc")
	assert.Error(t, err)
	_, err = ParseServiceID("-1")
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: MethodGetService, Kind: ErrNotFound, Status: 404, Message: "missing"}
	assert.Equal(t, "backend: getService: not found (status 404): missing", err.Error())
}

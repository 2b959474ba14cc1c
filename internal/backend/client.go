package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/homecare-booking/internal/observability/metrics"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

const defaultTimeout = 10 * time.Second

var backendTracer = otel.Tracer("homecare.internal.backend")

// Client is a typed proxy for the booking backend's RPC surface.
// Every method is a single round trip; failures are never retried here.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *metrics.BackendMetrics
	logger     *logging.Logger
}

// NewClient constructs a backend client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration, m *metrics.BackendMetrics, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		metrics:    m,
		logger:     logger,
	}
}

// ListServices returns every service in backend order.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.call(ctx, MethodGetServices, nil, struct{}{}, &services); err != nil {
		return nil, err
	}
	if services == nil {
		services = []Service{}
	}
	return services, nil
}

// GetService returns one service or an error wrapping ErrNotFound.
func (c *Client) GetService(ctx context.Context, id ServiceID) (*Service, error) {
	var service Service
	if err := c.call(ctx, MethodGetService, nil, GetServiceArgs{ServiceID: id}, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// ListUserBookings returns the bookings owned by principal.
func (c *Client) ListUserBookings(ctx context.Context, principal Principal) ([]BookingRequest, error) {
	var bookings []BookingRequest
	if err := c.call(ctx, MethodGetUserBookings, nil, GetUserBookingsArgs{User: principal}, &bookings); err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []BookingRequest{}
	}
	return bookings, nil
}

// SubmitBooking asks the backend to create a booking owned by caller.
func (c *Client) SubmitBooking(ctx context.Context, caller *Caller, input BookingInput) error {
	if caller == nil || strings.TrimSpace(caller.Token) == "" {
		err := &Error{Op: MethodRequestBooking, Kind: ErrUnauthenticated, Message: "no identity attached"}
		c.metrics.ObserveCall(MethodRequestBooking, outcomeLabel(err), 0)
		return err
	}
	return c.call(ctx, MethodRequestBooking, caller, input, nil)
}

func (c *Client) call(ctx context.Context, method string, caller *Caller, args any, out any) (err error) {
	ctx, span := backendTracer.Start(ctx, "backend."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("homecare.rpc.method", method))

	start := time.Now()
	defer func() {
		c.metrics.ObserveCall(method, outcomeLabel(err), time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
		}
	}()

	if c.baseURL == "" {
		return &Error{Op: method, Kind: ErrTransport, Message: "backend url not configured"}
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return &Error{Op: method, Kind: ErrTransport, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RPCPath(method), bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: method, Kind: ErrTransport, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+caller.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: method, Kind: ErrTransport, Message: fmt.Sprintf("http request: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: method, Kind: ErrTransport, Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	var env Envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := truncate(string(body), 300)
		code := ""
		if decodeErr == nil && env.Error != nil {
			code = env.Error.Code
			msg = env.Error.Message
		}
		c.logger.Warn("backend RPC non-2xx response", "status", resp.StatusCode, "method", method, "code", code, "body", truncate(string(body), 300))
		return &Error{Op: method, Kind: kindFor(code, resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return &Error{Op: method, Kind: ErrTransport, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", decodeErr)}
	}
	if env.Error != nil {
		return &Error{Op: method, Kind: kindFor(env.Error.Code, 0), Status: resp.StatusCode, Message: env.Error.Message}
	}
	if out == nil || len(env.OK) == 0 || string(env.OK) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.OK, out); err != nil {
		return &Error{Op: method, Kind: ErrTransport, Status: resp.StatusCode, Message: fmt.Sprintf("decode result: %v", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

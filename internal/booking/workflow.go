package booking

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/observability/metrics"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("homecare.internal.booking")

// State is a step of the booking form lifecycle.
type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

const (
	BannerUnreachable = "We couldn't reach the booking service. Please try again."
	BannerFailed      = "Failed to submit booking request. Please try again."
)

// Submitter sends a composed booking to the backend.
type Submitter interface {
	RequestBooking(ctx context.Context, caller *backend.Caller, input backend.BookingInput) error
}

// Confirmation is what the visitor sees after a successful request.
type Confirmation struct {
	ServiceID     backend.ServiceID `json:"serviceId"`
	ServiceName   string            `json:"serviceName,omitempty"`
	PatientName   string            `json:"patientName"`
	Locality      string            `json:"locality"`
	City          string            `json:"city"`
	PreferredDate string            `json:"preferredDate"`
	PreferredTime string            `json:"preferredTime"`
	Address       string            `json:"address"`
	RequestedDate string            `json:"requestedDate"`
}

// Outcome is the result of one submit attempt. State is where the form ends
// up; Trace lists every state passed through, starting at editing.
type Outcome struct {
	State         State
	Errors        FieldErrors
	LoginRequired bool
	Err           error
	Banner        string
	Confirmation  *Confirmation
	Trace         []State
}

// Workflow runs the submit path of the booking form.
type Workflow struct {
	submitter Submitter
	city      string
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

func NewWorkflow(submitter Submitter, city string, m *metrics.BookingMetrics, logger *logging.Logger) *Workflow {
	if city == "" {
		city = DefaultCity
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{submitter: submitter, city: city, metrics: m, logger: logger}
}

// City is the city appended to composed addresses.
func (w *Workflow) City() string { return w.city }

// Submit validates form and, when valid and caller is authenticated, sends
// exactly one booking request. Nothing is sent for an invalid form or an
// anonymous caller.
func (w *Workflow) Submit(ctx context.Context, form Form, caller *backend.Caller) Outcome {
	out := Outcome{Trace: []State{StateEditing, StateValidating}}

	if errs := form.Validate(); len(errs) > 0 {
		out.Errors = errs
		return w.finish(out, StateEditing, "invalid")
	}
	if caller == nil {
		out.LoginRequired = true
		return w.finish(out, StateEditing, "login_required")
	}

	input, err := form.Payload(w.city)
	if err != nil {
		out.Err = err
		out.Errors = FieldErrors{FieldServiceID: "Please choose a service to book"}
		return w.finish(out, StateEditing, "invalid")
	}

	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(attribute.Int64("homecare.service_id", int64(input.ServiceID)))

	out.Trace = append(out.Trace, StateSubmitting)
	err = w.submitter.RequestBooking(ctx, caller, input)
	switch {
	case err == nil:
		out.Confirmation = &Confirmation{
			ServiceID:     input.ServiceID,
			PatientName:   form.PatientName,
			Locality:      form.Locality,
			City:          w.city,
			PreferredDate: form.PreferredDate,
			PreferredTime: form.PreferredTime,
			Address:       input.Address,
			RequestedDate: input.RequestedDate,
		}
		w.logger.Info("booking requested", "service_id", input.ServiceID, "principal", caller.Principal)
		return w.finish(out, StateSucceeded, "succeeded")
	case errors.Is(err, backend.ErrUnauthenticated):
		span.RecordError(err)
		out.Err = err
		out.LoginRequired = true
		w.logger.Warn("booking rejected, identity not accepted", "principal", caller.Principal, "error", err)
		return w.finish(out, StateEditing, "login_required")
	default:
		span.RecordError(err)
		out.Err = err
		out.Banner = BannerFailed
		if errors.Is(err, backend.ErrTransport) {
			out.Banner = BannerUnreachable
		}
		w.logger.Error("booking request failed", "service_id", input.ServiceID, "error", err)
		return w.finish(out, StateFailed, "failed")
	}
}

func (w *Workflow) finish(out Outcome, final State, outcome string) Outcome {
	out.State = final
	out.Trace = append(out.Trace, final)
	w.metrics.ObserveSubmission(outcome)
	return out
}

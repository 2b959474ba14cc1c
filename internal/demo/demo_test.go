package demo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func newStandIn(t *testing.T) (*Backend, *IdentityProvider, *backend.Client) {
	t.Helper()
	logger := logging.New("error")
	idp := NewIdentityProvider("", logger)
	b := NewBackend(identity.NewHMACVerifier(DefaultTokenSecret, "", ""), logger)
	b.Seed()
	ts := httptest.NewServer(b.Routes())
	t.Cleanup(ts.Close)
	return b, idp, backend.NewClient(ts.URL, time.Second, nil, logger)
}

func TestBackend_CatalogThroughClient(t *testing.T) {
	_, _, client := newStandIn(t)

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, len(DefaultCatalog))
	assert.Equal(t, backend.ServiceID(1), services[0].ID)

	svc, err := client.GetService(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Physiotherapy", svc.Name)

	_, err = client.GetService(context.Background(), 999)
	assert.True(t, errors.Is(err, backend.ErrNotFound))
}

func TestBackend_RequestBookingRoundTrip(t *testing.T) {
	b, idp, client := newStandIn(t)
	token, err := idp.IssueToken("aaaaa-aa", "homecare-web")
	require.NoError(t, err)
	caller := &backend.Caller{Principal: "aaaaa-aa", Token: token}

	err = client.SubmitBooking(context.Background(), caller, backend.BookingInput{
		ServiceID: 1, Address: "12 Main St, Adyar, Chennai", RequestedDate: "2025-06-01 10:00",
	})
	require.NoError(t, err)

	mine, err := client.ListUserBookings(context.Background(), "aaaaa-aa")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, backend.StatusPending, mine[0].Status)
	assert.Equal(t, backend.Principal("aaaaa-aa"), mine[0].User)

	others, err := client.ListUserBookings(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.True(t, b.SetStatus(mine[0].ID, backend.StatusConfirmed))
	mine, err = client.ListUserBookings(context.Background(), "aaaaa-aa")
	require.NoError(t, err)
	assert.Equal(t, backend.StatusConfirmed, mine[0].Status)
}

func TestBackend_RequestBookingRejections(t *testing.T) {
	_, idp, client := newStandIn(t)
	token, err := idp.IssueToken("aaaaa-aa", "")
	require.NoError(t, err)
	good := &backend.Caller{Principal: "aaaaa-aa", Token: token}

	err = client.SubmitBooking(context.Background(), &backend.Caller{Principal: "x", Token: "forged"}, backend.BookingInput{ServiceID: 1, Address: "a", RequestedDate: "d"})
	assert.True(t, errors.Is(err, backend.ErrUnauthenticated), "got %v", err)

	err = client.SubmitBooking(context.Background(), good, backend.BookingInput{ServiceID: 42, Address: "a", RequestedDate: "d"})
	assert.True(t, errors.Is(err, backend.ErrValidation), "got %v", err)

	err = client.SubmitBooking(context.Background(), good, backend.BookingInput{ServiceID: 1, Address: " ", RequestedDate: "d"})
	assert.True(t, errors.Is(err, backend.ErrValidation), "got %v", err)
}

func TestBackend_AdminCalls(t *testing.T) {
	b, _, _ := newStandIn(t)
	handler := b.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc/addService",
		strings.NewReader(`{"name":"Dialysis Support","description":"At-home dialysis assistance","pricePerVisit":2500}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc/getAllBookings", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc/deleteEverything", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdentityProvider_ContinueIssuesVerifiableToken(t *testing.T) {
	idp := NewIdentityProvider("", logging.New("error"))
	form := url.Values{
		"client_id":    {"homecare-web"},
		"redirect_uri": {"http://localhost:8080/auth/callback"},
		"state":        {"abc123"},
		"principal":    {"aaaaa-aa"},
		"action":       {"continue"},
	}
	req := httptest.NewRequest(http.MethodPost, "/authorize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	idp.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback", loc.Path)
	assert.Equal(t, "abc123", loc.Query().Get("state"))

	verifier := identity.NewHMACVerifier(DefaultTokenSecret, DefaultIssuer, "homecare-web")
	principal, err := verifier.Verify(context.Background(), loc.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, backend.Principal("aaaaa-aa"), principal)
}

func TestIdentityProvider_CancelReturnsError(t *testing.T) {
	idp := NewIdentityProvider("", logging.New("error"))
	form := url.Values{
		"redirect_uri": {"http://localhost:8080/auth/callback"},
		"state":        {"abc123"},
		"action":       {"cancel"},
	}
	req := httptest.NewRequest(http.MethodPost, "/authorize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	idp.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "access_denied", loc.Query().Get("error"))
	assert.Empty(t, loc.Query().Get("token"))
}

func TestIdentityProvider_AuthorizePage(t *testing.T) {
	idp := NewIdentityProvider("", logging.New("error"))

	rec := httptest.NewRecorder()
	idp.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/authorize?client_id=homecare-web&state=s1&redirect_uri="+url.QueryEscape("http://localhost:8080/auth/callback"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="s1"`)

	rec = httptest.NewRecorder()
	idp.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/authorize?state=s1&redirect_uri=javascript:alert(1)", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

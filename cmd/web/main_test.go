package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/homecare-booking/internal/config"
	"github.com/wolfman30/homecare-booking/internal/demo"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func TestSetupMetricsExposesRuntimeCollectors(t *testing.T) {
	reg, handler := setupMetrics()
	if reg == nil || handler == nil {
		t.Fatalf("expected non-nil registry and handler")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected go collector to be exported")
	}
}

func TestBuildHandlerServesCatalogFromBackend(t *testing.T) {
	logger := logging.New("error")
	stand := demo.NewBackend(identity.NewHMACVerifier(demo.DefaultTokenSecret, "", ""), logger)
	stand.Seed()
	ts := httptest.NewServer(stand.Routes())
	defer ts.Close()

	cfg := &appconfig.Config{
		Env:                 "development",
		BackendURL:          ts.URL,
		BackendTimeout:      time.Second,
		ServiceCity:         "Chennai",
		PublicBaseURL:       "http://localhost:8080",
		IdentityProviderURL: "http://localhost:8090/identity",
		IdentityClientID:    "homecare-web",
		SessionTTL:          time.Hour,
	}
	handler, err := buildHandler(cfg, nil, logger)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/services/3", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Elder Care") {
		t.Fatalf("expected service detail in body")
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login?return=/my-bookings", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect to provider, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "http://localhost:8090/identity/authorize?") {
		t.Fatalf("unexpected provider redirect %q", loc)
	}
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/demo"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func TestNewHandlerServesBackendAndIdentity(t *testing.T) {
	logger := logging.New("error")
	ts := httptest.NewServer(newHandler("devbackend-test-secret", logger))
	defer ts.Close()

	client := backend.NewClient(ts.URL, time.Second, nil, logger)
	services, err := client.ListServices(context.Background())
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(services) != len(demo.DefaultCatalog) {
		t.Fatalf("expected %d seeded services, got %d", len(demo.DefaultCatalog), len(services))
	}

	q := url.Values{
		"client_id":    {"homecare-web"},
		"redirect_uri": {"http://localhost:8080/auth/callback"},
		"state":        {"abc123"},
	}
	resp, err := http.Get(ts.URL + "/identity/authorize?" + q.Encode())
	if err != nil {
		t.Fatalf("authorize page: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected authorize page, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("expected html page, got %q", resp.Header.Get("Content-Type"))
	}
}

func TestGetEnvFallsBack(t *testing.T) {
	t.Setenv("DEV_BACKEND_PORT", "  ")
	if got := getEnv("DEV_BACKEND_PORT", "8090"); got != "8090" {
		t.Fatalf("expected default port, got %q", got)
	}
	t.Setenv("DEV_BACKEND_PORT", "9100")
	if got := getEnv("DEV_BACKEND_PORT", "8090"); got != "9100" {
		t.Fatalf("expected configured port, got %q", got)
	}
}

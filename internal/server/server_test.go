package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/openhours/timebank/internal/config"
	"github.com/openhours/timebank/internal/store"
	"github.com/openhours/timebank/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:        "0",
		Env:         "development",
		LogLevel:    "error",
		DatabaseURL: "injected",
		AdminSecret: "test-admin-secret",
	}
}

// newTestServer creates a server over the shared test database
func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	t.Cleanup(cleanup)

	s, err := New(testConfig(), WithDB(store.NewFromDB(db)))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/members",
		"GET:/v1/offers",
		"POST:/v1/offers",
		"POST:/v1/requests",
		"POST:/v1/requests/:id/cancel",
		"POST:/v1/bookings",
		"POST:/v1/bookings/:id/complete",
		"GET:/v1/bookings/:id",
		"POST:/v1/disputes",
		"GET:/v1/disputes/:id",
		"POST:/v1/ratings",
		"GET:/v1/bookings/:id/ratings",
		"GET:/v1/balance",
		"GET:/v1/ledger",
		"GET:/v1/escrow/:bookingId",
		"POST:/v1/admin/disputes/:id/resolve",
		"POST:/v1/admin/ledger-adjust",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Auth boundary tests
// ---------------------------------------------------------------------------

func TestMemberRoutesRequirePrincipal(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/bookings", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without X-Member-ID, got %d", w.Code)
	}
}

func TestAdminRoutesRequireSecret(t *testing.T) {
	s := newTestServer(t)

	body := `{"memberId":"mem_x","amount":"1.00","reason":"manual correction"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/ledger-adjust", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without admin secret, got %d", w.Code)
	}

	// Wrong secret is also rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/admin/ledger-adjust", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "wrong")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 with wrong admin secret, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Member registration test
// ---------------------------------------------------------------------------

func TestMemberRegistration(t *testing.T) {
	s := newTestServer(t)

	body := `{"name":"Ada","email":"ada@example.com","isProvider":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/members", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	member, ok := resp["member"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected member object in response, got %v", resp)
	}
	if member["id"] == nil || member["id"] == "" {
		t.Error("Expected member id in registration response")
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

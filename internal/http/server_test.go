package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/cart"
	"github.com/fjod/go_restaurant/internal/media"
	"github.com/fjod/go_restaurant/internal/menu"
	"github.com/fjod/go_restaurant/internal/notify"
	"github.com/fjod/go_restaurant/internal/order"
	"github.com/fjod/go_restaurant/internal/payment"
	"github.com/fjod/go_restaurant/internal/reservation"
	"github.com/fjod/go_restaurant/internal/store"
	"go.uber.org/zap"
)

const (
	testAdminPassword  = "adminpass"
	defaultTestTimeout = 5 * time.Second
)

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
	hub     *notify.Hub
	uploads string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithGateway(t, payment.NewPayPal(payment.Config{}, zap.NewNop()))
}

func newTestServerWithGateway(t *testing.T, gateway PaymentGateway) *testServer {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	st := store.NewMemoryStore()
	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := store.Seed(ctx, st, hash); err != nil {
		t.Fatalf("seed: %v", err)
	}

	hub := notify.NewHub(log)
	t.Cleanup(hub.Close)

	uploadsDir := t.TempDir()
	uploads, err := media.NewStore(uploadsDir, 1<<20)
	if err != nil {
		t.Fatalf("media store: %v", err)
	}

	authSvc := auth.NewService(st, auth.NewTokens("test-secret", time.Hour), auth.NewMemoryRevocations())
	menuSvc := menu.NewService(st, st, st, hub, log)
	orderSvc := order.NewService(st, menuSvc, hub, order.Config{Pricing: cart.DefaultPricing()}, log)
	reservationSvc := reservation.NewService(st, hub, log)
	carts := cart.NewManager(cart.NewMemoryPersister(), cart.DefaultPricing())

	timeout := defaultTestTimeout
	h := Handlers{
		Auth:         NewAuthHandler(authSvc, CookieConfig{Name: "session"}, timeout),
		Menu:         NewMenuHandler(menuSvc, uploads, 1<<20, timeout),
		Orders:       NewOrdersHandler(orderSvc, timeout),
		Reservations: NewReservationsHandler(reservationSvc, timeout),
		Cart:         NewCartHandler(carts, menuSvc, orderSvc, timeout, log),
		PayPal:       NewPayPalHandler(gateway, timeout),
		WS:           NewWSHandler(hub, notify.DefaultOptions(), true, log),
	}
	router := NewRouter(RouterConfig{
		RequestTimeout:     timeout,
		MaxRequestBodySize: 2 << 20,
		SessionCookie:      "session",
		CartCookie:         "cart_id",
		UploadsDir:         uploadsDir,
		UploadsPrefix:      media.URLPrefix,
	}, authSvc, h, log)

	return &testServer{handler: router, store: st, hub: hub, uploads: uploadsDir}
}

// do sends a JSON request (body may be nil) with the given cookies.
func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", LoginRequestDTO{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func (s *testServer) admin(t *testing.T) *http.Cookie {
	t.Helper()
	return s.login(t, store.AdminUsername, testAdminPassword)
}

func (s *testServer) register(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", RegisterRequestDTO{
		Username: username,
		Password: "secret1",
		Email:    username + "@example.com",
		FullName: "Test " + username,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status code %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "OK" {
		t.Errorf("expected body OK, got %q", rec.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/status", nil)
	expectStatus(t, rec, http.StatusOK)
	if st := decode[AuthStatusDTO](t, rec); st.Authenticated {
		t.Errorf("expected anonymous status")
	}

	cookie := s.register(t, "alice")
	if !cookie.HttpOnly {
		t.Errorf("expected HttpOnly session cookie")
	}

	rec = s.do(t, http.MethodGet, "/api/auth/status", nil, cookie)
	st := decode[AuthStatusDTO](t, rec)
	if !st.Authenticated || st.User == nil || st.User.Username != "alice" {
		t.Fatalf("expected alice to be authenticated, got %+v", st)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/auth/status", nil, cookie)
	if st := decode[AuthStatusDTO](t, rec); st.Authenticated {
		t.Errorf("expected revoked session to be anonymous")
	}
}

func TestAuth_ResponsesNeverContainPassword(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/register", RegisterRequestDTO{
		Username: "bob", Password: "secret1", Email: "bob@example.com", FullName: "Bob",
	})
	expectStatus(t, rec, http.StatusCreated)
	if bytes.Contains(rec.Body.Bytes(), []byte("secret1")) || bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Errorf("response leaks password: %s", rec.Body.String())
	}
}

func TestAuth_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", RegisterRequestDTO{
		Username: "ab", Password: "123", Email: "nope", FullName: "",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	resp := decode[ErrorResponse](t, rec)
	for _, f := range []string{"username", "password", "email", "fullName"} {
		if _, ok := resp.Fields[f]; !ok {
			t.Errorf("expected field error for %s, got %v", f, resp.Fields)
		}
	}

	s.register(t, "carol")
	rec = s.do(t, http.MethodPost, "/api/auth/register", RegisterRequestDTO{
		Username: "carol", Password: "secret1", Email: "other@example.com", FullName: "Carol",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if resp := decode[ErrorResponse](t, rec); resp.Fields["username"] == "" {
		t.Errorf("expected duplicate username error, got %v", resp.Fields)
	}
}

func TestAuth_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/login", LoginRequestDTO{Username: "admin", Password: "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)
	if resp := decode[ErrorResponse](t, rec); resp.Code != "invalid_credentials" {
		t.Errorf("expected invalid_credentials, got %q", resp.Code)
	}
}

func TestUnknownSessionIsAnonymous(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/orders", nil, &http.Cookie{Name: "session", Value: "garbage"})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/memory"
	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/inventory"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/service"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeAPI is a programmable inventory API double.
type fakeAPI struct {
	user      auth.User
	loginErr  error
	products  []inventory.Product
	movements []inventory.Movement
	listErr   error
}

func (f *fakeAPI) Login(ctx context.Context, matricula, senha string) (auth.User, session.TokenPair, error) {
	if f.loginErr != nil {
		return auth.User{}, session.TokenPair{}, f.loginErr
	}
	return f.user, session.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	return session.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAPI) ListProducts(ctx context.Context, accessToken string) ([]inventory.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.products, nil
}

func (f *fakeAPI) ListMovements(ctx context.Context, accessToken string) ([]inventory.Movement, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.movements, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type handlerFixture struct {
	handler  *AuthHandler
	sessions *session.SessionService
	codec    *session.Codec
	prefs    *memory.MemoryPrefStore
	metrics  *Metrics
}

func newHandlerFixture(t *testing.T, api *fakeAPI) *handlerFixture {
	t.Helper()

	logger := discardLogger()
	store := memory.NewSessionStore()
	t.Cleanup(store.Stop)
	prefStore := memory.NewPrefStore()

	sessions := session.NewSessionService(store, api, session.Config{},
		session.WithLogger(logger),
		session.WithPreferenceClearer(prefStore),
	)
	authSvc := service.NewAuthService(api, sessions, prefStore, logger)
	reports := service.NewReportService(api, logger)
	codec := session.NewCodec(testSecret)
	metrics := NewMetrics(prometheus.NewRegistry())

	handler := NewAuthHandler(authSvc, reports, codec, AuthHandlerConfig{
		CookieName: "estoque_sessao",
		CookieTTL:  24 * time.Hour,
	}, metrics)

	return &handlerFixture{
		handler:  handler,
		sessions: sessions,
		codec:    codec,
		prefs:    prefStore,
		metrics:  metrics,
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "estoque_sessao" {
			return c
		}
	}
	t.Fatal("expected estoque_sessao cookie in response")
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	admin := auth.User{ID: "1", Name: "Ana", Email: "ana@empresa.com", Matricula: "1001", Role: auth.RoleAdmin}

	t.Run("success returns user and permissions", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{user: admin})

		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(`{"matricula":"1001","senha":"s3nh4","manter_logado":true}`))
		rec := httptest.NewRecorder()
		fx.handler.Login(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp loginResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Usuario.NomeUsuario != "Ana" || resp.Usuario.Perfil != "admin" {
			t.Errorf("unexpected user payload: %+v", resp.Usuario)
		}
		if len(resp.Permissoes) != 5 {
			t.Errorf("expected 5 permissions for admin, got %v", resp.Permissoes)
		}

		cookie := sessionCookie(t, rec)
		if !cookie.HttpOnly {
			t.Error("session cookie must be HttpOnly")
		}
		if cookie.MaxAge == 0 {
			t.Error("persistent login should set cookie MaxAge")
		}
		if _, err := fx.codec.Decode(cookie.Value); err != nil {
			t.Errorf("cookie value should verify: %v", err)
		}
	})

	t.Run("non-persistent login issues session cookie", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{user: admin})

		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(`{"matricula":"1001","senha":"s3nh4"}`))
		rec := httptest.NewRecorder()
		fx.handler.Login(rec, req)

		if cookie := sessionCookie(t, rec); cookie.MaxAge != 0 {
			t.Errorf("session-only cookie should have no MaxAge, got %d", cookie.MaxAge)
		}
	})

	t.Run("rejection is generic", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{loginErr: errors.New("upstream said 401")})

		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(`{"matricula":"1001","senha":"errada"}`))
		rec := httptest.NewRecorder()
		fx.handler.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Message != "Credenciais inválidas" {
			t.Errorf("expected generic message, got %q", resp.Message)
		}
	})

	t.Run("malformed body is the same 401", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{user: admin})

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		fx.handler.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	admin := auth.User{ID: "1", Matricula: "1001", Role: auth.RoleAdmin}
	fx := newHandlerFixture(t, &fakeAPI{user: admin})

	sess, err := fx.sessions.Create(context.Background(), admin, session.TokenPair{AccessToken: "a", RefreshToken: "r"}, true)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(withSessionID(req.Context(), sess.ID))
	rec := httptest.NewRecorder()
	fx.handler.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if cookie := sessionCookie(t, rec); cookie.MaxAge != -1 {
		t.Errorf("logout should expire the cookie, got MaxAge %d", cookie.MaxAge)
	}

	view, err := fx.sessions.Derive(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if view.Status != session.StatusUnauthenticated {
		t.Errorf("expected session gone after logout, got %v", view.Status)
	}
}

func TestAuthHandler_Session(t *testing.T) {
	clerk := auth.User{ID: "2", Name: "Bia", Matricula: "2002", Role: auth.RoleStockClerk}

	t.Run("no cookie means unauthenticated", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{user: clerk})

		req := httptest.NewRequest(http.MethodGet, "/api/sessao", nil)
		rec := httptest.NewRecorder()
		fx.handler.Session(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "unauthenticated" || resp.Usuario != nil {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("persistent session resumes only with preference", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{user: clerk})

		if err := fx.prefs.Set(context.Background(), clerk.Matricula, true); err != nil {
			t.Fatalf("failed to set preference: %v", err)
		}
		sess, err := fx.sessions.Create(context.Background(), clerk, session.TokenPair{AccessToken: "a", RefreshToken: "r"}, true)
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/sessao", nil)
		req = req.WithContext(withSessionID(req.Context(), sess.ID))
		rec := httptest.NewRecorder()
		fx.handler.Session(rec, req)

		var resp sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "authenticated" {
			t.Fatalf("expected authenticated, got %q", resp.Status)
		}
		for _, p := range resp.Permissoes {
			if p == "funcionarios" {
				t.Error("stock clerk must not receive the employees permission")
			}
		}
	})

	t.Run("persistent session without preference is torn down", func(t *testing.T) {
		fx := newHandlerFixture(t, &fakeAPI{user: clerk})

		sess, err := fx.sessions.Create(context.Background(), clerk, session.TokenPair{AccessToken: "a", RefreshToken: "r"}, true)
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/sessao", nil)
		req = req.WithContext(withSessionID(req.Context(), sess.ID))
		rec := httptest.NewRecorder()
		fx.handler.Session(rec, req)

		var resp sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "unauthenticated" {
			t.Errorf("expected unauthenticated, got %q", resp.Status)
		}
	})
}

func TestAuthHandler_Summary(t *testing.T) {
	api := &fakeAPI{
		products: []inventory.Product{
			{ID: "1", Name: "Parafuso", Quantity: 3, MinQuantity: 10},
			{ID: "2", Name: "Porca", Quantity: 50, MinQuantity: 10},
		},
		movements: []inventory.Movement{
			{ID: "1", Type: inventory.MovementEntry, Quantity: 5},
			{ID: "2", Type: inventory.MovementExit, Quantity: 2},
		},
	}
	fx := newHandlerFixture(t, api)

	view := session.View{
		Status:      session.StatusAuthenticated,
		User:        auth.User{Matricula: "1001", Role: auth.RoleAdmin},
		AccessToken: "access-1",
	}
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/resumo", nil)
	req = req.WithContext(withSessionView(req.Context(), view))
	rec := httptest.NewRecorder()
	fx.handler.Summary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary inventory.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.TotalProducts != 2 || summary.LowStock != 1 || summary.Entries != 1 || summary.Exits != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

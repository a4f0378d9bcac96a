package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/estoque"
	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/memory"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/service"
)

// fakeUpstream stands in for the remote inventory API.
type fakeUpstream struct {
	lastAuthHeader atomic.Value
}

func (u *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Matricula string `json:"matricula"`
			Senha     string `json:"senha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Senha != "s3nh4" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		perfil := "admin"
		if req.Matricula == "2002" {
			perfil = "almoxarife"
		}
		fmt.Fprintf(w, `{
			"usuario": {"id": 7, "nome_usuario": "Ana", "email": "ana@empresa.com", "matricula": %q, "perfil": %q},
			"accessToken": "upstream-access",
			"refreshToken": "upstream-refresh"
		}`, req.Matricula, perfil)
	})
	mux.HandleFunc("GET /produtos", func(w http.ResponseWriter, r *http.Request) {
		u.lastAuthHeader.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `[{"id": 1, "nome": "Parafuso", "quantidade": 3, "quantidade_minima": 10}]`)
	})
	mux.HandleFunc("GET /movimentacoes", func(w http.ResponseWriter, r *http.Request) {
		u.lastAuthHeader.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `[{"id": 1, "produto_id": 1, "tipo": "entrada", "quantidade": 5}]`)
	})
	mux.HandleFunc("GET /funcionarios", func(w http.ResponseWriter, r *http.Request) {
		u.lastAuthHeader.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `[]`)
	})
	return mux
}

// newTestGateway wires the full middleware chain against a fake upstream.
func newTestGateway(t *testing.T) (*httptest.Server, *fakeUpstream) {
	t.Helper()

	upstream := &fakeUpstream{}
	upstreamSrv := httptest.NewServer(upstream.handler())
	t.Cleanup(upstreamSrv.Close)

	logger := discardLogger()
	client := estoque.NewClient(upstreamSrv.URL, estoque.WithHTTPClient(upstreamSrv.Client()))

	store := memory.NewSessionStore()
	t.Cleanup(store.Stop)
	prefStore := memory.NewPrefStore()
	sessions := session.NewSessionService(store, client, session.Config{},
		session.WithLogger(logger),
		session.WithPreferenceClearer(prefStore),
	)
	authSvc := service.NewAuthService(client, sessions, prefStore, logger)
	reports := service.NewReportService(client, logger)
	codec := session.NewCodec(testSecret)

	transport := NewTransport(authSvc, reports, sessions, codec, client, WithLogger(logger))
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	handler, err := transport.buildHandler(reg)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	gatewaySrv := httptest.NewServer(handler)
	t.Cleanup(gatewaySrv.Close)
	return gatewaySrv, upstream
}

func login(t *testing.T, srv *httptest.Server, matricula string) *http.Cookie {
	t.Helper()

	body := fmt.Sprintf(`{"matricula": %q, "senha": "s3nh4", "manter_logado": true}`, matricula)
	resp, err := srv.Client().Post(srv.URL+"/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "estoque_sessao" {
			return c
		}
	}
	t.Fatal("login response did not set the session cookie")
	return nil
}

func TestTransport_ProxyInjectsBearer(t *testing.T) {
	srv, upstream := newTestGateway(t)
	cookie := login(t, srv, "1001")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/produtos", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Parafuso") {
		t.Errorf("expected upstream body to pass through, got %s", body)
	}
	if got := upstream.lastAuthHeader.Load(); got != "Bearer upstream-access" {
		t.Errorf("expected injected bearer, upstream saw %v", got)
	}
}

func TestTransport_GatedRoutesRequireLogin(t *testing.T) {
	srv, _ := newTestGateway(t)

	resp, err := srv.Client().Get(srv.URL + "/api/produtos")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", resp.StatusCode)
	}
}

func TestTransport_StockClerkDeniedEmployees(t *testing.T) {
	srv, upstream := newTestGateway(t)
	cookie := login(t, srv, "2002")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/funcionarios", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if upstream.lastAuthHeader.Load() != nil {
		t.Error("denied request must not reach the upstream")
	}
}

func TestTransport_DashboardSummary(t *testing.T) {
	srv, _ := newTestGateway(t)
	cookie := login(t, srv, "1001")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/dashboard/resumo", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var summary struct {
		TotalProducts int `json:"total_produtos"`
		LowStock      int `json:"estoque_baixo"`
		Entries       int `json:"entradas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.TotalProducts != 1 || summary.LowStock != 1 || summary.Entries != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestTransport_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestGateway(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected healthy, got %d", resp.StatusCode)
	}

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected runtime metrics to be exported")
	}
}

func TestTransport_LogoutEndsSession(t *testing.T) {
	srv, _ := newTestGateway(t)
	cookie := login(t, srv, "1001")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/logout", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/produtos", nil)
	req.AddCookie(cookie)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

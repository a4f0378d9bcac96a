// Package estoque is the HTTP adapter for the remote inventory API.
package estoque

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/inventory"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/port/outbound"
)

const (
	// maxResponseBodySize is the maximum response body size from upstream.
	// Prevents OOM from a misbehaving upstream sending unbounded responses.
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB

	// maxAuthBodySize bounds the auth endpoint responses, which are small.
	maxAuthBodySize = 1024 * 1024 // 1MB

	// DefaultTimeout for data requests to the upstream.
	DefaultTimeout = 30 * time.Second

	// DefaultAuthTimeout bounds login and refresh round trips. The login
	// form and the lazy refresh both block on these, so they fail fast.
	DefaultAuthTimeout = 10 * time.Second
)

// ErrUpstreamRejected is returned when the upstream answers an auth request
// with a non-2xx status. The status and body are deliberately not carried:
// login failures are indistinguishable to callers.
var ErrUpstreamRejected = errors.New("upstream rejected request")

// Client talks to the remote inventory API.
// It implements the outbound.InventoryAPI interface.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	authTimeout time.Duration
	tracer      trace.Tracer
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout for data requests.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithAuthTimeout sets the timeout for login and refresh requests.
func WithAuthTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.authTimeout = d
	}
}

// NewClient creates a client for the inventory API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		authTimeout: DefaultAuthTimeout,
		tracer:      otel.Tracer("estoquegate/upstream"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// loginResponse is the upstream's credential exchange answer.
type loginResponse struct {
	Usuario struct {
		ID          json.Number `json:"id"`
		NomeUsuario string      `json:"nome_usuario"`
		Email       string      `json:"email"`
		Matricula   string      `json:"matricula"`
		Perfil      string      `json:"perfil"`
	} `json:"usuario"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for an identity and token pair.
func (c *Client) Login(ctx context.Context, matricula, senha string) (auth.User, session.TokenPair, error) {
	ctx, span := c.tracer.Start(ctx, "estoque.login",
		trace.WithAttributes(attribute.String("matricula", matricula)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()

	body, err := c.postJSON(ctx, "/login", map[string]string{
		"matricula": matricula,
		"senha":     senha,
	}, "", maxAuthBodySize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return auth.User{}, session.TokenPair{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed login response")
		return auth.User{}, session.TokenPair{}, fmt.Errorf("malformed login response: %w", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		span.SetStatus(codes.Error, "incomplete login response")
		return auth.User{}, session.TokenPair{}, fmt.Errorf("incomplete login response: %w", ErrUpstreamRejected)
	}

	user := auth.User{
		ID:        resp.Usuario.ID.String(),
		Name:      resp.Usuario.NomeUsuario,
		Email:     resp.Usuario.Email,
		Matricula: resp.Usuario.Matricula,
		Role:      auth.ParseRole(resp.Usuario.Perfil),
	}
	pair := session.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	return user, pair, nil
}

// refreshResponse is the upstream's refresh answer. The refresh token is
// optional: some deployments rotate it, some do not.
type refreshResponse struct {
	Data struct {
		AccessToken  string `json:"accesstoken"`
		RefreshToken string `json:"refreshtoken"`
	} `json:"data"`
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	ctx, span := c.tracer.Start(ctx, "estoque.refresh")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()

	body, err := c.postJSON(ctx, "/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, "", maxAuthBodySize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return session.TokenPair{}, err
	}

	var resp refreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed refresh response")
		return session.TokenPair{}, fmt.Errorf("malformed refresh response: %w", err)
	}
	if resp.Data.AccessToken == "" {
		span.SetStatus(codes.Error, "incomplete refresh response")
		return session.TokenPair{}, fmt.Errorf("incomplete refresh response: %w", ErrUpstreamRejected)
	}

	return session.TokenPair{
		AccessToken:  resp.Data.AccessToken,
		RefreshToken: resp.Data.RefreshToken,
	}, nil
}

// productDTO mirrors the upstream product shape.
type productDTO struct {
	ID               json.Number `json:"id"`
	Nome             string      `json:"nome"`
	Quantidade       int         `json:"quantidade"`
	QuantidadeMinima int         `json:"quantidade_minima"`
}

// ListProducts fetches all products.
func (c *Client) ListProducts(ctx context.Context, accessToken string) ([]inventory.Product, error) {
	ctx, span := c.tracer.Start(ctx, "estoque.list_products")
	defer span.End()

	body, err := c.getJSON(ctx, "/produtos", accessToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list products failed")
		return nil, err
	}

	var dtos []productDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("malformed products response: %w", err)
	}

	products := make([]inventory.Product, 0, len(dtos))
	for _, dto := range dtos {
		products = append(products, inventory.Product{
			ID:          dto.ID.String(),
			Name:        dto.Nome,
			Quantity:    dto.Quantidade,
			MinQuantity: dto.QuantidadeMinima,
		})
	}
	span.SetAttributes(attribute.Int("count", len(products)))
	return products, nil
}

// movementDTO mirrors the upstream movement shape.
type movementDTO struct {
	ID         json.Number `json:"id"`
	ProdutoID  json.Number `json:"produto_id"`
	Tipo       string      `json:"tipo"`
	Quantidade int         `json:"quantidade"`
	Data       time.Time   `json:"data"`
}

// ListMovements fetches all stock movements.
func (c *Client) ListMovements(ctx context.Context, accessToken string) ([]inventory.Movement, error) {
	ctx, span := c.tracer.Start(ctx, "estoque.list_movements")
	defer span.End()

	body, err := c.getJSON(ctx, "/movimentacoes", accessToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list movements failed")
		return nil, err
	}

	var dtos []movementDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("malformed movements response: %w", err)
	}

	movements := make([]inventory.Movement, 0, len(dtos))
	for _, dto := range dtos {
		movements = append(movements, inventory.Movement{
			ID:        dto.ID.String(),
			ProductID: dto.ProdutoID.String(),
			Type:      dto.Tipo,
			Quantity:  dto.Quantidade,
			CreatedAt: dto.Data,
		})
	}
	span.SetAttributes(attribute.Int("count", len(movements)))
	return movements, nil
}

// BaseURL returns the configured upstream base URL. The reverse proxy uses
// it as its target.
func (c *Client) BaseURL() (*url.URL, error) {
	return url.Parse(c.baseURL)
}

// postJSON sends a JSON POST and returns the (bounded) response body.
func (c *Client) postJSON(ctx context.Context, path string, payload any, bearer string, maxBody int64) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.do(req, maxBody)
}

// getJSON sends a GET with a bearer token and returns the response body.
func (c *Client) getJSON(ctx context.Context, path, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.do(req, maxResponseBodySize)
}

func (c *Client) do(req *http.Request, maxBody int64) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d: %w", resp.StatusCode, ErrUpstreamRejected)
	}

	return body, nil
}

// Compile-time check that Client implements the InventoryAPI interface.
var _ outbound.InventoryAPI = (*Client)(nil)

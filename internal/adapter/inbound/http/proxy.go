package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/estoque"
)

// NewAPIProxy builds the reverse proxy that forwards gated /api/* calls to
// the inventory API. The browser never sees an upstream token: the proxy
// injects the Authorization header from the derived session and strips the
// gateway's own cookies before the request leaves.
func NewAPIProxy(client *estoque.Client, logger *slog.Logger) (http.Handler, error) {
	target, err := client.BaseURL()
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, "/api")
			pr.Out.Host = target.Host
			pr.SetXForwarded()

			// Session cookie stays inside the gateway.
			pr.Out.Header.Del("Cookie")

			view := ViewFromContext(pr.In.Context())
			if view.AccessToken != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+view.AccessToken)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream proxy error", "path", r.URL.Path, "error", err)
			writeJSONError(w, http.StatusBadGateway, "Falha ao consultar o estoque")
		},
	}

	return proxy, nil
}

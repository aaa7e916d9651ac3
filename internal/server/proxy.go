// Package server implements the authenticated API proxy: a stateless
// pass-through that injects configured upstream credentials and strips
// sensitive headers from responses, sharing only session validation with
// the channel core.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hubgate/hubgate/internal/auth"
	"github.com/hubgate/hubgate/internal/config"
)

// sensitiveResponseHeaders are stripped from proxied responses so upstream
// credentials and connection framing never leak to the browser.
var sensitiveResponseHeaders = map[string]struct{}{
	"set-cookie":          {},
	"authorization":       {},
	"www-authenticate":    {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"content-length":      {},
	"transfer-encoding":   {},
	"content-encoding":    {},
}

// Proxy forwards authenticated requests to configured upstream APIs.
type Proxy struct {
	cfg    *config.Config
	issuer *auth.Issuer
	log    *slog.Logger
	client *http.Client
}

// NewProxy creates a Proxy using the given session issuer for its auth gate.
func NewProxy(cfg *config.Config, issuer *auth.Issuer, log *slog.Logger) *Proxy {
	return &Proxy{
		cfg:    cfg,
		issuer: issuer,
		log:    log,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// RegisterRoutes attaches the proxy's catch-all endpoint to the router.
func (p *Proxy) RegisterRoutes(r chi.Router) {
	r.Handle("/api/{name}/*", http.HandlerFunc(p.handle))
}

func (p *Proxy) handle(w http.ResponseWriter, r *http.Request) {
	username, err := p.issuer.Validate(sessionToken(r))
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	name := chi.URLParam(r, "name")
	target, ok := p.cfg.Proxies[name]
	if !ok {
		http.Error(w, fmt.Sprintf("API %q not configured", name), http.StatusNotFound)
		return
	}

	path := chi.URLParam(r, "*")
	url := strings.TrimRight(target.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	upstream, err := http.NewRequestWithContext(r.Context(), r.Method, url, r.Body)
	if err != nil {
		http.Error(w, "invalid proxy request", http.StatusBadRequest)
		return
	}
	for key, value := range target.Headers {
		upstream.Header.Set(key, value)
	}
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		upstream.Header.Set("Content-Type", contentType)
	}

	p.log.Info("proxy request", "api", name, "method", r.Method, "upstream_path", path, "user", username)

	resp, err := p.client.Do(upstream)
	if err != nil {
		p.log.Warn("proxy request failed", "api", name, "error", err)
		http.Error(w, "proxy request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	p.log.Info("proxy response", "api", name, "status", resp.StatusCode)

	for key, values := range resp.Header {
		if _, sensitive := sensitiveResponseHeaders[strings.ToLower(key)]; sensitive {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Warn("copying proxy response", "api", name, "error", err)
	}
}

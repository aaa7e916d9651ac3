// Package server exposes the HTTP surface of the gateway: the WebSocket
// upgrade endpoint guarded by session validation, the login endpoint, and
// the health check.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hubgate/hubgate/internal/auth"
	"github.com/hubgate/hubgate/internal/config"
)

// sessionCookie is the cookie carrying the session token.
const sessionCookie = "session"

// Gateway handles channel upgrades and login. It owns a connection's
// lifecycle from the incoming upgrade request until it is handed to the hub.
type Gateway struct {
	cfg      *config.Config
	hub      *Hub
	issuer   *auth.Issuer
	creds    *auth.CredentialStore
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewGateway wires the gateway's collaborators. The upgrader enforces the
// configured origin allow-list.
func NewGateway(cfg *config.Config, hub *Hub, issuer *auth.Issuer, creds *auth.CredentialStore, log *slog.Logger) *Gateway {
	policy := newOriginPolicy(cfg.AllowedOrigins, log)
	return &Gateway{
		cfg:    cfg,
		hub:    hub,
		issuer: issuer,
		creds:  creds,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
	}
}

// RegisterRoutes attaches the gateway's endpoints to the router.
func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{channel}", g.handleChannel)
	r.Post("/login", g.handleLogin)
	r.Get("/healthz", g.handleHealth)
}

// sessionToken extracts the token from the session cookie or, failing that,
// from an Authorization bearer header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

// authenticate validates the request's session token and returns the
// subject. The identity is not yet trusted on failure, so only the error
// class is logged.
func (g *Gateway) authenticate(r *http.Request) (string, error) {
	username, err := g.issuer.Validate(sessionToken(r))
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, auth.ErrTokenMissing):
			reason = "missing"
		case errors.Is(err, auth.ErrTokenExpired):
			reason = "expired"
		}
		g.log.Info("rejected request", "path", r.URL.Path, "reason", reason)
		return "", err
	}
	return username, nil
}

// handleChannel upgrades an authenticated request into a channel member.
// Validation happens before the upgrade, so a rejected caller never reaches
// the registry and never causes channel creation side effects.
func (g *Gateway) handleChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if channel == "" {
		http.Error(w, "channel name required", http.StatusBadRequest)
		return
	}

	username, err := g.authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own response on failure.
		g.log.Warn("websocket upgrade failed", "channel", channel, "error", err)
		return
	}

	client := NewClient(conn, g.hub, channel, username, g.cfg, g.log)
	g.hub.Register(client)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin verifies a username/password pair and issues a session token,
// both as a cookie and in the response body for clients that prefer bearer
// headers.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !g.creds.Verify(req.Username, req.Password) {
		// The claimed identity is not trusted yet, so it stays out of the log.
		g.log.Info("login failed")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := g.issuer.Issue(req.Username)
	if err != nil {
		g.log.Error("issuing token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.issuer.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	g.log.Info("login succeeded", "user", req.Username)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{Token: token}); err != nil {
		g.log.Warn("writing login response", "error", err)
	}
}

// handleHealth provides a simple liveness check.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

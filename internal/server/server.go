// Package server constructs and runs the Hubgate HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified
// address and handler. Timeouts apply to plain HTTP requests; upgraded
// WebSocket connections are hijacked and managed by their own deadlines.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// FindTLSCertificates scans a directory for .pem files and identifies the
// key and certificate by filename: a name containing "key" is the key,
// anything else the certificate. Both paths are empty when the pair is
// incomplete, in which case the server runs without TLS.
func FindTLSCertificates(dir string) (keyFile, certFile string) {
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ""
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pem") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if strings.Contains(strings.ToLower(entry.Name()), "key") {
			keyFile = path
		} else {
			certFile = path
		}
	}

	if keyFile == "" || certFile == "" {
		return "", ""
	}
	return keyFile, certFile
}

// StartServer starts the HTTP server, with TLS when a certificate pair is
// given, and blocks until it exits.
func StartServer(server *http.Server, keyFile, certFile string, log *slog.Logger) error {
	if keyFile != "" && certFile != "" {
		log.Info("server listening with TLS", "addr", server.Addr, "cert", certFile)
		return server.ListenAndServeTLS(certFile, keyFile)
	}
	log.Info("server listening", "addr", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// requests to finish or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http server shutdown", "error", err)
		return err
	}

	log.Info("http server shutdown complete")
	return nil
}

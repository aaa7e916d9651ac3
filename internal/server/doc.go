// Package server implements the core HTTP and WebSocket functionality of
// Hubgate.
//
// The implementation is organized into specialized files for the connection
// registry, broadcast hub, clients, routing, HTTP handlers, and the API
// proxy to keep the codebase maintainable and testable as the project grows.
package server

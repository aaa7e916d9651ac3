package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicyAllowsConfiguredOrigins(t *testing.T) {
	t.Parallel()

	policy := newOriginPolicy([]string{"http://localhost:8000", "HTTPS://App.Example.com"}, discardLogger())

	assert.True(t, policy.check(requestWithOrigin("http://localhost:8000")))
	// Scheme and host comparison is case-insensitive.
	assert.True(t, policy.check(requestWithOrigin("https://app.example.com")))
	assert.False(t, policy.check(requestWithOrigin("http://evil.example")))
}

func TestOriginPolicyRejectsMissingOrigin(t *testing.T) {
	t.Parallel()

	policy := newOriginPolicy([]string{"http://localhost:8000"}, discardLogger())
	assert.False(t, policy.check(requestWithOrigin("")))
}

func TestOriginPolicyWildcard(t *testing.T) {
	t.Parallel()

	policy := newOriginPolicy([]string{"*"}, discardLogger())
	assert.True(t, policy.check(requestWithOrigin("http://anything.example")))
	assert.False(t, policy.check(requestWithOrigin("")), "wildcard still requires an Origin header")
}

func TestOriginPolicySkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	policy := newOriginPolicy([]string{"", "   ", "not a url", "http://ok.example"}, discardLogger())
	assert.True(t, policy.check(requestWithOrigin("http://ok.example")))
	assert.False(t, policy.check(requestWithOrigin("not a url")))
}

package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/firmahq/firma/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_RemoteAddrFallback(t *testing.T) {
	r := httptest.NewRequest("POST", "/petitions/x/signatures", nil)
	r.RemoteAddr = "203.0.113.7:51234"

	ip := pkghttp.ExtractClientIP(r, nil)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_UntrustedProxyHeaderIgnored(t *testing.T) {
	r := httptest.NewRequest("POST", "/petitions/x/signatures", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	// Peer is not a trusted proxy, so the header must not be honored
	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_TrustedProxyForwardedFor(t *testing.T) {
	r := httptest.NewRequest("POST", "/petitions/x/signatures", nil)
	r.RemoteAddr = "10.0.0.5:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "198.51.100.1", ip)
}

func TestExtractClientIP_TrustedProxyRealIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/petitions/x/signatures", nil)
	r.RemoteAddr = "10.0.0.5:443"
	r.Header.Set("X-Real-IP", "198.51.100.9")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_InvalidHeaderValues(t *testing.T) {
	r := httptest.NewRequest("POST", "/petitions/x/signatures", nil)
	r.RemoteAddr = "10.0.0.5:443"
	r.Header.Set("X-Forwarded-For", "not-an-ip")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "10.0.0.5", ip)
}

package checks

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/config"
)

func hostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestCheckTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	host, port := hostPort(t, ln.Addr().String())

	res := checkTCP(config.Service{Host: host, Port: port})
	assert.True(t, res.OK)
	assert.Equal(t, "TCP "+ln.Addr().String()+" ok", res.Detail)
}

func TestCheckTCPRefused(t *testing.T) {
	// Grab a port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := hostPort(t, ln.Addr().String())
	ln.Close()

	res := checkTCP(config.Service{Host: host, Port: port})
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Detail, "TCP error:"), res.Detail)
}

func TestCheckTLS(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	// The test server's self-signed cert is valid for decades, so the
	// default 7-day threshold passes.
	res := checkTLS(config.Service{Host: u.Hostname(), Port: port})
	assert.True(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Detail, "TLS expires in "), res.Detail)
	assert.True(t, strings.HasSuffix(res.Detail, "d"), res.Detail)
}

func TestCheckTLSMinDaysLeft(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	// An absurd threshold flips the same certificate to failing.
	res := checkTLS(config.Service{Host: u.Hostname(), Port: port, MinDaysLeft: 1000000})
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Detail, "TLS expires in "), res.Detail)
}

func TestCheckTLSConnectionError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := hostPort(t, ln.Addr().String())
	ln.Close()

	res := checkTLS(config.Service{Host: host, Port: port})
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Detail, "TLS error:"), res.Detail)
}

package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/errors"
)

func gatewayReturning(t *testing.T, status int, body string, got *gatewayRequest) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSuggestSuccess(t *testing.T) {
	var got gatewayRequest
	ts := gatewayReturning(t, 200, `{"success": true, "response": "df -h /"}`, &got)

	c := New(Config{Endpoint: ts.URL, Model: "qwen2.5-coder:7b", Provider: "ollama"})
	cmd, err := c.Suggest(context.Background(), PromptFor("disk usage"), "nginx runs here")
	require.NoError(t, err)
	assert.Equal(t, "df -h /", cmd)

	assert.Equal(t, "qwen2.5-coder:7b", got.Model)
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "Request: disk usage", got.Prompt)
	assert.Contains(t, got.System, "exactly one shell command")
	assert.Contains(t, got.System, "nginx runs here")
}

func TestSuggestStripsFences(t *testing.T) {
	ts := gatewayReturning(t, 200, "{\"success\": true, \"response\": \"```bash\\nsystemctl restart nginx\\nsudo reboot\\n```\"}", nil)

	c := New(Config{Endpoint: ts.URL})
	cmd, err := c.Suggest(context.Background(), "restart nginx", "")
	require.NoError(t, err)
	// Only the first command line survives.
	assert.Equal(t, "systemctl restart nginx", cmd)
}

func TestSuggestGatewayFailure(t *testing.T) {
	ts := gatewayReturning(t, 200, `{"success": false, "error": "model not loaded"}`, nil)

	c := New(Config{Endpoint: ts.URL})
	_, err := c.Suggest(context.Background(), "anything", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSession))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestSuggestHTTPError(t *testing.T) {
	ts := gatewayReturning(t, 502, "bad gateway", nil)

	c := New(Config{Endpoint: ts.URL})
	_, err := c.Suggest(context.Background(), "anything", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSuggestEmptyResponse(t *testing.T) {
	ts := gatewayReturning(t, 200, "{\"success\": true, \"response\": \"```\\n```\"}", nil)

	c := New(Config{Endpoint: ts.URL})
	_, err := c.Suggest(context.Background(), "anything", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestSuggestNoEndpoint(t *testing.T) {
	c := New(Config{})
	_, err := c.Suggest(context.Background(), "anything", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare command", "uptime", "uptime"},
		{"surrounding whitespace", "  uptime \n", "uptime"},
		{"fenced block", "```\nuptime\n```", "uptime"},
		{"fenced with language", "```sh\nuptime\n```", "uptime"},
		{"multi line keeps first", "uptime\nfree -m", "uptime"},
		{"leading blank lines", "\n\n  \nuptime", "uptime"},
		{"empty", "", ""},
		{"fences only", "```\n```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCommand(tt.reply))
		})
	}
}

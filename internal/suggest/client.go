// Package suggest asks a local model-gateway endpoint for a single shell
// command suggestion, used by the terminal's assist flow.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/errors"
)

// Config points the client at the gateway. Zero values disable nothing;
// validation happens at call time so a misconfigured panel still serves
// everything else.
type Config struct {
	Endpoint string
	Model    string
	Provider string
	Timeout  time.Duration
}

const defaultTimeout = 30 * time.Second

// Client posts suggestion prompts to the gateway.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client. The HTTP client is shared across calls.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// systemPrompt constrains the model to emit exactly one runnable command.
const systemPrompt = "You are a shell assistant on a remote Linux server. " +
	"Reply with exactly one shell command that accomplishes the user's request. " +
	"No explanation, no markdown, no code fences. Output the command only."

type gatewayRequest struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
	System   string `json:"system"`
	Prompt   string `json:"prompt"`
}

type gatewayResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Suggest returns a single command line for the prompt. Knowledge, when
// non-empty, is appended to the system prompt as server context. The result
// is trimmed to the first non-empty line with any code fences stripped.
func (c *Client) Suggest(ctx context.Context, prompt, knowledge string) (string, error) {
	if c.cfg.Endpoint == "" {
		return "", errors.New(errors.ErrConfig, "suggestion endpoint not configured")
	}

	system := systemPrompt
	if knowledge != "" {
		system += "\n\nServer context:\n" + knowledge
	}

	body, err := json.Marshal(gatewayRequest{
		Model:    c.cfg.Model,
		Provider: c.cfg.Provider,
		System:   system,
		Prompt:   prompt,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrSession, "failed to encode suggestion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrSession, "failed to build suggestion request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrSession, "suggestion request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrSession, "failed to read suggestion response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Newf(errors.ErrSession, "suggestion endpoint returned %d", resp.StatusCode)
	}

	var decoded gatewayResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", errors.Wrap(err, errors.ErrSession, "failed to decode suggestion response")
	}
	if !decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = "gateway reported failure"
		}
		return "", errors.Newf(errors.ErrSession, "suggestion failed: %s", msg)
	}

	command := ExtractCommand(decoded.Response)
	if command == "" {
		return "", errors.New(errors.ErrSession, "suggestion response was empty")
	}
	return command, nil
}

// ExtractCommand reduces a model reply to one command line: code fences are
// stripped and the first non-empty remaining line wins.
func ExtractCommand(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		return line
	}
	return ""
}

// PromptFor builds the user prompt for a suggestion query.
func PromptFor(query string) string {
	return fmt.Sprintf("Request: %s", query)
}

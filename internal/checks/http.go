package checks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fleetdeck/fleetdeck/internal/config"
)

// maxBodyBytes caps how much of a response body a check will read.
const maxBodyBytes = 1 << 20

// checkHTTP verifies the response status (exact match when expectStatus is
// set, any 2xx otherwise) and optionally that the body contains a substring.
func checkHTTP(ctx context.Context, svc config.Service) Result {
	resp, err := httpGet(ctx, svc, "")
	if err != nil {
		return fail(fmt.Sprintf("HTTP error: %v", err))
	}
	defer resp.Body.Close()

	statusOK := resp.StatusCode >= 200 && resp.StatusCode < 300
	if svc.ExpectStatus != 0 {
		statusOK = resp.StatusCode == svc.ExpectStatus
	}

	detail := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if svc.ExpectTextIncludes != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fail(fmt.Sprintf("%s, body read error: %v", detail, err))
		}
		if !strings.Contains(string(body), svc.ExpectTextIncludes) {
			return fail(fmt.Sprintf("%s, not includes %q", detail, svc.ExpectTextIncludes))
		}
		detail += ", includes"
	}

	if !statusOK {
		return fail(detail)
	}
	return pass(detail)
}

// checkHTTPJSON decodes the response body and evaluates every configured
// rule against it with gjson paths. All rules must hold.
func checkHTTPJSON(ctx context.Context, svc config.Service) Result {
	resp, err := httpGet(ctx, svc, "application/json")
	if err != nil {
		return fail(fmt.Sprintf("HTTP JSON error: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(fmt.Sprintf("HTTP JSON error: %v", err))
	}

	passed := 0
	for _, rule := range svc.Rules {
		if evalRule(body, rule) {
			passed++
		}
	}
	detail := fmt.Sprintf("JSON rules: %d/%d ok", passed, len(svc.Rules))
	if passed != len(svc.Rules) {
		return fail(detail)
	}
	return pass(detail)
}

// evalRule checks one assertion: value equality, substring containment of
// the value's string form, or bare existence.
func evalRule(body []byte, rule config.JSONRule) bool {
	value := gjson.GetBytes(body, rule.Path)
	switch {
	case rule.Equals != "":
		return value.Exists() && value.String() == rule.Equals
	case rule.Includes != "":
		return value.Exists() && strings.Contains(value.String(), rule.Includes)
	case rule.Exists:
		return value.Exists()
	default:
		return false
	}
}

func httpGet(ctx context.Context, svc config.Service, accept string) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, svc.Timeout(defaultHTTPTimeout))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, svc.URL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	// Tie the cancel to body close so the deadline covers body reads too.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

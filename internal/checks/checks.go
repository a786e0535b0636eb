// Package checks implements one runner per service check type. Runners are
// total: every failure mode, including panics and programmer errors, comes
// back as a fail Result with a short explanation. Nothing here can abort a
// poll cycle.
package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// Result is the verdict of one check: pass/fail plus a bounded detail string.
type Result struct {
	OK     bool
	Detail string
}

// maxDetail bounds the detail string carried into snapshots.
const maxDetail = 256

// Per-type default timeouts. Individual services override via timeoutMs.
const (
	defaultTCPTimeout     = 2 * time.Second
	defaultTLSTimeout     = 3 * time.Second
	defaultHTTPTimeout    = 3 * time.Second
	defaultSystemdTimeout = 3 * time.Second
	defaultCommandTimeout = 4 * time.Second
	defaultDockerTimeout  = 4 * time.Second
)

// DefaultTimeout returns the budget for a check type when the service does
// not set timeoutMs. Callers that bound runners from the outside use this
// too, so a hung check never waits longer than its own budget allows.
func DefaultTimeout(t config.CheckType) time.Duration {
	switch t {
	case config.CheckTCP:
		return defaultTCPTimeout
	case config.CheckTLS:
		return defaultTLSTimeout
	case config.CheckHTTP, config.CheckHTTPJSON:
		return defaultHTTPTimeout
	case config.CheckSystemd:
		return defaultSystemdTimeout
	case config.CheckDocker:
		return defaultDockerTimeout
	default:
		return defaultCommandTimeout
	}
}

// Executor runs one short command on the server under check. The production
// implementation dials a fresh SSH connection per call (sshutil.ExecOnce);
// tests substitute fakes.
type Executor interface {
	Exec(cmd string, timeout time.Duration) (sshutil.Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(cmd string, timeout time.Duration) (sshutil.Result, error)

// Exec implements Executor.
func (f ExecutorFunc) Exec(cmd string, timeout time.Duration) (sshutil.Result, error) {
	return f(cmd, timeout)
}

// Run dispatches a service to its runner. An unrecognized type is a fail
// result, not an error. The context bounds network checks in addition to the
// per-check timeout so an engine shutdown cancels in-flight probes.
func Run(ctx context.Context, exec Executor, svc config.Service) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Sprintf("check error: %v", r))
		}
	}()

	switch svc.Type {
	case config.CheckTCP:
		return checkTCP(svc)
	case config.CheckTLS:
		return checkTLS(svc)
	case config.CheckHTTP:
		return checkHTTP(ctx, svc)
	case config.CheckHTTPJSON:
		return checkHTTPJSON(ctx, svc)
	case config.CheckSystemd:
		return checkSystemd(exec, svc)
	case config.CheckCommand:
		return checkCommand(exec, svc)
	case config.CheckDocker:
		return checkDocker(exec, svc)
	default:
		return fail(fmt.Sprintf("unknown service type: %s", svc.Type))
	}
}

func fail(detail string) Result {
	return Result{OK: false, Detail: clamp(detail)}
}

func pass(detail string) Result {
	return Result{OK: true, Detail: clamp(detail)}
}

func clamp(s string) string {
	if len(s) > maxDetail {
		return s[:maxDetail]
	}
	return s
}

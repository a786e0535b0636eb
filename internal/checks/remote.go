package checks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fleetdeck/fleetdeck/internal/config"
)

// checkSystemd asks systemctl for the unit state. Anything other than
// "active" fails, including a dead connection.
func checkSystemd(exec Executor, svc config.Service) Result {
	cmd := fmt.Sprintf("systemctl is-active %s || echo inactive", shellQuote(svc.Unit))
	out, err := exec.Exec(cmd, svc.Timeout(defaultSystemdTimeout))
	if err != nil {
		return fail(fmt.Sprintf("systemd: %v", err))
	}
	state := firstLine(out.Stdout)
	if state == "" {
		state = firstLine(out.Stderr)
	}
	if state == "" {
		state = "unknown"
	}
	detail := "systemd: " + state
	if state != "active" {
		return fail(detail)
	}
	return pass(detail)
}

// checkCommand runs an arbitrary command. The exit status is not part of
// the verdict: any completed run passes unless okPattern is configured, in
// which case the combined output must match it case-insensitively.
func checkCommand(exec Executor, svc config.Service) Result {
	out, err := exec.Exec(svc.Command, svc.Timeout(defaultCommandTimeout))
	if err != nil {
		return fail(fmt.Sprintf("command error: %v", err))
	}

	combined := strings.TrimSpace(out.Combined())
	detail := combined
	if detail == "" {
		detail = "(no output)"
	}

	if svc.OKPattern != "" {
		re, err := regexp.Compile("(?i)" + svc.OKPattern)
		if err != nil {
			return fail(fmt.Sprintf("bad okPattern: %v", err))
		}
		if !re.MatchString(combined) {
			return fail(detail)
		}
	}
	return pass(detail)
}

// checkDocker looks the container up by name and requires it to be running.
func checkDocker(exec Executor, svc config.Service) Result {
	cmd := fmt.Sprintf("docker ps --format '{{.Names}}|{{.Status}}|{{.Running}}' --filter name=%s", shellQuote(svc.Container))
	out, err := exec.Exec(cmd, svc.Timeout(defaultDockerTimeout))
	if err != nil {
		return fail(fmt.Sprintf("docker: %v", err))
	}

	line := containerLine(out.Stdout, svc.Container)
	if line == "" {
		if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
			return fail(stderr)
		}
		return fail("not found")
	}
	if strings.Contains(line, "Up") || runningTrue.MatchString(line) {
		return pass(line)
	}
	return fail(line)
}

var runningTrue = regexp.MustCompile(`\btrue\b`)

// containerLine returns the first ps line mentioning the container name.
// The name filter is a substring match on the docker side, so scan for it
// explicitly rather than trusting the first row.
func containerLine(stdout, name string) string {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && strings.Contains(line, name) {
			return line
		}
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// shellQuote single-quotes a value for sh. Inventory values are operator
// supplied, but they still travel through a remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

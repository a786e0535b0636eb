package checks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// fakeExec returns a canned result for every command, recording what ran.
type fakeExec struct {
	result sshutil.Result
	err    error
	cmds   []string
}

func (f *fakeExec) Exec(cmd string, timeout time.Duration) (sshutil.Result, error) {
	f.cmds = append(f.cmds, cmd)
	return f.result, f.err
}

func TestRunUnknownType(t *testing.T) {
	res := Run(context.Background(), &fakeExec{}, config.Service{Type: "carrier-pigeon"})
	assert.False(t, res.OK)
	assert.Equal(t, "unknown service type: carrier-pigeon", res.Detail)
}

func TestRunRecoversFromPanic(t *testing.T) {
	panicky := ExecutorFunc(func(cmd string, timeout time.Duration) (sshutil.Result, error) {
		panic("executor exploded")
	})
	res := Run(context.Background(), panicky, config.Service{Type: config.CheckSystemd, Unit: "nginx"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Detail, "check error:")
	assert.Contains(t, res.Detail, "executor exploded")
}

func TestClampBoundsDetail(t *testing.T) {
	long := strings.Repeat("x", 1000)
	res := fail(long)
	assert.Len(t, res.Detail, maxDetail)
}

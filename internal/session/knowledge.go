package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// remoteKnowledgePath is where a fleet server can leave notes about itself
// for the suggestion assistant.
const remoteKnowledgePath = "/etc/fleetdeck/knowledge.md"

// maxKnowledgeBytes caps how much context is fed into a suggestion prompt.
const maxKnowledgeBytes = 16 * 1024

const knowledgeTimeout = 3 * time.Second

// remoteExecer runs one command on the session's server.
type remoteExecer interface {
	Exec(ctx context.Context, cmd string) (sshutil.Result, error)
}

// gatherKnowledge combines the server-side notes file with the operator's
// local notes. Either source may be missing; both missing yields "".
func gatherKnowledge(ctx context.Context, remote remoteExecer) string {
	var parts []string

	if remote != nil {
		rctx, cancel := context.WithTimeout(ctx, knowledgeTimeout)
		out, err := remote.Exec(rctx, "cat "+remoteKnowledgePath+" 2>/dev/null || true")
		cancel()
		if err == nil && strings.TrimSpace(out.Stdout) != "" {
			parts = append(parts, out.Stdout)
		}
	}

	if local := readLocalKnowledge(); local != "" {
		parts = append(parts, local)
	}

	joined := strings.Join(parts, "\n\n")
	if len(joined) > maxKnowledgeBytes {
		joined = joined[:maxKnowledgeBytes]
	}
	return joined
}

// readLocalKnowledge loads the operator's notes file. FLEETDECK_KNOWLEDGE
// overrides the default location under the user config dir.
func readLocalKnowledge() string {
	path := os.Getenv("FLEETDECK_KNOWLEDGE")
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(dir, "fleetdeck", "knowledge.md")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/poller"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// testSSHTimeout bounds the connectivity probe behind /api/test-ssh.
const testSSHTimeout = 5 * time.Second

// ServersResponse is the fleet health snapshot.
type ServersResponse struct {
	Body struct {
		Timestamp time.Time             `json:"timestamp"`
		Servers   []poller.ServerStatus `json:"servers"`
	}
}

// InventoryResponse is the loaded inventory with secrets redacted.
type InventoryResponse struct {
	Body config.Inventory
}

// ReloadResponse reports a reload outcome.
type ReloadResponse struct {
	Body struct {
		Reloaded bool   `json:"reloaded"`
		Servers  int    `json:"servers"`
		Services int    `json:"services"`
		Message  string `json:"message,omitempty"`
	}
}

// TestSSHInput selects the server to probe.
type TestSSHInput struct {
	ServerID string `query:"serverId" required:"true" doc:"Server id from the inventory"`
}

// TestSSHResponse reports whether a one-shot SSH round trip succeeded.
type TestSSHResponse struct {
	Body struct {
		OK     bool   `json:"ok"`
		Detail string `json:"detail"`
	}
}

// RegisterAPI mounts the JSON API onto the given huma instance.
func (s *Server) RegisterAPI(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-servers",
		Method:      http.MethodGet,
		Path:        "/api/servers",
		Summary:     "Fleet health snapshot",
		Description: "Latest poll results for every server, with aggregate colors.",
		Tags:        []string{"fleet"},
	}, func(ctx context.Context, input *struct{}) (*ServersResponse, error) {
		snap := s.snaps.Current()
		resp := &ServersResponse{}
		resp.Body.Timestamp = snap.Timestamp
		resp.Body.Servers = make([]poller.ServerStatus, 0, len(snap.Servers))
		for _, st := range snap.Servers {
			resp.Body.Servers = append(resp.Body.Servers, st)
		}
		sort.Slice(resp.Body.Servers, func(i, j int) bool {
			return resp.Body.Servers[i].ID < resp.Body.Servers[j].ID
		})
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-inventory",
		Method:      http.MethodGet,
		Path:        "/api/inventory",
		Summary:     "Loaded inventory",
		Description: "The current inventory with credential secrets redacted.",
		Tags:        []string{"fleet"},
	}, func(ctx context.Context, input *struct{}) (*InventoryResponse, error) {
		return &InventoryResponse{Body: redact(s.store.Current())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reload-inventory",
		Method:      http.MethodPost,
		Path:        "/api/reload",
		Summary:     "Reload the inventory",
		Description: "Re-reads the inventory file. A failed reload keeps the previous inventory active.",
		Tags:        []string{"fleet"},
	}, func(ctx context.Context, input *struct{}) (*ReloadResponse, error) {
		if err := s.store.Reload(); err != nil {
			return nil, huma.Error400BadRequest("reload failed, previous inventory kept", err)
		}
		if s.engine != nil {
			s.engine.Kick()
		}

		inv := s.store.Current()
		resp := &ReloadResponse{}
		resp.Body.Reloaded = true
		resp.Body.Servers = len(inv.Servers)
		for _, srv := range inv.Servers {
			resp.Body.Services += len(srv.Services)
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "test-ssh",
		Method:      http.MethodGet,
		Path:        "/api/test-ssh",
		Summary:     "Probe SSH connectivity",
		Description: "Dials the server, runs a trivial command, and reports the outcome.",
		Tags:        []string{"fleet"},
	}, func(ctx context.Context, input *TestSSHInput) (*TestSSHResponse, error) {
		srv := s.store.Current().FindServer(input.ServerID)
		if srv == nil {
			return nil, huma.Error404NotFound("unknown server: " + input.ServerID)
		}
		bundle, err := s.resolver.Resolve(srv.SSH.CredentialID)
		if err != nil {
			return nil, huma.Error500InternalServerError("credential resolution failed", err)
		}

		resp := &TestSSHResponse{}
		out, err := sshutil.ExecOnce(srv.SSH, bundle, "echo __OK__", testSSHTimeout)
		switch {
		case err != nil:
			resp.Body.Detail = err.Error()
		case out.Stdout != "__OK__":
			resp.Body.Detail = "unexpected output: " + out.Stdout
		default:
			resp.Body.OK = true
			resp.Body.Detail = "connected as " + sshutil.EndpointLabel(srv.SSH)
		}
		return resp, nil
	})
}

// redact deep-copies the inventory with credential secrets blanked. Key
// paths stay visible so operators can see what is configured where.
func redact(inv *config.Inventory) config.Inventory {
	out := config.Inventory{
		Poll:        inv.Poll,
		Credentials: make([]config.Credential, len(inv.Credentials)),
		Servers:     make([]config.Server, len(inv.Servers)),
	}
	copy(out.Servers, inv.Servers)
	for i, cred := range inv.Credentials {
		cred.Password = ""
		cred.Passphrase = ""
		out.Credentials[i] = cred
	}
	return out
}

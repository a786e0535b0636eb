// Package poller runs the background polling engine: every cycle it fans out
// over the inventory, runs each service check, and publishes an immutable
// snapshot of the fleet's health.
package poller

import (
	"time"

	"github.com/fleetdeck/fleetdeck/internal/config"
)

// Color is the aggregate health verdict for one server.
type Color string

const (
	// ColorGray means the server has no configured services.
	ColorGray Color = "gray"
	// ColorGreen means every service check passed.
	ColorGreen Color = "green"
	// ColorYellow means some checks passed and some failed.
	ColorYellow Color = "yellow"
	// ColorRed means every service check failed.
	ColorRed Color = "red"
)

// ServiceStatus is the outcome of the most recent check of one service.
type ServiceStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail"`
	CheckedAt time.Time `json:"checkedAt"`
}

// EndpointSummary is the ssh target carried in snapshots. Credential
// references never leave the server.
type EndpointSummary struct {
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
	User string `json:"user"`
}

// ServerStatus is one server's aggregate state plus per-service results.
type ServerStatus struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Env      string          `json:"env,omitempty"`
	Accent   string          `json:"accent,omitempty"`
	SSH      EndpointSummary `json:"ssh"`
	Color    Color           `json:"color"`
	Services []ServiceStatus `json:"services"`
}

// aggregate derives the server color from its service results.
func aggregate(services []ServiceStatus) Color {
	if len(services) == 0 {
		return ColorGray
	}
	ok := 0
	for _, s := range services {
		if s.OK {
			ok++
		}
	}
	switch ok {
	case len(services):
		return ColorGreen
	case 0:
		return ColorRed
	default:
		return ColorYellow
	}
}

// newServerStatus builds the status shell for a server before its checks run.
func newServerStatus(srv config.Server) ServerStatus {
	return ServerStatus{
		ID:     srv.ID,
		Name:   srv.Name,
		Env:    srv.Env,
		Accent: srv.Color,
		SSH: EndpointSummary{
			Host: srv.SSH.Host,
			Port: srv.SSH.Port,
			User: srv.SSH.User,
		},
		Services: make([]ServiceStatus, 0, len(srv.Services)),
	}
}

package config

import "gopkg.in/yaml.v3"

// SampleInventory returns a starter inventory covering every check type,
// used by `fleetdeck init`.
func SampleInventory() ([]byte, error) {
	inv := Inventory{
		Poll: PollConfig{IntervalSec: 15},
		Credentials: []Credential{
			{ID: "default", PrivateKeyPath: "~/.ssh/id_ed25519", UseAgent: true},
		},
		Servers: []Server{
			{
				ID:    "web1",
				Name:  "Web 1",
				Env:   "prod",
				Color: "#2f81f7",
				SSH:   Endpoint{Host: "web1.example.com", Port: 22, User: "deploy", CredentialID: "default"},
				Services: []Service{
					{ID: "ssh-port", Name: "SSH port", Type: CheckTCP, Host: "web1.example.com", Port: 22},
					{ID: "tls-check", Name: "TLS cert", Type: CheckTLS, Host: "web1.example.com", Port: 443, MinDaysLeft: 14},
					{ID: "http-check", Name: "Frontend", Type: CheckHTTP, URL: "https://web1.example.com/healthz", ExpectStatus: 200},
					{ID: "api-json", Name: "API health", Type: CheckHTTPJSON, URL: "https://web1.example.com/api/health",
						Rules: []JSONRule{{Name: "status", Path: "status", Equals: "ok"}}},
					{ID: "nginx", Name: "nginx unit", Type: CheckSystemd, Unit: "nginx"},
					{ID: "disk", Name: "Disk usage", Type: CheckCommand, Command: "df -h / | tail -1", OKPattern: `\s[0-8]?\d%\s`},
					{ID: "app", Name: "App container", Type: CheckDocker, Container: "app"},
				},
			},
		},
	}
	return yaml.Marshal(&inv)
}

package config

import "time"

// CheckType identifies the probe strategy for a service.
type CheckType string

// The closed set of check kinds. Adding a kind means extending the dispatch
// in internal/checks, which the compiler will point at.
const (
	CheckTCP      CheckType = "tcp"
	CheckTLS      CheckType = "tls"
	CheckHTTP     CheckType = "http"
	CheckHTTPJSON CheckType = "httpJson"
	CheckSystemd  CheckType = "systemd"
	CheckCommand  CheckType = "sshCommand"
	CheckDocker   CheckType = "dockerContainer"
)

// Inventory is the full parsed configuration. It is replaced wholesale on
// load/reload and never mutated in place.
type Inventory struct {
	Poll        PollConfig   `mapstructure:"poll" yaml:"poll" json:"poll"`
	Credentials []Credential `mapstructure:"credentials" yaml:"credentials" json:"credentials"`
	Servers     []Server     `mapstructure:"servers" yaml:"servers" json:"servers"`
}

// PollConfig controls the polling engine schedule.
type PollConfig struct {
	// IntervalSec is the poll period in seconds. Zero means the default (15s).
	IntervalSec int `mapstructure:"intervalSec" yaml:"intervalSec" json:"intervalSec"`
}

// DefaultPollInterval is used when the inventory doesn't set one.
const DefaultPollInterval = 15 * time.Second

// Interval returns the poll period as a duration.
func (p PollConfig) Interval() time.Duration {
	if p.IntervalSec <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(p.IntervalSec) * time.Second
}

// Credential holds the materials reference for authenticating SSH sessions.
// Immutable once loaded.
type Credential struct {
	ID             string `mapstructure:"id" yaml:"id" json:"id"`
	PrivateKeyPath string `mapstructure:"privateKeyPath" yaml:"privateKeyPath,omitempty" json:"privateKeyPath,omitempty"`
	Passphrase     string `mapstructure:"passphrase" yaml:"passphrase,omitempty" json:"passphrase,omitempty"`
	Password       string `mapstructure:"password" yaml:"password,omitempty" json:"password,omitempty"`
	UseAgent       bool   `mapstructure:"useAgent" yaml:"useAgent,omitempty" json:"useAgent,omitempty"`
}

// Endpoint describes how to reach a server over SSH.
type Endpoint struct {
	Host         string `mapstructure:"host" yaml:"host" json:"host"`
	Port         int    `mapstructure:"port" yaml:"port,omitempty" json:"port,omitempty"`
	User         string `mapstructure:"user" yaml:"user" json:"user"`
	CredentialID string `mapstructure:"credentialId" yaml:"credentialId" json:"credentialId"`
}

// Server is one monitored machine with its service checks.
type Server struct {
	ID       string    `mapstructure:"id" yaml:"id" json:"id"`
	Name     string    `mapstructure:"name" yaml:"name" json:"name"`
	Env      string    `mapstructure:"env" yaml:"env,omitempty" json:"env,omitempty"`
	Color    string    `mapstructure:"color" yaml:"color,omitempty" json:"color,omitempty"`
	SSH      Endpoint  `mapstructure:"ssh" yaml:"ssh" json:"ssh"`
	Services []Service `mapstructure:"services" yaml:"services,omitempty" json:"services,omitempty"`
}

// JSONRule is one assertion evaluated against a decoded HTTP JSON body.
// Exactly one of Equals/Includes/Exists is expected to be set.
type JSONRule struct {
	Name     string `mapstructure:"name" yaml:"name,omitempty" json:"name,omitempty"`
	Path     string `mapstructure:"path" yaml:"path" json:"path"`
	Equals   string `mapstructure:"equals" yaml:"equals,omitempty" json:"equals,omitempty"`
	Includes string `mapstructure:"includes" yaml:"includes,omitempty" json:"includes,omitempty"`
	Exists   bool   `mapstructure:"exists" yaml:"exists,omitempty" json:"exists,omitempty"`
}

// Service is one health check definition. Which fields matter depends on Type.
type Service struct {
	ID   string    `mapstructure:"id" yaml:"id" json:"id"`
	Name string    `mapstructure:"name" yaml:"name" json:"name"`
	Type CheckType `mapstructure:"type" yaml:"type" json:"type"`

	// http / httpJson
	URL                string     `mapstructure:"url" yaml:"url,omitempty" json:"url,omitempty"`
	ExpectStatus       int        `mapstructure:"expectStatus" yaml:"expectStatus,omitempty" json:"expectStatus,omitempty"`
	ExpectTextIncludes string     `mapstructure:"expectTextIncludes" yaml:"expectTextIncludes,omitempty" json:"expectTextIncludes,omitempty"`
	Rules              []JSONRule `mapstructure:"rules" yaml:"rules,omitempty" json:"rules,omitempty"`

	// tcp / tls
	Host        string `mapstructure:"host" yaml:"host,omitempty" json:"host,omitempty"`
	Port        int    `mapstructure:"port" yaml:"port,omitempty" json:"port,omitempty"`
	ServerName  string `mapstructure:"servername" yaml:"servername,omitempty" json:"servername,omitempty"`
	MinDaysLeft int    `mapstructure:"minDaysLeft" yaml:"minDaysLeft,omitempty" json:"minDaysLeft,omitempty"`

	// systemd
	Unit string `mapstructure:"service" yaml:"service,omitempty" json:"service,omitempty"`

	// sshCommand
	Command   string `mapstructure:"command" yaml:"command,omitempty" json:"command,omitempty"`
	OKPattern string `mapstructure:"okPattern" yaml:"okPattern,omitempty" json:"okPattern,omitempty"`

	// dockerContainer
	Container string `mapstructure:"container" yaml:"container,omitempty" json:"container,omitempty"`

	// TimeoutMs bounds the check. Zero means the per-type default.
	TimeoutMs int `mapstructure:"timeoutMs" yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
}

// Timeout returns the configured check timeout, or def when unset.
func (s Service) Timeout(def time.Duration) time.Duration {
	if s.TimeoutMs <= 0 {
		return def
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// FindServer returns the server with the given id, or nil.
func (inv *Inventory) FindServer(id string) *Server {
	for i := range inv.Servers {
		if inv.Servers[i].ID == id {
			return &inv.Servers[i]
		}
	}
	return nil
}

// FindCredential returns the credential with the given id, or nil.
func (inv *Inventory) FindCredential(id string) *Credential {
	for i := range inv.Credentials {
		if inv.Credentials[i].ID == id {
			return &inv.Credentials[i]
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/fleetdeck/fleetdeck/internal/errors"
	"github.com/spf13/viper"
)

// Load reads and validates the inventory file at path. The file may be JSON
// (the historical format) or YAML; viper picks the parser by extension.
// A missing or malformed file is a CONFIG error and fatal at startup.
func Load(path string) (*Inventory, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrConfig, "inventory file not found: "+path)
		}
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to read inventory file: "+path)
	}

	inv := &Inventory{}
	if err := v.Unmarshal(inv); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "invalid inventory format: "+path)
	}

	if err := validate(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// validate enforces the structural invariants reload depends on: unique ids,
// resolvable credential references, and well-formed endpoints.
func validate(inv *Inventory) error {
	credIDs := make(map[string]struct{}, len(inv.Credentials))
	for _, c := range inv.Credentials {
		if c.ID == "" {
			return errors.New(errors.ErrConfig, "credential with empty id")
		}
		if _, dup := credIDs[c.ID]; dup {
			return errors.Newf(errors.ErrConfig, "duplicate credential id %q", c.ID)
		}
		credIDs[c.ID] = struct{}{}
	}

	serverIDs := make(map[string]struct{}, len(inv.Servers))
	for _, s := range inv.Servers {
		if s.ID == "" {
			return errors.New(errors.ErrConfig, "server with empty id")
		}
		if _, dup := serverIDs[s.ID]; dup {
			return errors.Newf(errors.ErrConfig, "duplicate server id %q", s.ID)
		}
		serverIDs[s.ID] = struct{}{}

		if s.SSH.Host == "" || s.SSH.User == "" {
			return errors.Newf(errors.ErrConfig, "server %q: ssh endpoint requires host and user", s.ID)
		}
		if s.SSH.CredentialID != "" {
			if _, ok := credIDs[s.SSH.CredentialID]; !ok {
				return errors.Newf(errors.ErrConfig,
					"server %q references unknown credential %q", s.ID, s.SSH.CredentialID)
			}
		}

		svcIDs := make(map[string]struct{}, len(s.Services))
		for _, svc := range s.Services {
			if svc.ID == "" {
				return errors.Newf(errors.ErrConfig, "server %q: service with empty id", s.ID)
			}
			if _, dup := svcIDs[svc.ID]; dup {
				return errors.Newf(errors.ErrConfig,
					"server %q: duplicate service id %q", s.ID, svc.ID)
			}
			svcIDs[svc.ID] = struct{}{}
			if svc.Type == "" {
				return errors.Newf(errors.ErrConfig,
					"server %q: service %q has no type", s.ID, svc.ID)
			}
		}
	}
	return nil
}

// Summary returns a short human description of an inventory, for logs.
func Summary(inv *Inventory) string {
	services := 0
	for _, s := range inv.Servers {
		services += len(s.Services)
	}
	return fmt.Sprintf("%d servers, %d services, %d credentials, poll %s",
		len(inv.Servers), services, len(inv.Credentials), inv.Poll.Interval())
}

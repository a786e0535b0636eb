// Package creds resolves credential ids into the materials needed to
// authenticate an SSH session, with a cache invalidated on inventory reload.
package creds

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/errors"
	"go.uber.org/zap"
)

// Bundle is a resolved credential: everything sshutil needs to authenticate.
// PrivateKey is nil when the key file was unreadable; agent or password auth
// may still succeed.
type Bundle struct {
	ID         string
	PrivateKey []byte
	Passphrase string
	Password   string
	UseAgent   bool
}

// Resolver caches resolved bundles by credential id. The cache is dropped
// wholesale when the inventory store's generation advances, so a reload
// forces key material to be re-read from disk.
type Resolver struct {
	store *config.Store
	log   *zap.Logger

	mu    sync.Mutex
	gen   uint64
	cache map[string]*Bundle
}

// NewResolver creates a resolver backed by the given inventory store.
func NewResolver(store *config.Store, log *zap.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log,
		cache: make(map[string]*Bundle),
	}
}

// Resolve returns the cached bundle for id, or looks the credential up and
// reads its key material. Unknown ids yield a NOT_FOUND error. A key file
// read failure is tolerated: the bundle is still cached and returned.
func (r *Resolver) Resolve(id string) (*Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen := r.store.Generation(); gen != r.gen {
		r.cache = make(map[string]*Bundle)
		r.gen = gen
	}

	if b, ok := r.cache[id]; ok {
		return b, nil
	}

	cred := r.store.Current().FindCredential(id)
	if cred == nil {
		return nil, errors.Newf(errors.ErrNotFound, "credential not found: %s", id)
	}

	b := &Bundle{
		ID:         cred.ID,
		Passphrase: cred.Passphrase,
		Password:   cred.Password,
		UseAgent:   cred.UseAgent,
	}
	if cred.PrivateKeyPath != "" {
		key, err := os.ReadFile(expandHome(cred.PrivateKeyPath))
		if err != nil {
			// Not fatal: agent or password auth may still work.
			r.log.Warn("private key unreadable",
				zap.String("credential", id), zap.Error(err))
		} else {
			b.PrivateKey = key
		}
	}

	r.cache[id] = b
	return b, nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

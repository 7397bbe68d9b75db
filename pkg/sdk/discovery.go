package sdk

import (
	"github.com/celerix-dev/celerix-bugs/internal/config"
	"github.com/celerix-dev/celerix-bugs/internal/directory"
	"github.com/celerix-dev/celerix-bugs/internal/engine"
	"github.com/celerix-dev/celerix-bugs/internal/lifecycle"
	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/internal/vault"
)

// LocalOptions locates the embedded store.
type LocalOptions struct {
	DataDir   string
	DataKey   []byte
	UsersFile string
}

// OpenLocal loads the persisted snapshot and starts an embedded tracker.
// Close flushes pending snapshot writes.
func OpenLocal(opts LocalOptions) (*Local, error) {
	dir, err := directory.Load(opts.UsersFile)
	if err != nil {
		return nil, err
	}

	p, err := engine.NewPersistence(opts.DataDir, opts.DataKey)
	if err != nil {
		return nil, err
	}
	bugs, err := p.LoadAll()
	if err != nil {
		return nil, err
	}

	store := engine.NewMemStore(bugs, p)
	logging.New("sdk").Debug("embedded store opened", "data_dir", opts.DataDir, "bugs", len(bugs))
	return NewLocal(lifecycle.New(store), dir, store.Wait), nil
}

// New initializes the tracker based on the configuration.
// It returns the interface, so the caller doesn't care if it's local or remote.
func New(cfg *config.ClientConfig) (Tracker, error) {
	// 1. A configured remote daemon wins; a failed dial is reported rather
	// than silently falling back to a local copy of the data.
	if cfg.StoreAddr != "" {
		return Connect(cfg.StoreAddr, WithTLS(!cfg.DisableTLS))
	}

	// 2. Fallback to Embedded Mode
	// This uses the same engine the server uses, but inside the app process.
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	var key []byte
	if cfg.DataKey != "" {
		var err error
		if key, err = vault.ParseKey(cfg.DataKey); err != nil {
			return nil, err
		}
	}
	return OpenLocal(LocalOptions{DataDir: dataDir, DataKey: key, UsersFile: cfg.UsersFile})
}

package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/internal/vault"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// SnapshotFile is the snapshot name inside the data directory.
const SnapshotFile = "bugs.json"

type snapshot struct {
	Version int                `json:"version"`
	Bugs    []schema.BugReport `json:"bugs"`
}

// Persistence handles the disk I/O for the MemStore.
type Persistence struct {
	DataDir string
	key     []byte

	mu      sync.Mutex // Protects concurrent writes to the filesystem
	lastSeq uint64
	log     *slog.Logger
}

// NewPersistence initializes a persistence handler. A non-nil key enables
// AES-GCM encryption of the snapshot.
func NewPersistence(dir string, key []byte) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if key != nil && len(key) != vault.KeySize {
		return nil, fmt.Errorf("data key must be %d bytes", vault.KeySize)
	}
	return &Persistence{DataDir: dir, key: key, log: logging.New("persistence")}, nil
}

func (p *Persistence) path() string {
	return filepath.Join(p.DataDir, SnapshotFile)
}

// Save writes bugs atomically unless a newer sequence has already been
// written. Failures are logged; the in-memory store stays authoritative.
func (p *Persistence) Save(seq uint64, bugs []schema.BugReport) {
	if err := p.save(seq, bugs); err != nil {
		p.log.Error("snapshot write failed", "seq", seq, "err", err)
	}
}

func (p *Persistence) save(seq uint64, bugs []schema.BugReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != 0 && seq <= p.lastSeq {
		return nil
	}

	data, err := json.MarshalIndent(snapshot{Version: 1, Bugs: bugs}, "", "  ")
	if err != nil {
		return err
	}
	if p.key != nil {
		if data, err = vault.Seal(data, p.key); err != nil {
			return fmt.Errorf("seal snapshot: %w", err)
		}
	}

	// Write to a temporary file first, then rename over the old snapshot so
	// a crash leaves either the old file or the new one.
	tempPath := p.path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, p.path()); err != nil {
		return err
	}
	if seq != 0 {
		p.lastSeq = seq
	}
	return nil
}

// LoadAll returns the persisted bugs in creation order. A missing snapshot
// yields an empty result.
func (p *Persistence) LoadAll() ([]schema.BugReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if p.key != nil {
		if data, err = vault.Open(data, p.key); err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", p.path(), err)
	}
	return snap.Bugs, nil
}

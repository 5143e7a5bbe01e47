// Package state persists the reconciliation workflow's intermediate files:
// the pending review queue, the approved decision list, and the cached
// commodity catalog. Snapshots are whole-collection JSON documents wrapped
// in a versioned envelope and written atomically, so independently run
// phases can hand work to each other across process restarts.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

// SnapshotVersion is the current on-disk format. Files with a different
// version are rejected rather than misparsed.
const SnapshotVersion = 1

const (
	catalogFile  = "ca_usda_commodities.json"
	pendingFile  = "pending_matches.json"
	approvedFile = "approved_matches.json"
)

// envelope wraps every snapshot file with its format version.
type envelope[T any] struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Items   []T       `json:"items"`
}

// Store reads and writes workflow snapshots under a single cache directory.
type Store struct {
	dir string
	log *zap.Logger
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "state: create cache dir %s", dir)
	}
	return &Store{
		dir: dir,
		log: zap.L().With(zap.String("component", "state")),
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// LoadPending returns the pending review queue, empty when no snapshot
// exists.
func (s *Store) LoadPending() ([]commodity.ReviewItem, error) {
	return load[commodity.ReviewItem](s, pendingFile)
}

// SavePending overwrites the pending review queue. Callers merge before
// saving; this is a full snapshot, not an append.
func (s *Store) SavePending(items []commodity.ReviewItem) error {
	return save(s, pendingFile, items)
}

// LoadApproved returns the approved decision list, empty when no snapshot
// exists.
func (s *Store) LoadApproved() ([]commodity.Decision, error) {
	return load[commodity.Decision](s, approvedFile)
}

// SaveApproved overwrites the approved decision list.
func (s *Store) SaveApproved(decisions []commodity.Decision) error {
	return save(s, approvedFile, decisions)
}

// LoadCatalog returns the cached commodity catalog, empty when never
// fetched.
func (s *Store) LoadCatalog() ([]commodity.Commodity, error) {
	return load[commodity.Commodity](s, catalogFile)
}

// SaveCatalog overwrites the cached commodity catalog.
func (s *Store) SaveCatalog(catalog []commodity.Commodity) error {
	return save(s, catalogFile, catalog)
}

func load[T any](s *Store, name string) ([]T, error) {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "state: read %s", name)
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt snapshots are treated as empty so a first run or a
		// manual delete-to-reset behaves the same as a damaged file.
		s.log.Warn("snapshot unreadable, treating as empty",
			zap.String("file", name),
			zap.Error(err),
		)
		return nil, nil
	}

	if env.Version != SnapshotVersion {
		return nil, eris.Errorf("state: %s has format version %d, want %d (delete the file to reset)",
			name, env.Version, SnapshotVersion)
	}

	return env.Items, nil
}

// save writes the snapshot through a temp file and renames it into place,
// so a crash mid-write never leaves a half-written snapshot.
func save[T any](s *Store, name string, items []T) error {
	env := envelope[T]{
		Version: SnapshotVersion,
		SavedAt: time.Now().UTC(),
		Items:   items,
	}
	if env.Items == nil {
		env.Items = []T{}
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "state: marshal %s", name)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "state: create temp file for %s", name)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return eris.Wrapf(err, "state: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "state: close %s", name)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "state: rename %s into place", name)
	}
	return nil
}

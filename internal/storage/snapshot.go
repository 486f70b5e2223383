package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MaxAutoSnapshots is how many automatic snapshots survive cleanup.
const MaxAutoSnapshots = 5

var (
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotExists    = errors.New("snapshot already exists")
	ErrSnapshotCorrupted = errors.New("snapshot integrity check failed")
	ErrInvalidSnapshotID = errors.New("invalid snapshot id")
	ErrInMemoryDatabase  = errors.New("in-memory databases cannot be snapshotted")
)

// Snapshot describes a point-in-time copy of the bills database.
type Snapshot struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	Size          int64     `json:"size"`
	Records       int       `json:"records"`
	Categories    int       `json:"categories"`
	Hints         int       `json:"hints"`
	SchemaVersion int       `json:"schema_version"`
	Auto          bool      `json:"auto"`
}

// Snapshots stores copies of the database in a directory beside it.
type Snapshots struct {
	store *SQLiteStorage
	dir   string
	now   func() time.Time
}

// NewSnapshots prepares the snapshot directory for store.
func NewSnapshots(store *SQLiteStorage) (*Snapshots, error) {
	if store.Path() == ":memory:" {
		return nil, ErrInMemoryDatabase
	}

	dir := filepath.Join(filepath.Dir(store.Path()), "snapshots")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &Snapshots{store: store, dir: dir, now: time.Now}, nil
}

// Dir returns the directory holding the snapshots.
func (s *Snapshots) Dir() string {
	return s.dir
}

// Create copies the live database under id. An empty id is generated from the clock.
func (s *Snapshots) Create(ctx context.Context, id, description string) (*Snapshot, error) {
	return s.create(ctx, id, description, false)
}

// Auto snapshots the database before an operation named reason and prunes
// automatic snapshots beyond MaxAutoSnapshots.
func (s *Snapshots) Auto(ctx context.Context, reason string) (*Snapshot, error) {
	now := s.now()
	id := fmt.Sprintf("auto-%s-%s", reason, now.Format("20060102-150405.000"))
	snap, err := s.create(ctx, strings.ReplaceAll(id, ".", ""), "before "+reason, true)
	if err != nil {
		return nil, err
	}

	if err := s.prune(ctx); err != nil {
		slog.Warn("Failed to prune automatic snapshots", "error", err)
	}
	return snap, nil
}

func (s *Snapshots) create(ctx context.Context, id, description string, auto bool) (*Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		id = "snapshot-" + s.now().Format("20060102-150405")
	}
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}

	dbPath := s.dataPath(id)
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, id)
	}

	version, err := s.store.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{
		ID:            id,
		CreatedAt:     s.now(),
		Description:   description,
		SchemaVersion: version,
		Auto:          auto,
	}
	if err := s.count(ctx, &snap); err != nil {
		return nil, err
	}

	if err := s.copyDatabase(ctx, dbPath); err != nil {
		_ = os.Remove(dbPath)
		return nil, fmt.Errorf("failed to copy database: %w", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	snap.Size = info.Size()

	if err := writeMeta(s.metaPath(id), snap); err != nil {
		_ = os.Remove(dbPath)
		return nil, err
	}

	slog.Info("Created snapshot", "id", id, "records", snap.Records, "auto", auto)
	return &snap, nil
}

// List returns every readable snapshot, newest first.
func (s *Snapshots) List(_ context.Context) ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	snaps := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		snap, err := readMeta(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable snapshot metadata", "file", entry.Name(), "error", err)
			continue
		}
		snaps = append(snaps, *snap)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
		}
		return snaps[i].ID > snaps[j].ID
	})
	return snaps, nil
}

// Get returns the metadata of one snapshot.
func (s *Snapshots) Get(_ context.Context, id string) (*Snapshot, error) {
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}
	snap, err := readMeta(s.metaPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return snap, err
}

// Restore replaces the database file with snapshot id. The storage is closed
// first and must be reopened by the caller.
func (s *Snapshots) Restore(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	src := s.dataPath(id)
	if err := checkIntegrity(src); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupted, err)
	}

	dbPath := s.store.Path()
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// Stale write-ahead files would be replayed over the restored copy.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}

	if err := copyFile(src, dbPath); err != nil {
		return fmt.Errorf("failed to restore snapshot %s: %w", id, err)
	}

	slog.Info("Restored snapshot", "id", id)
	return nil
}

// Delete removes snapshot id.
func (s *Snapshots) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(s.dataPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		return fmt.Errorf("failed to remove snapshot metadata: %w", err)
	}
	return nil
}

func (s *Snapshots) prune(ctx context.Context) error {
	snaps, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, snap := range snaps {
		if !snap.Auto {
			continue
		}
		kept++
		if kept <= MaxAutoSnapshots {
			continue
		}
		if err := s.Delete(ctx, snap.ID); err != nil {
			slog.Debug("Failed to delete old snapshot", "id", snap.ID, "error", err)
		}
	}
	return nil
}

func (s *Snapshots) count(ctx context.Context, snap *Snapshot) error {
	counts := []struct {
		dst   *int
		query string
	}{
		{&snap.Records, "SELECT COUNT(*) FROM records"},
		{&snap.Categories, "SELECT COUNT(*) FROM categories"},
		{&snap.Hints, "SELECT COUNT(*) FROM personalizations"},
	}
	for _, c := range counts {
		if err := s.store.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return nil
}

// copyDatabase writes a consistent copy of the live database with VACUUM INTO.
func (s *Snapshots) copyDatabase(ctx context.Context, dst string) error {
	if _, err := s.store.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	quoted := "'" + strings.ReplaceAll(dst, "'", "''") + "'"
	// #nosec G202 -- the path is quoted as an SQL string literal
	if _, err := s.store.db.ExecContext(ctx, "VACUUM INTO "+quoted); err != nil {
		return err
	}
	return nil
}

func (s *Snapshots) dataPath(id string) string {
	return filepath.Join(s.dir, id+".db")
}

func (s *Snapshots) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func validateSnapshotID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return nil
}

func checkIntegrity(path string) error {
	store, err := NewSQLiteStorage(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var result string
	if err := store.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return errors.New(result)
	}
	return nil
}

func writeMeta(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot metadata: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

func readMeta(path string) (*Snapshot, error) {
	// #nosec G304 -- path is built from a validated snapshot id
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot metadata: %w", err)
	}
	return &snap, nil
}

// copyFile copies src over dst through a temporary file and a rename.
func copyFile(src, dst string) error {
	// #nosec G304 -- src is a snapshot path
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp) // #nosec G304
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

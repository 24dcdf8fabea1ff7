package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"tutorpass/internal/types"
)

// Snapshot is the on-disk representation of the full store: three ordered
// collections serialized as a single JSON document. Order in the file is the
// store's insertion order and is preserved across load/save cycles.
type Snapshot struct {
	Users       []*types.User       `json:"users"`
	Templates   []*types.Template   `json:"templates"`
	Memberships []*types.Membership `json:"memberships"`
}

// SnapshotFile reads and writes the snapshot at a fixed path. Writes are
// atomic (temp file + rename) and the previous snapshot is kept as a rotated
// gzip backup alongside the live file.
type SnapshotFile struct {
	path    string
	backups int
}

// NewSnapshotFile returns a gateway for the snapshot at path keeping up to
// backups rotated copies. backups < 0 is treated as 0.
func NewSnapshotFile(path string, backups int) *SnapshotFile {
	if backups < 0 {
		backups = 0
	}
	return &SnapshotFile{path: path, backups: backups}
}

// Load reads and decodes the snapshot. A missing file and a file that fails
// to decode are both reported as errors; the caller decides whether to seed.
func (f *SnapshotFile) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically. The previous live file, if any, is
// rotated into a gzip backup first so a crash mid-write never loses the last
// good state.
func (f *SnapshotFile) Save(snap *Snapshot) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if f.backups > 0 {
		if err := f.rotate(); err != nil {
			return fmt.Errorf("rotate snapshot backups: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// rotate shifts backup generations up by one and compresses the current live
// file into the first slot. Generation 1 is the newest backup.
func (f *SnapshotFile) rotate() error {
	if _, err := os.Stat(f.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	oldest := f.backupPath(f.backups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return err
	}
	for gen := f.backups - 1; gen >= 1; gen-- {
		src := f.backupPath(gen)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, f.backupPath(gen+1)); err != nil {
			return err
		}
	}

	return f.compress(f.path, f.backupPath(1))
}

func (f *SnapshotFile) backupPath(gen int) string {
	return fmt.Sprintf("%s.%d.gz", f.path, gen)
}

func (f *SnapshotFile) compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CheckWritable verifies the snapshot directory can be created and written,
// without touching the live file.
func (f *SnapshotFile) CheckWritable() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir unavailable: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("snapshot dir not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

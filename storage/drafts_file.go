package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofrs/flock"
)

const lockTimeout = 3 * time.Second

// FileDrafts keeps drafts in a JSON object on disk. A sibling .lock file
// guards read-modify-write cycles against other processes.
type FileDrafts struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

func NewFileDrafts(path string) *FileDrafts {
	return &FileDrafts{path: path, lock: flock.New(path + ".lock")}
}

func (d *FileDrafts) Get(ctx context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	unlock, err := d.acquire(ctx)
	if err != nil {
		return "", false, err
	}
	defer unlock()

	values, err := d.load()
	if err != nil {
		return "", false, err
	}
	val, ok := values[key]
	return val, ok, nil
}

func (d *FileDrafts) Set(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	unlock, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	values, err := d.load()
	if err != nil {
		return err
	}
	values[key] = value
	return d.save(values)
}

func (d *FileDrafts) acquire(ctx context.Context) (func(), error) {
	if err := d.ensureDir(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := d.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire file lock")
	}
	return func() { _ = d.lock.Unlock() }, nil
}

func (d *FileDrafts) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read drafts: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := sonic.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse drafts: %w", err)
	}
	return values, nil
}

// save writes to a temp file and renames it over the drafts file.
func (d *FileDrafts) save(values map[string]string) error {
	data, err := sonic.ConfigStd.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write drafts: %w", err)
	}
	return os.Rename(tmp, d.path)
}

// ensureDir creates the directory holding the drafts and lock files.
func (d *FileDrafts) ensureDir() error {
	dir := filepath.Dir(d.path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create drafts directory: %w", err)
	}
	return nil
}

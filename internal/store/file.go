package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// DefaultFileQuota mirrors the typical browser localStorage budget.
const DefaultFileQuota int64 = 5 << 20

const fileExt = ".json"

var reKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// File keeps one file per key inside a directory. Writes go to a temp file and are renamed
// into place, so a reader never observes a partially written blob.
type File struct {
	mu    sync.Mutex
	dir   string
	quota int64 // total bytes across keys; 0 = unlimited
}

// NewFile creates dir if needed and returns a store rooted there.
func NewFile(dir string, quota int64) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, Wrap("open", err)
	}
	return &File{dir: dir, quota: quota}, nil
}

// Dir returns the root directory.
func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) (string, error) {
	if !reKey.MatchString(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(f.dir, key+fileExt), nil
}

// Get reads the blob for key.
func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, Wrap("get", err)
	}
	p, err := f.path(key)
	if err != nil {
		return "", false, Wrap("get", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, Wrap("get", err)
	}
	return string(b), true, nil
}

// Set atomically replaces the blob for key.
func (f *File) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("set", err)
	}
	p, err := f.path(key)
	if err != nil {
		return Wrap("set", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.quota > 0 {
		used, err := f.usedExcept(p)
		if err != nil {
			return Wrap("set", err)
		}
		if need := used + int64(len(value)); need > f.quota {
			return quotaErr(key, need, f.quota)
		}
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return Wrap("set", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return Wrap("set", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Wrap("set", err)
	}
	if err := tmp.Close(); err != nil {
		return Wrap("set", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return Wrap("set", err)
	}
	return nil
}

// Remove deletes the file for key; a missing file is fine.
func (f *File) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("remove", err)
	}
	p, err := f.path(key)
	if err != nil {
		return Wrap("remove", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Wrap("remove", err)
	}
	return nil
}

func (f *File) usedExcept(skip string) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if filepath.Join(f.dir, e.Name()) == skip {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Filesystem implements Store on a local directory.
// Keys are mapped to relative file paths under the root. A simple metadata
// sidecar (filename + `.meta`) stores content type and a generation counter
// that serves as the version token. Conditional writes are serialized by a
// process-wide mutex, which is sufficient for the single-process deployments
// this driver targets.
type Filesystem struct {
	root string
	mu   sync.Mutex
}

// NewFilesystem returns a filesystem blob store rooted at path, creating it if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

// Driver returns the blob driver identifier.
func (f *Filesystem) Driver() Driver { return DriverFilesystem }

// sanitizeKey ensures key doesn't escape root and forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid key traversal")
	}
	return clean, nil
}

func (f *Filesystem) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(f.root, filepath.FromSlash(k))
	metaPath = dataPath + ".meta"
	return
}

type fsMeta struct {
	ContentType string    `json:"content_type,omitempty"`
	Generation  uint64    `json:"generation"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Exists reports whether key has been written.
func (f *Filesystem) Exists(_ context.Context, key string) (bool, error) {
	dataPath, _, err := f.pathFor(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(dataPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the stored content and its version info.
func (f *Filesystem) Read(_ context.Context, key string) ([]byte, Info, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return nil, Info{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Info{}, fmt.Errorf("read %s: %w", key, ErrNotFound)
		}
		return nil, Info{}, err
	}
	meta, err := readMeta(metaPath)
	if err != nil {
		return nil, Info{}, err
	}
	return data, f.infoFor(key, meta), nil
}

// Write stores data under key, honoring conditional semantics.
func (f *Filesystem) Write(_ context.Context, key string, data []byte, opts WriteOptions) (Info, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var current fsMeta
	exists := true
	if _, statErr := os.Stat(dataPath); statErr != nil {
		if !os.IsNotExist(statErr) {
			return Info{}, statErr
		}
		exists = false
	} else {
		current, err = readMeta(metaPath)
		if err != nil {
			return Info{}, err
		}
	}
	if opts.ExpectedVersion != nil {
		want := *opts.ExpectedVersion
		switch {
		case want == "" && exists:
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		case want != "" && !exists:
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		case want != "" && exists && strconv.FormatUint(current.Generation, 10) != want:
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, err
	}
	// stream to temp file then atomically move into place
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, err
	}
	meta := fsMeta{
		ContentType: opts.ContentType,
		Generation:  current.Generation + 1,
		Size:        int64(len(data)),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return Info{}, err
	}
	return f.infoFor(key, meta), nil
}

func (f *Filesystem) infoFor(key string, meta fsMeta) Info {
	return Info{
		Key:          key,
		Size:         meta.Size,
		ContentType:  meta.ContentType,
		Version:      strconv.FormatUint(meta.Generation, 10),
		LastModified: meta.UpdatedAt,
	}
}

func readMeta(path string) (fsMeta, error) {
	var meta fsMeta
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Data without sidecar (hand-placed file): treat as generation 1.
			return fsMeta{Generation: 1}, nil
		}
		return meta, err
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return meta, fmt.Errorf("decode meta %s: %w", path, err)
	}
	return meta, nil
}

func writeMeta(path string, meta fsMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, fs.FileMode(0o644)); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

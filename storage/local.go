package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brainydb/brainy/errs"
)

// LocalAdapter stores blobs under a base directory on disk, optionally
// gzip-compressing each blob (spec §4.1 local filesystem adapter).
type LocalAdapter struct {
	baseDir string
	gzip    bool
}

func NewLocalAdapter(baseDir string, gzipBlobs bool) *LocalAdapter {
	return &LocalAdapter{baseDir: baseDir, gzip: gzipBlobs}
}

func (l *LocalAdapter) fsPath(path string) string {
	clean := filepath.Clean("/" + path)
	return filepath.Join(l.baseDir, clean)
}

func (l *LocalAdapter) Read(_ context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errNilAdapterPath
	}
	raw, err := os.ReadFile(l.fsPath(path))
	if os.IsNotExist(err) {
		return nil, errs.NotFoundf("no object at %q", path)
	}
	if err != nil {
		return nil, errs.Storagef(true, err, "read %q", path)
	}
	if !l.gzip {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Integrityf(err, "corrupt gzip blob at %q", path)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errs.Integrityf(err, "corrupt gzip blob at %q", path)
	}
	return out, nil
}

func (l *LocalAdapter) Write(_ context.Context, path string, data []byte) error {
	if path == "" {
		return errNilAdapterPath
	}
	full := l.fsPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errs.Storagef(true, err, "mkdir for %q", path)
	}

	payload := data
	if l.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return errs.Storagef(false, err, "gzip %q", path)
		}
		if err := zw.Close(); err != nil {
			return errs.Storagef(false, err, "gzip %q", path)
		}
		payload = buf.Bytes()
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errs.Storagef(true, err, "write %q", path)
	}
	if err := os.Rename(tmp, full); err != nil {
		return errs.Storagef(true, err, "rename into place %q", path)
	}
	return nil
}

func (l *LocalAdapter) Delete(_ context.Context, path string) error {
	err := os.Remove(l.fsPath(path))
	if err != nil && !os.IsNotExist(err) {
		return errs.Storagef(true, err, "delete %q", path)
	}
	return nil
}

func (l *LocalAdapter) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	root := l.fsPath(prefix)
	var out []ObjectInfo
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(l.baseDir, p)
		if rerr != nil {
			return rerr
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), ".tmp")
		out = append(out, ObjectInfo{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, errs.Storagef(true, err, "list %q", prefix)
	}
	return out, nil
}

func (l *LocalAdapter) ReadBatch(ctx context.Context, paths []string) (map[string][]byte, error) {
	return boundedEach(ctx, paths, l.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		data, err := l.Read(ctx, path)
		if err == nil {
			return data, true, nil
		}
		if errs.IsTransientStorage(err) {
			return nil, false, err
		}
		return nil, false, nil
	})
}

func (l *LocalAdapter) DeleteBatch(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := l.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Concurrency is bounded only by local disk I/O; a moderate cap avoids
// exhausting file descriptors on very large batches.
func (l *LocalAdapter) Concurrency() int { return 64 }

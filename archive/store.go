package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/seisclust/blobstore"
)

// SaveTo packs the payload and uploads it to a blob store under the given
// key. The key's extension selects the compression; a bare key gets the
// default ".tgz".
func SaveTo(ctx context.Context, store blobstore.Store, key string, p *Payload, opts ...Option) (string, error) {
	comp, ok := compressionForPath(key)
	if !ok {
		comp = CompressionGzip
		key += comp.Ext()
	}

	tmpDir, err := os.MkdirTemp("", "seisclust-save-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	local := filepath.Join(tmpDir, path.Base(key))
	saveOpts := append([]Option{WithCompression(comp)}, opts...)
	if err := Save(local, p, saveOpts...); err != nil {
		return "", err
	}

	f, err := os.Open(local)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if err := store.Put(ctx, key, f, info.Size()); err != nil {
		return "", fmt.Errorf("archive: upload %s: %w", key, err)
	}
	return key, nil
}

// LoadFrom downloads a packed archive from a blob store and loads it.
func LoadFrom(ctx context.Context, store blobstore.Store, key string, opts ...Option) (*Payload, error) {
	if _, ok := compressionForPath(key); !ok && !strings.HasSuffix(key, snapshotExt) {
		return nil, fmt.Errorf("archive: key %q has no recognized archive extension", key)
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("archive: download %s: %w", key, err)
	}
	defer rc.Close()

	tmpDir, err := os.MkdirTemp("", "seisclust-load-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	local := filepath.Join(tmpDir, path.Base(key))
	f, err := os.Create(local)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return Load(local, opts...)
}

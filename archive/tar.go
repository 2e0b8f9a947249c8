package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a saved archive directory is packed.
type Compression int

const (
	// CompressionNone keeps the working directory as the artifact.
	CompressionNone Compression = iota
	// CompressionGzip packs to a gzip tar ("<name>.tgz"). The default.
	CompressionGzip
	// CompressionLZ4 packs to an lz4 tar ("<name>.tar.lz4"). Faster but
	// larger than gzip; useful when archives are written in bulk.
	CompressionLZ4
)

// Ext returns the archive file extension for the compression.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".tgz"
	case CompressionLZ4:
		return ".tar.lz4"
	}
	return ""
}

func compressionForPath(path string) (Compression, bool) {
	switch {
	case strings.HasSuffix(path, ".tgz"), strings.HasSuffix(path, ".tar.gz"):
		return CompressionGzip, true
	case strings.HasSuffix(path, ".tar.lz4"):
		return CompressionLZ4, true
	}
	return CompressionNone, false
}

// pack writes the directory into a single tar archive at dst, nesting the
// members under the directory's base name.
func pack(dir, dst string, comp Compression) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	var cw io.WriteCloser
	switch comp {
	case CompressionGzip:
		cw = gzip.NewWriter(f)
	case CompressionLZ4:
		cw = lz4.NewWriter(f)
	default:
		return fmt.Errorf("archive: cannot pack with compression %d", comp)
	}

	tw := tar.NewWriter(cw)
	base := filepath.Base(dir)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		arcname := base
		if rel != "." {
			arcname = filepath.ToSlash(filepath.Join(base, rel))
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = arcname
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// unpack extracts a tar archive into dstDir, refusing members whose paths
// would escape it.
func unpack(src, dstDir string, comp Compression) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var cr io.Reader
	switch comp {
	case CompressionGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		cr = gr
	case CompressionLZ4:
		cr = lz4.NewReader(f)
	default:
		return fmt.Errorf("archive: cannot unpack with compression %d", comp)
	}

	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := sanitizeMember(dstDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and specials could smuggle content outside the
			// extraction dir; skip them.
		}
	}
}

// sanitizeMember validates a tar member name against path traversal and
// returns the extraction target path.
func sanitizeMember(dstDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(dstDir, clean), nil
}

// Package archive persists the full clustering state (templates, membership
// table, per-method parameter records and distance matrix) as a single
// self-describing artifact.
//
// On-disk layout (directory, optionally tar-packed):
//
//	<archive-root>/
//	  <template-name>.ms    one waveform file per template
//	  events.json           combined event metadata (optional)
//	  clusters.csv          membership table (index=name, columns=method,...)
//	  <method>_kwargs.csv   one per clustering method (key,value lines)
//	  dist_mat.npy          raw N×N float64 array (optional)
//
// Reading tolerates missing optional parts; it fails hard only on
// structural problems (path traversal in a packed archive, malformed
// membership table, malformed distance matrix).
package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/membership"
	"github.com/hupe1980/seisclust/params"
	"github.com/hupe1980/seisclust/template"
)

const (
	clustersFile = "clusters.csv"
	distMatFile  = "dist_mat.npy"
	kwargsSuffix = "_kwargs.csv"
	eventsBase   = "events"
)

var (
	// ErrUnsupportedFormat is returned when an unsupported event metadata
	// format is requested on save.
	ErrUnsupportedFormat = errors.New("archive: unsupported event metadata format")
	// ErrUnsafePath is returned when a packed archive member would escape
	// the extraction directory.
	ErrUnsafePath = errors.New("archive: unsafe member path")
	// ErrBadTemplateName is returned when a template name cannot be used as
	// an archive file name.
	ErrBadTemplateName = errors.New("archive: template name not usable as file name")
)

// Payload is the full state moved through the archive codec.
type Payload struct {
	Templates []*template.Template
	Table     *membership.Table
	Params    params.Records
	DistMat   *distmat.Matrix
}

type options struct {
	compression Compression
	eventFormat string
	logger      *slog.Logger
}

// Option configures Save/Load behavior.
type Option func(*options)

// WithCompression selects the packing of the saved archive.
// CompressionNone leaves the directory itself as the persisted artifact.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithEventFormat selects the combined event metadata format (default JSON).
func WithEventFormat(format string) Option {
	return func(o *options) { o.eventFormat = format }
}

// WithLogger sets the diagnostics sink for recoverable load anomalies.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{
		compression: CompressionGzip,
		eventFormat: "JSON",
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Save persists the payload at path. With compression the on-disk working
// directory is packed into a single archive file and removed; without it,
// the directory is the artifact.
func Save(path string, p *Payload, opts ...Option) error {
	o := applyOptions(opts)
	if _, ok := template.CatalogExtMap[o.eventFormat]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, o.eventFormat)
	}

	dir := path
	if o.compression != CompressionNone {
		ext := o.compression.Ext()
		if !strings.HasSuffix(path, ext) {
			o.logger.Info("appending archive extension", "ext", ext)
			path += ext
		}
		dir = strings.TrimSuffix(path, ext)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeDir(dir, p, o.eventFormat); err != nil {
		os.RemoveAll(dir)
		return err
	}
	if o.compression == CompressionNone {
		return nil
	}

	if err := pack(dir, path, o.compression); err != nil {
		os.RemoveAll(dir)
		return err
	}
	return os.RemoveAll(dir)
}

// Load reads an archive: a packed file, a plain directory, or a legacy
// single-object snapshot (".json").
func Load(path string, opts ...Option) (*Payload, error) {
	o := applyOptions(opts)

	if strings.HasSuffix(path, snapshotExt) {
		return ReadSnapshot(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return readDir(path, o.logger)
	}

	comp, ok := compressionForPath(path)
	if !ok {
		return nil, fmt.Errorf("archive: unrecognized archive file %s", path)
	}
	tmp, err := os.MkdirTemp("", "seisclust-load-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	if err := unpack(path, tmp, comp); err != nil {
		return nil, err
	}
	return readDir(archiveRoot(tmp), o.logger)
}

// archiveRoot resolves the directory holding the archive members: the single
// top-level directory when the packer nested one, else the extraction root.
func archiveRoot(tmp string) string {
	entries, err := os.ReadDir(tmp)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return tmp
	}
	return filepath.Join(tmp, entries[0].Name())
}

func writeDir(dir string, p *Payload, eventFormat string) error {
	// Combined event collection, skipped entirely when no template carries
	// metadata. Each event is tagged with its template's marker comment so
	// load can re-attach it.
	var events []*template.Event
	for _, t := range p.Templates {
		if t.Event == nil {
			continue
		}
		ev := t.Event.Clone()
		ev.Tag(t.Name)
		events = append(events, ev)
	}
	if len(events) > 0 {
		name := eventsBase + "." + template.CatalogExtMap[eventFormat]
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := template.WriteCatalog(f, events, eventFormat); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	for _, t := range p.Templates {
		if !safeFileName(t.Name) {
			return fmt.Errorf("%w: %q", ErrBadTemplateName, t.Name)
		}
		f, err := os.Create(filepath.Join(dir, t.Name+template.WaveformExt))
		if err != nil {
			return err
		}
		if err := t.Waveform.Encode(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if p.Table != nil {
		f, err := os.Create(filepath.Join(dir, clustersFile))
		if err != nil {
			return err
		}
		if err := p.Table.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	for method, kw := range p.Params {
		f, err := os.Create(filepath.Join(dir, method+kwargsSuffix))
		if err != nil {
			return err
		}
		if err := kw.WriteKV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if p.DistMat != nil {
		f, err := os.Create(filepath.Join(dir, distMatFile))
		if err != nil {
			return err
		}
		if err := p.DistMat.WriteNPY(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func readDir(dir string, logger *slog.Logger) (*Payload, error) {
	p := &Payload{Params: make(params.Records)}

	// The membership table is the authoritative template list. Without one,
	// every waveform file found becomes a template.
	var expected []string
	if f, err := os.Open(filepath.Join(dir, clustersFile)); err == nil {
		table, err := membership.ReadCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", clustersFile, err)
		}
		expected = table.Names()
		p.Table = table
	} else {
		names, err := waveformNames(dir)
		if err != nil {
			return nil, err
		}
		expected = names
	}

	var events []*template.Event
	if f, err := os.Open(filepath.Join(dir, eventsBase+".json")); err == nil {
		events, err = template.ReadCatalog(f)
		f.Close()
		if err != nil {
			logger.Error("failed to read event collection", "error", err)
			events = nil
		}
	}

	for _, name := range expected {
		wf, err := readWaveform(dir, name)
		if err != nil {
			logger.Error("no waveform for template", "template", name, "error", err)
			continue
		}
		t := &template.Template{Name: name, Waveform: wf}
		for _, ev := range events {
			if ev.MatchesTemplate(name) {
				t.Event = ev
				break
			}
		}
		p.Templates = append(p.Templates, t)
	}

	// All-or-nothing table policy: a partially matching table would silently
	// desynchronize rows from templates, so it is rejected wholesale.
	if p.Table != nil && len(p.Templates) != p.Table.Len() {
		logger.Error("membership rows do not match loaded templates; dropping table",
			"rows", p.Table.Len(), "templates", len(p.Templates))
		p.Table = nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), kwargsSuffix) {
			continue
		}
		method := strings.TrimSuffix(e.Name(), kwargsSuffix)
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Error("failed to open parameter file", "file", e.Name(), "error", err)
			continue
		}
		kw, err := params.ReadKV(f)
		f.Close()
		if err != nil {
			logger.Error("failed to parse parameter file", "file", e.Name(), "error", err)
			continue
		}
		p.Params[method] = kw
	}

	if f, err := os.Open(filepath.Join(dir, distMatFile)); err == nil {
		mat, err := distmat.ReadNPY(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", distMatFile, err)
		}
		p.DistMat = mat
	}

	return p, nil
}

func waveformNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), template.WaveformExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), template.WaveformExt))
	}
	return names, nil
}

func readWaveform(dir, name string) (*template.Waveform, error) {
	f, err := os.Open(filepath.Join(dir, name+template.WaveformExt))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return template.DecodeWaveform(f)
}

// safeFileName reports whether a template name maps to a plain file name
// inside the archive directory.
func safeFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

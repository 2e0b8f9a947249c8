package seisclust

import (
	"context"
	"time"

	"github.com/hupe1980/seisclust/archive"
	"github.com/hupe1980/seisclust/blobstore"
	"github.com/hupe1980/seisclust/template"
)

// Save writes the full Tribe state (waveforms, event catalog, membership
// table, recorded parameters and distance matrix) to path as an archive.
func (t *Tribe) Save(path string, opts ...archive.Option) (err error) {
	start := time.Now()
	defer func() {
		t.opts.metrics.RecordSave(time.Since(start), err)
	}()

	opts = append([]archive.Option{archive.WithLogger(t.opts.logger.Logger)}, opts...)
	err = archive.Save(path, t.payload(), opts...)
	t.opts.logger.LogSave(path, t.Len(), err)
	return err
}

// Read loads an archive from path and merges its contents into the Tribe.
// Templates whose names already exist are skipped with a warning; new rows
// keep their archived id_no values, new parameter records fill gaps without
// overwriting existing ones, and a loaded distance matrix replaces the
// current one.
func (t *Tribe) Read(path string, opts ...archive.Option) (err error) {
	start := time.Now()
	defer func() {
		t.opts.metrics.RecordLoad(time.Since(start), err)
	}()

	opts = append([]archive.Option{archive.WithLogger(t.opts.logger.Logger)}, opts...)
	p, err := archive.Load(path, opts...)
	if err != nil {
		t.opts.logger.LogLoad(path, 0, err)
		return err
	}
	t.merge(p)
	t.opts.logger.LogLoad(path, len(p.Templates), nil)
	return nil
}

func (t *Tribe) merge(p *archive.Payload) {
	keep := make([]*template.Template, 0, len(p.Templates))
	for _, tpl := range p.Templates {
		if t.table.Has(tpl.Name) {
			t.opts.logger.Warn("skipping archived template with duplicate name", "name", tpl.Name)
			continue
		}
		keep = append(keep, tpl)
	}
	t.templates = append(t.templates, keep...)

	if p.Table != nil {
		t.table.Merge(p.Table)
	} else {
		for _, tpl := range keep {
			t.table.Add(tpl.Name, t.table.Len())
		}
	}
	for method, kw := range p.Params {
		if _, exists := t.cparams[method]; !exists {
			t.cparams[method] = kw.Clone()
		}
	}
	if p.DistMat != nil {
		t.distMat = p.DistMat
	}
}

// SaveSnapshot writes the Tribe as a single self-contained file using the
// configured codec, a compact alternative to the directory archive.
func (t *Tribe) SaveSnapshot(path string) error {
	return archive.WriteSnapshot(path, t.payload(), t.opts.codec)
}

// ReadSnapshot loads a snapshot file and merges it like Read.
func (t *Tribe) ReadSnapshot(path string) error {
	p, err := archive.ReadSnapshot(path)
	if err != nil {
		return err
	}
	t.merge(p)
	return nil
}

// SaveTo stores the Tribe archive in a blob store under key and returns the
// key actually written (an archive extension is appended when key has
// none).
func (t *Tribe) SaveTo(ctx context.Context, store blobstore.Store, key string, opts ...archive.Option) (string, error) {
	opts = append([]archive.Option{archive.WithLogger(t.opts.logger.Logger)}, opts...)
	return archive.SaveTo(ctx, store, key, t.payload(), opts...)
}

// ReadFrom fetches an archive from a blob store and merges it like Read.
func (t *Tribe) ReadFrom(ctx context.Context, store blobstore.Store, key string, opts ...archive.Option) error {
	opts = append([]archive.Option{archive.WithLogger(t.opts.logger.Logger)}, opts...)
	p, err := archive.LoadFrom(ctx, store, key, opts...)
	if err != nil {
		return err
	}
	t.merge(p)
	return nil
}

func (t *Tribe) payload() *archive.Payload {
	return &archive.Payload{
		Templates: t.templates,
		Table:     t.table,
		Params:    t.cparams,
		DistMat:   t.distMat,
	}
}

package seisclust

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/membership"
	"github.com/hupe1980/seisclust/params"
	"github.com/hupe1980/seisclust/template"
)

// Tribe is a named collection of waveform templates together with every
// clustering run's results: the membership table, the captured distance
// matrix and the per-method parameter records.
//
// A Tribe is single-owner state; methods are not safe for concurrent use.
type Tribe struct {
	templates []*template.Template
	table     *membership.Table
	distMat   *distmat.Matrix
	cparams   params.Records
	opts      options
}

// New creates an empty Tribe.
func New(opts ...Option) *Tribe {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Tribe{
		table:   membership.NewTable(),
		cparams: make(params.Records),
		opts:    o,
	}
}

// NewWithTemplates creates a Tribe seeded with the given templates. The call
// is atomic: any invalid or duplicate-named template fails the whole
// construction.
func NewWithTemplates(templates []*template.Template, opts ...Option) (*Tribe, error) {
	t := New(opts...)
	if err := t.Extend(templates); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of templates.
func (t *Tribe) Len() int { return len(t.templates) }

// Names returns the template names in index order.
func (t *Tribe) Names() []string { return t.table.Names() }

// Templates returns the templates in index order. The slice is a copy; the
// templates are the live objects.
func (t *Tribe) Templates() []*template.Template {
	out := make([]*template.Template, len(t.templates))
	copy(out, t.templates)
	return out
}

// Select returns the template with the given name.
func (t *Tribe) Select(name string) (*template.Template, bool) {
	for _, tpl := range t.templates {
		if tpl.Name == name {
			return tpl, true
		}
	}
	return nil, false
}

// Membership returns a copy of the cluster membership table.
func (t *Tribe) Membership() *membership.Table { return t.table.Clone() }

// DistanceMatrix returns a copy of the captured distance matrix, or nil if
// no correlation clustering has run. Matrix indices are durable id_no
// values, not live positions.
func (t *Tribe) DistanceMatrix() *distmat.Matrix {
	if t.distMat == nil {
		return nil
	}
	return t.distMat.Clone()
}

// ClusterParams returns a copy of the per-method parameter records.
func (t *Tribe) ClusterParams() params.Records { return t.cparams.Clone() }

// Assignments returns the (name, group) pairs for one method's most recent
// run, in index order.
func (t *Tribe) Assignments(method string) ([]Assignment, bool) {
	col, ok := t.table.Column(method)
	if !ok {
		return nil, false
	}
	out := make([]Assignment, 0, len(col))
	for _, name := range t.table.Names() {
		out = append(out, Assignment{Name: name, Group: col[name]})
	}
	return out, true
}

// Assignment is one template's group in a clustering run.
type Assignment struct {
	Name  string
	Group int
}

// AddTemplate inserts a template at the next ordinal position. A duplicate
// name fails with ErrDuplicateName.
func (t *Tribe) AddTemplate(tpl *template.Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	if t.table.Has(tpl.Name) {
		return &ErrDuplicateName{Name: tpl.Name}
	}
	t.templates = append(t.templates, tpl)
	return t.table.Add(tpl.Name, len(t.templates)-1)
}

// AddRenamed inserts a template, deterministically deduplicating its name on
// collision. The template's Name field is updated in place; the final name
// is returned.
func (t *Tribe) AddRenamed(tpl *template.Template) (string, error) {
	if err := tpl.Validate(); err != nil {
		return "", err
	}
	if t.table.Has(tpl.Name) {
		renamed := t.dedupeName(tpl.Name)
		t.opts.logger.WithTemplate(tpl.Name).Info("renaming duplicate template", "renamed", renamed)
		tpl.Name = renamed
	}
	if err := t.AddTemplate(tpl); err != nil {
		return "", err
	}
	return tpl.Name, nil
}

// dedupeName derives a non-colliding name: the base (name up to the first
// delimiter) plus the delimiter and the smallest non-negative integer not
// already in use among names sharing that base.
func (t *Tribe) dedupeName(name string) string {
	delim := t.opts.renameDelimiter
	base := name
	if i := strings.Index(name, delim); i >= 0 {
		base = name[:i]
	}
	taken := make(map[string]bool)
	for _, n := range t.table.Names() {
		if strings.HasPrefix(n, base) {
			taken[n] = true
		}
	}
	for i := 0; ; i++ {
		candidate := base + delim + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Extend inserts templates in order. The call is atomic: every element is
// validated, and checked for name collisions against the index and within
// the batch, before any is applied.
func (t *Tribe) Extend(templates []*template.Template) error {
	if err := t.validateBatch(templates, false); err != nil {
		return err
	}
	for _, tpl := range templates {
		if err := t.AddTemplate(tpl); err != nil {
			return err
		}
	}
	return nil
}

// ExtendRenamed inserts templates in order, deduplicating names on
// collision. Validation is atomic; renaming makes collisions non-fatal.
func (t *Tribe) ExtendRenamed(templates []*template.Template) error {
	if err := t.validateBatch(templates, true); err != nil {
		return err
	}
	for _, tpl := range templates {
		if _, err := t.AddRenamed(tpl); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tribe) validateBatch(templates []*template.Template, allowDup bool) error {
	seen := make(map[string]bool, len(templates))
	for i, tpl := range templates {
		if err := tpl.Validate(); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		if allowDup {
			continue
		}
		if t.table.Has(tpl.Name) || seen[tpl.Name] {
			return &ErrDuplicateName{Name: tpl.Name}
		}
		seen[tpl.Name] = true
	}
	return nil
}

// Remove drops the named template and its membership row. Removing an
// unknown name is logged, not an error. Remaining rows keep their
// historical id_no values for distance-matrix cross-reference.
func (t *Tribe) Remove(name string) {
	if !t.table.Has(name) {
		t.opts.logger.WithTemplate(name).Warn("template not in tribe, nothing removed")
		return
	}
	for i, tpl := range t.templates {
		if tpl.Name == name {
			t.templates = append(t.templates[:i], t.templates[i+1:]...)
			break
		}
	}
	t.table.Drop(name)
}

// SelectTraces filters every template's waveform down to traces whose ID
// matches the glob pattern. When removeEmpty is set, templates left with no
// traces are removed from the tribe; removals are collected first and
// applied as a batch.
func (t *Tribe) SelectTraces(pattern string, removeEmpty bool) {
	var empty []string
	for _, tpl := range t.templates {
		tpl.Waveform = tpl.Waveform.Select(pattern)
		if removeEmpty && len(tpl.Waveform.Traces) == 0 {
			empty = append(empty, tpl.Name)
		}
	}
	for _, name := range empty {
		t.opts.logger.WithTemplate(name).Info("removing template with no remaining traces")
		t.Remove(name)
	}
}

// Copy returns a deep copy of the tribe.
func (t *Tribe) Copy() *Tribe {
	c := &Tribe{
		templates: make([]*template.Template, 0, len(t.templates)),
		table:     t.table.Clone(),
		cparams:   t.cparams.Clone(),
		opts:      t.opts,
	}
	for _, tpl := range t.templates {
		c.templates = append(c.templates, tpl.Clone())
	}
	if t.distMat != nil {
		c.distMat = t.distMat.Clone()
	}
	return c
}

func (t *Tribe) String() string {
	return fmt.Sprintf("Tribe of %d templates", len(t.templates))
}

package seisclust

import (
	"math"

	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/params"
	"github.com/hupe1980/seisclust/template"
)

// Subset returns a new Tribe holding deep copies of the named templates,
// their membership rows, a deep copy of the recorded clustering parameters,
// and the distance submatrix for the selection. The submatrix is looked up
// through each name's durable id and indexed by the order names are given;
// off-diagonal entries the captured matrix never covered come back NaN. When
// a submatrix is projected the subset's ids are renumbered to match its
// indexing, so subsetting a subset resolves distances the same way.
func (t *Tribe) Subset(names ...string) (*Tribe, error) {
	for _, name := range names {
		if !t.table.Has(name) {
			return nil, &ErrUnknownName{Name: name}
		}
	}

	sub := &Tribe{
		templates: make([]*template.Template, 0, len(names)),
		table:     t.table.Subset(names),
		cparams:   t.cparams.Clone(),
		opts:      t.opts,
	}
	for _, name := range names {
		for _, tpl := range t.templates {
			if tpl.Name == name {
				sub.templates = append(sub.templates, tpl.Clone())
				break
			}
		}
	}

	if t.distMat != nil {
		sub.distMat = t.subMatrix(names)
		sub.table.RenumberIDs()
	}
	return sub, nil
}

// subMatrix extracts rows and columns by the durable id_no of each name,
// not its live position, so subsets taken after removals stay correct.
func (t *Tribe) subMatrix(names []string) *distmat.Matrix {
	m := distmat.New(len(names))
	ids := make([]int, len(names))
	for i, name := range names {
		ids[i], _ = t.table.ID(name)
	}
	for i := range names {
		v := 0.0
		if t.distMat.InRange(ids[i], ids[i]) {
			v = t.distMat.At(ids[i], ids[i])
		}
		m.Set(i, i, v)
		for j := i + 1; j < len(names); j++ {
			v := math.NaN()
			if t.distMat.InRange(ids[i], ids[j]) {
				v = t.distMat.At(ids[i], ids[j])
			}
			m.Set(i, j, v)
		}
	}
	return m
}

// SelectCluster returns the sub-Tribe holding one group of one method's
// partition. An unknown method or empty group yields an empty Tribe, not
// an error; the miss is logged.
func (t *Tribe) SelectCluster(method string, group int) *Tribe {
	names, ok := t.table.GroupNames(method, group)
	if !ok {
		t.opts.logger.Warn("no such clustering method on record", "method", method)
		return &Tribe{
			table:   t.table.Subset(nil),
			cparams: params.Records{},
			opts:    t.opts,
		}
	}
	sub, err := t.Subset(names...)
	if err != nil {
		// Table and template list always agree on names.
		t.opts.logger.Error("cluster selection failed", "method", method, "group", group, "error", err)
		return &Tribe{
			table:   t.table.Subset(nil),
			cparams: params.Records{},
			opts:    t.opts,
		}
	}
	return sub
}

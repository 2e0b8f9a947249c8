package seisclust

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/geocluster"
	"github.com/hupe1980/seisclust/linkage"
	"github.com/hupe1980/seisclust/membership"
	"github.com/hupe1980/seisclust/params"
	"github.com/hupe1980/seisclust/template"
	"github.com/hupe1980/seisclust/xcorr"
)

// Clustering method names. Each method owns one column of the membership
// table.
const (
	MethodGeometry     = "geometry"
	MethodGeometryTime = "geometry+time"
	MethodCorrelation  = "correlation"
)

// savedCorrmatName is where a correlation run's side-channel distance
// matrix file ends up when the caller asks to keep it.
const savedCorrmatName = "dist_mat.npy"

// Grouper partitions templates by spatial (and optionally temporal)
// proximity into disjoint groups.
type Grouper interface {
	Group(ctx context.Context, templates []*template.Template, method string, p params.Params) ([][]*template.Template, error)
}

// Correlator computes a pairwise cross-correlation partition over
// (waveform, id) pairs. It returns the groups and the path of a
// side-channel file holding the distance matrix; the engine consumes and
// removes that file unless the run asks to keep it.
type Correlator interface {
	Correlate(ctx context.Context, pairs []xcorr.Pair, p params.Params) ([][]xcorr.Pair, string, error)
}

// linkageFunc computes hierarchical linkage. Indirection keeps the
// re-threshold fast path observable in tests.
var linkageFunc = linkage.Linkage

// Cluster runs one clustering method and records its results in the
// membership table. A correlation run additionally captures the distance
// matrix and renumbers id_no to match its indexing. The exact parameter set
// used (defaults filled in) is recorded under the method name.
func (t *Tribe) Cluster(ctx context.Context, method string, p params.Params) (err error) {
	start := time.Now()
	defer func() {
		t.opts.metrics.RecordCluster(method, time.Since(start), err)
	}()

	if t.Len() < 2 {
		err = ErrInsufficientData
		return err
	}
	if p == nil {
		p = params.Params{}
	} else {
		p = p.Clone()
	}

	var assign map[string]int
	switch method {
	case MethodGeometry, MethodGeometryTime:
		assign, err = t.clusterGeometry(ctx, method, p)
	case MethodCorrelation:
		assign, err = t.clusterCorrelation(ctx, p)
	default:
		err = &ErrUnsupportedMethod{Method: method}
	}
	if err != nil {
		t.opts.logger.LogCluster(ctx, method, 0, err)
		return err
	}

	t.table.SetColumn(method, assign)
	t.cparams[method] = p
	t.opts.logger.LogCluster(ctx, method, len(t.table.Groups(method)), nil)
	return nil
}

func (t *Tribe) clusterGeometry(ctx context.Context, method string, p params.Params) (map[string]int, error) {
	groups, err := t.opts.grouper.Group(ctx, t.Templates(), method, p)
	if err != nil {
		return nil, fmt.Errorf("grouping delegate: %w", err)
	}
	// Group ids follow the order the delegate returns groups, 0-based.
	assign := make(map[string]int, t.Len())
	for gi, group := range groups {
		for _, tpl := range group {
			assign[tpl.Name] = gi
		}
	}
	return assign, nil
}

func (t *Tribe) clusterCorrelation(ctx context.Context, p params.Params) (map[string]int, error) {
	fillCorrelationDefaults(p)

	// Pairs are indexed by live position; the delegate's matrix follows
	// the same ordering. The durable ids are renumbered to these positions
	// only once that matrix is in hand, so a failing run leaves the prior
	// id and matrix cross-reference intact.
	pairs := make([]xcorr.Pair, 0, t.Len())
	for i, tpl := range t.templates {
		pairs = append(pairs, xcorr.Pair{Waveform: tpl.Waveform, ID: i})
	}

	groups, matFile, err := t.opts.correlator.Correlate(ctx, pairs, p)
	if err != nil {
		return nil, fmt.Errorf("correlation delegate: %w", err)
	}

	// Capture the side-channel distance matrix regardless of whether the
	// caller wants the file kept.
	f, err := os.Open(matFile)
	if err != nil {
		return nil, fmt.Errorf("correlation side-channel: %w", err)
	}
	mat, err := distmat.ReadNPY(f)
	f.Close()
	if err != nil {
		os.Remove(matFile)
		return nil, fmt.Errorf("correlation side-channel: %w", err)
	}
	t.distMat = mat
	t.table.RenumberIDs()

	if keep, _ := p.Bool(params.KeySaveCorrmat); keep {
		if err := moveFile(matFile, savedCorrmatName); err != nil {
			t.opts.logger.Warn("failed to keep correlation matrix file", "error", err)
		} else {
			t.opts.logger.Info("kept correlation matrix file", "path", savedCorrmatName)
		}
	} else {
		os.Remove(matFile)
	}

	assign := make(map[string]int, t.Len())
	for gi, group := range groups {
		for _, pair := range group {
			name, ok := t.table.NameByID(pair.ID)
			if !ok {
				return nil, fmt.Errorf("correlation delegate returned unknown id %d", pair.ID)
			}
			assign[name] = gi
		}
	}
	return assign, nil
}

// fillCorrelationDefaults completes the parameter set so the recorded
// params are sufficient to replay the linkage configuration later.
func fillCorrelationDefaults(p params.Params) {
	def := xcorr.DefaultOptions()
	if _, ok := p.Float(params.KeyCorrThresh); !ok {
		p[params.KeyCorrThresh] = def.CorrThresh
	}
	if _, ok := p.Float(params.KeyShiftLen); !ok {
		p[params.KeyShiftLen] = def.ShiftLen
	}
	if _, ok := p[params.KeyReplaceNaN]; !ok {
		p[params.KeyReplaceNaN] = def.ReplaceNaN
	}
	if _, ok := p.String(params.KeyMethod); !ok {
		p[params.KeyMethod] = string(def.Method)
	}
	if _, ok := p.String(params.KeyMetric); !ok {
		p[params.KeyMetric] = def.Metric
	}
	if _, ok := p.Bool(params.KeyOptimalOrdering); !ok {
		p[params.KeyOptimalOrdering] = def.OptimalOrdering
	}
}

// RecomputeLinkage replays the most recent correlation run's fill policy
// and linkage configuration against the captured distance matrix. Explicit
// overrides take precedence over the recorded parameters.
func (t *Tribe) RecomputeLinkage(overrides params.Params) (linkage.Tree, error) {
	ckw, ok := t.cparams[MethodCorrelation]
	if !ok || !t.table.HasMethod(MethodCorrelation) {
		return nil, ErrCorrelationNotRun
	}
	if t.distMat == nil {
		return nil, ErrNoDistanceMatrix
	}

	method := linkage.MethodSingle
	if s, ok := lookupString(overrides, ckw, params.KeyMethod); ok {
		m, err := linkage.ParseMethod(s)
		if err != nil {
			return nil, err
		}
		method = m
	}
	optimal := false
	if b, ok := lookupBool(overrides, ckw, params.KeyOptimalOrdering); ok {
		optimal = b
	}

	policy, ok := ckw[params.KeyReplaceNaN]
	if !ok {
		policy = "mean"
	}
	filled, err := t.distMat.Filled(policy)
	if err != nil {
		return nil, err
	}
	condensed, err := filled.Condensed()
	if err != nil {
		return nil, err
	}
	return linkageFunc(condensed, t.distMat.Size(), method, optimal)
}

// Regroup cuts the existing linkage at 1-threshold (distance space is
// 1-correlation) and returns a fresh per-template assignment without
// mutating the membership table. Regrouping at the threshold already on
// record returns the stored assignment without recomputation.
func (t *Tribe) Regroup(threshold float64, overrides params.Params) (assign map[string]int, err error) {
	start := time.Now()
	defer func() {
		t.opts.metrics.RecordRegroup(time.Since(start), err)
	}()

	if !(threshold > 0 && threshold <= 1) {
		err = &ErrInvalidThreshold{Threshold: threshold}
		return nil, err
	}
	ckw, ok := t.cparams[MethodCorrelation]
	if !ok || !t.table.HasMethod(MethodCorrelation) {
		err = ErrCorrelationNotRun
		return nil, err
	}

	if recorded, ok := ckw.Float(params.KeyCorrThresh); ok && recorded == threshold && len(overrides) == 0 {
		t.opts.logger.Info("already grouped at this threshold", "corr_thresh", threshold)
		col, _ := t.table.Column(MethodCorrelation)
		return col, nil
	}

	tree, lerr := t.RecomputeLinkage(overrides)
	if lerr != nil {
		err = lerr
		return nil, err
	}
	n := t.distMat.Size()
	labels := linkage.FCluster(tree, n, 1-threshold)

	assign = make(map[string]int, n)
	for leaf, label := range labels {
		name, ok := t.table.NameByID(leaf)
		if !ok {
			t.opts.logger.Warn("distance matrix row has no live template", "id_no", leaf)
			continue
		}
		assign[name] = label
	}
	return assign, nil
}

// CommitRegroup writes a regrouped assignment into the correlation column
// and records the new threshold, keeping the rest of the recorded
// parameters.
func (t *Tribe) CommitRegroup(threshold float64, assign map[string]int) error {
	ckw, ok := t.cparams[MethodCorrelation]
	if !ok {
		return ErrCorrelationNotRun
	}
	t.table.SetColumn(MethodCorrelation, assign)
	ckw[params.KeyCorrThresh] = threshold
	return nil
}

// LeafLabels returns the linkage tree together with one label value per
// dendrogram leaf, in leaf order. field selects the label source: "name"
// or "index" for the template name, "id_no" for the durable id, or any
// membership column. A dendrogram renderer draws from exactly this.
func (t *Tribe) LeafLabels(field string) (linkage.Tree, []string, error) {
	tree, err := t.RecomputeLinkage(nil)
	if err != nil {
		return nil, nil, err
	}
	n := t.distMat.Size()
	order := linkage.LeafOrder(tree, n)

	labels := make([]string, 0, n)
	for _, leaf := range order {
		name, ok := t.table.NameByID(leaf)
		if !ok {
			labels = append(labels, strconv.Itoa(leaf))
			continue
		}
		switch field {
		case "name", "index":
			labels = append(labels, name)
		case membership.IDColumn:
			labels = append(labels, strconv.Itoa(leaf))
		default:
			if g, ok := t.table.Get(name, field); ok {
				labels = append(labels, strconv.Itoa(g))
			} else {
				labels = append(labels, name)
			}
		}
	}
	return tree, labels, nil
}

func lookupString(overrides, recorded params.Params, key string) (string, bool) {
	if s, ok := overrides.String(key); ok {
		return s, true
	}
	return recorded.String(key)
}

func lookupBool(overrides, recorded params.Params, key string) (bool, bool) {
	if b, ok := overrides.Bool(key); ok {
		return b, true
	}
	return recorded.Bool(key)
}

// moveFile renames, falling back to copy for cross-device moves.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

// defaultGrouper partitions by hypocentral proximity via the geocluster
// package. Every template must carry an event record.
type defaultGrouper struct{}

func (defaultGrouper) Group(ctx context.Context, templates []*template.Template, method string, p params.Params) ([][]*template.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points := make([]geocluster.Point, 0, len(templates))
	for _, tpl := range templates {
		if tpl.Event == nil {
			return nil, fmt.Errorf("template %q has no event metadata for geometric grouping", tpl.Name)
		}
		points = append(points, geocluster.Point{
			Lat:     tpl.Event.Latitude,
			Lon:     tpl.Event.Longitude,
			DepthKm: tpl.Event.DepthKm,
			Time:    tpl.Event.OriginTime,
		})
	}

	dKm := 5.0
	if v, ok := p.Float(params.KeyDistThreshKm); ok {
		dKm = v
	}
	tSep := 60.0
	if v, ok := p.Float(params.KeyTimeThreshSec); ok {
		tSep = v
	}
	useTime := method == MethodGeometryTime

	idx, err := geocluster.Group(points, dKm, time.Duration(tSep*float64(time.Second)), useTime)
	if err != nil {
		return nil, err
	}
	groups := make([][]*template.Template, 0, len(idx))
	for _, g := range idx {
		members := make([]*template.Template, 0, len(g))
		for _, i := range g {
			members = append(members, templates[i])
		}
		groups = append(groups, members)
	}
	return groups, nil
}

// defaultCorrelator adapts the xcorr package to the Correlator contract.
type defaultCorrelator struct{}

func (defaultCorrelator) Correlate(ctx context.Context, pairs []xcorr.Pair, p params.Params) ([][]xcorr.Pair, string, error) {
	opts := xcorr.DefaultOptions()
	if v, ok := p.Float(params.KeyCorrThresh); ok {
		opts.CorrThresh = v
	}
	if v, ok := p.Float(params.KeyShiftLen); ok {
		opts.ShiftLen = v
	}
	if v, ok := p[params.KeyReplaceNaN]; ok {
		opts.ReplaceNaN = v
	}
	if s, ok := p.String(params.KeyMethod); ok {
		m, err := linkage.ParseMethod(s)
		if err != nil {
			return nil, "", err
		}
		opts.Method = m
	}
	if s, ok := p.String(params.KeyMetric); ok {
		opts.Metric = s
	}
	if b, ok := p.Bool(params.KeyOptimalOrdering); ok {
		opts.OptimalOrdering = b
	}
	if v, ok := p.Float("workers"); ok {
		opts.Workers = int(v)
	}
	return xcorr.Correlate(ctx, pairs, opts)
}

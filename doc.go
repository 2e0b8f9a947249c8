// Package seisclust groups waveform templates into clusters and persists the
// full clustering state as a single self-describing archive.
//
// The central type is Tribe: an ordered index of named templates, a
// row-per-template membership table with one column per clustering run, the
// distance matrix captured by correlation clustering, and the parameter
// record of every run.
//
// # Quick start
//
//	tribe := seisclust.New()
//	if err := tribe.Extend(templates); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Group by cross-correlation; the distance matrix is captured.
//	err := tribe.Cluster(ctx, seisclust.MethodCorrelation, params.Params{
//	    params.KeyCorrThresh: 0.4,
//	    params.KeyShiftLen:   1.0,
//	    params.KeyReplaceNaN: "mean",
//	})
//
//	// Re-threshold without recomputing any correlation.
//	assign, err := tribe.Regroup(0.6, nil)
//
//	// Persist everything as one gzip tar archive.
//	err = tribe.Save("tribe.tgz")
//
// Clustering methods are delegates: geometry and geometry+time runs call a
// Grouper, correlation runs call a Correlator. Defaults based on the
// geocluster and xcorr packages are wired in; both can be replaced through
// options for testing or for heavier external engines.
//
// The distance matrix is cross-referenced by each row's durable id_no, not
// by live position, so subsetting and later structural mutation never
// reindex it. Mutating the tribe after a correlation run leaves the matrix
// logically stale until the next run; Subset projects a consistent
// submatrix at any time.
package seisclust

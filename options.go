package seisclust

import (
	"github.com/hupe1980/seisclust/codec"
)

// defaultRenameDelimiter separates a deduplicated template name from its
// integer suffix.
const defaultRenameDelimiter = "__"

type options struct {
	logger          *Logger
	metrics         MetricsCollector
	codec           codec.Codec
	correlator      Correlator
	grouper         Grouper
	renameDelimiter string
}

func defaultOptions() options {
	return options{
		logger:          NewLogger(nil),
		metrics:         NoopMetricsCollector{},
		codec:           codec.Default,
		correlator:      defaultCorrelator{},
		grouper:         defaultGrouper{},
		renameDelimiter: defaultRenameDelimiter,
	}
}

// Option configures Tribe constructor behavior.
type Option func(*options)

// WithLogger sets the diagnostics sink. Passing nil restores the default
// text logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NewLogger(nil)
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithCodec configures the codec used for legacy single-object snapshots.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCorrelator replaces the correlation clustering delegate.
func WithCorrelator(c Correlator) Option {
	return func(o *options) {
		if c != nil {
			o.correlator = c
		}
	}
}

// WithGrouper replaces the geometric/temporal grouping delegate.
func WithGrouper(g Grouper) Option {
	return func(o *options) {
		if g != nil {
			o.grouper = g
		}
	}
}

// WithRenameDelimiter sets the delimiter used when deduplicating template
// names ("base<delimiter><n>").
func WithRenameDelimiter(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.renameDelimiter = delim
		}
	}
}

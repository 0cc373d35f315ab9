// Package annotload reconciles tab-delimited annotation records against an
// existing annotation store: it normalizes and validates each input line,
// deduplicates annotation and evidence entities by composite natural key,
// expands the nested property mini-language, and serializes accepted rows
// for the bulk-load sink, with mode-driven cascading deletion scoped by
// reference or curator.
package annotload

import (
	"context"

	"github.com/annotbase/annotload/internal/pipeline"
	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
	"github.com/annotbase/annotload/pkg/logging"
)

// Result summarizes one completed load run.
type Result = pipeline.Result

// Loader executes annotation load runs against a configured store.
type Loader interface {
	// Run executes one load in the configured mode and returns its
	// summary. Recoverable line-level failures accumulate in the error
	// report and do not produce an error here; fatal conditions do.
	Run(ctx context.Context) (*Result, error)
}

// loader is the internal implementation of the Loader interface.
type loader struct {
	config *config
}

// New creates a Loader with the given options. A store and an annotation
// type are required.
func New(opts ...Option) (Loader, error) {
	l := &loader{config: newConfig()}
	for _, opt := range opts {
		if err := opt(l.config); err != nil {
			return nil, err
		}
	}

	if l.config.store == nil {
		return nil, errors.NewConfigError("loader", "a store is required", nil)
	}
	if l.config.annotType == "" {
		return nil, errors.NewConfigError("loader", "an annotation type is required", nil)
	}
	return l, nil
}

// Run implements Loader.
func (l *loader) Run(ctx context.Context) (*Result, error) {
	mode, err := annot.ParseMode(l.config.mode)
	if err != nil {
		return nil, errors.NewConfigError("mode", err.Error(), errors.ErrInvalidMode)
	}

	return pipeline.Run(ctx, pipeline.Config{
		Input:           l.config.input,
		InputReader:     l.config.inputReader,
		Mode:            mode,
		AnnotType:       l.config.annotType,
		Profile:         l.config.profile,
		ReferenceToken:  l.config.reference,
		CuratorToken:    l.config.curator,
		IncludeObsolete: l.config.includeObsolete,
		OutputDir:       l.config.outputDir,
		BulkCommand:     l.config.bulkCommand,
		Encoding:        l.config.encoding,
		Store:           l.config.store,
		Log:             l.config.log,
		Now:             l.config.now,
		ReportWriter:    l.config.reportWriter,
	})
}

// Store is re-exported so callers can supply fixture stores.
type Store = store.Store

var defaultLog = logging.Default()

// Package pipeline orchestrates one load run: the deletion pre-pass, cache
// priming, and the single-pass line flow through parser, validators, key
// resolvers, property encoder and bulk writer. Processing is strictly
// sequential; recoverable failures divert to the error report and drop the
// line, fatal conditions unwind immediately through the returned error.
package pipeline

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/annotbase/annotload/internal/bulk"
	"github.com/annotbase/annotload/internal/cache"
	"github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/internal/deletion"
	"github.com/annotbase/annotload/internal/parser"
	"github.com/annotbase/annotload/internal/report"
	"github.com/annotbase/annotload/internal/resolve"
	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/internal/validate"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
	"github.com/annotbase/annotload/pkg/loadtype"
	"github.com/annotbase/annotload/pkg/properties"
)

// Input encodings accepted by the reader.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// maxLineSize bounds one input line; property blobs can get long.
const maxLineSize = 1 << 20

// Config wires one load run.
type Config struct {
	Input       string
	InputReader io.Reader // overrides Input when set, for tests

	Mode            annot.Mode
	AnnotType       string
	Profile         config.Profile
	ReferenceToken  string
	CuratorToken    string
	IncludeObsolete bool

	OutputDir   string
	BulkCommand string
	Encoding    string

	Store store.Store
	Log   zerolog.Logger
	Now   func() utc.Time

	ReportWriter io.Writer // overrides the report file when set, for tests
}

// Result summarizes a completed run.
type Result struct {
	Mode       annot.Mode
	Preview    bool
	Lines      int
	Rejected   int
	Duplicates int

	Annotations int
	Evidence    int
	Properties  int
	Notes       int

	ReportEntries int
	DeletionPlan  *store.Plan
}

// Run executes the load.
func Run(ctx context.Context, cfg Config) (result *Result, err error) {
	if cfg.Now == nil {
		cfg.Now = utc.Now
	}
	preview := cfg.Mode.Preview()
	result = &Result{Mode: cfg.Mode, Preview: preview}

	annotType, err := cfg.Store.AnnotationType(ctx, cfg.AnnotType)
	if err != nil {
		return nil, err
	}

	strategy, err := loadtype.Lookup(cfg.Profile.Strategy)
	if err != nil {
		return nil, errors.NewConfigError("profiles", err.Error(), err)
	}

	rep, err := openReport(cfg)
	if err != nil {
		return nil, err
	}
	// The report flushes on the fatal path too: it is the authoritative
	// record of every line-level rejection.
	defer func() {
		if result != nil {
			result.ReportEntries = rep.Entries()
		}
		if err != nil {
			rep.Flush()
			return
		}
		err = rep.Close()
	}()

	// Deletion pre-pass, once per load before any record processing.
	if cfg.Mode.Deletes() {
		planner := deletion.NewPlanner(cfg.Store, annotType, cfg.Profile.CrossReferenceUsage, cfg.Log)
		scope, serr := planner.ResolveScope(ctx, cfg.ReferenceToken, cfg.CuratorToken)
		if serr != nil {
			return nil, serr
		}
		plan, serr := planner.Compute(ctx, scope)
		if serr != nil {
			return nil, serr
		}
		result.DeletionPlan = plan
		if !preview {
			if serr := planner.Apply(ctx, plan); serr != nil {
				return nil, serr
			}
		}
	}
	if !cfg.Mode.Loads() {
		// delete mode terminates immediately after the cascade, even with
		// a non-empty input file.
		return result, nil
	}

	caches := cache.New(cfg.Store, cfg.Profile, annotType, cfg.IncludeObsolete, cfg.Log)
	if err = caches.Prime(ctx); err != nil {
		return nil, err
	}

	marks, err := cfg.Store.HighWaterMarks(ctx)
	if err != nil {
		return nil, err
	}
	alloc := resolve.NewAllocator(marks)

	annotSnapshot, err := cfg.Store.AnnotationSnapshot(ctx, annotType)
	if err != nil {
		return nil, err
	}
	seeds, err := cfg.Store.EvidenceSnapshot(ctx, annotType)
	if err != nil {
		return nil, err
	}

	annotations := resolve.NewAnnotations(alloc, annotSnapshot)
	evidence := resolve.NewEvidence(alloc, strategy, seeds)
	propEncoder := resolve.NewPropertyEncoder(alloc, caches, rep)
	notes := resolve.NewNoteBuilder(alloc, cfg.Profile)
	validator := validate.New(caches, rep, cfg.Now)

	input, closeInput, err := openInput(cfg)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	sinks, err := bulk.Open(cfg.OutputDir, filepath.Base(inputName(cfg)), preview, cfg.Log)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if line == "" {
			continue
		}
		result.Lines++

		rec, perr := parser.Parse(inputName(cfg), lineNum, line)
		if perr != nil {
			rep.ParseFailure(lineNum, line)
			result.Rejected++
			continue
		}

		// Field 10 widens the active object namespace for all subsequent
		// lines; later lines do not revert it.
		if rec.Namespace != "" {
			caches.SetNamespace(rec.Namespace)
		}

		resolved, ok, verr := validator.Validate(ctx, rec)
		if verr != nil {
			err = verr
			return nil, err
		}
		if !ok {
			result.Rejected++
			continue
		}

		pairs := properties.Parse(rec.Properties)
		encodedProps := properties.Encode(pairs)

		annKey, newAnn := annotations.Resolve(annot.AnnotationKey{
			AnnotType: annotType,
			Object:    resolved.Object,
			Term:      resolved.Term,
			Qualifier: resolved.Qualifier,
		}, resolved.EntryDate)
		if newAnn != nil {
			sinks.WriteAnnotation(*newAnn)
			result.Annotations++
		}

		ev, inStore, dup := evidence.Resolve(
			annKey, resolved.Code, resolved.Reference,
			rec.InferredFrom, encodedProps, rec.Notes,
			resolved.Editor, resolved.EntryDate)
		if dup {
			rep.Duplicate(rec.LineNum, rec.Raw, inStore)
			result.Duplicates++
			continue
		}
		sinks.WriteEvidence(*ev)
		result.Evidence++

		for _, prop := range propEncoder.Encode(rec.LineNum, pairs, ev.Key, resolved.Editor, resolved.EntryDate) {
			sinks.WriteProperty(prop)
			result.Properties++
		}

		if note := notes.Build(ev.Key, rec.Notes, resolved.Editor, resolved.EntryDate); note != nil {
			sinks.WriteNote(*note)
			result.Notes++
		}
	}
	if serr := scanner.Err(); serr != nil {
		err = errors.WrapIO("read", inputName(cfg), serr)
		return nil, err
	}

	if err = sinks.Finalize(); err != nil {
		return nil, err
	}
	if err = sinks.Invoke(ctx, cfg.BulkCommand); err != nil {
		return nil, err
	}

	if !preview {
		if err = cfg.Store.AdvanceSequences(ctx, alloc.Marks()); err != nil {
			return nil, err
		}
	}

	cfg.Log.Info().
		Str("mode", string(cfg.Mode)).
		Int("lines", result.Lines).
		Int("rejected", result.Rejected).
		Int("duplicates", result.Duplicates).
		Int("annotations", result.Annotations).
		Int("evidence", result.Evidence).
		Msg("load complete")
	return result, nil
}

func inputName(cfg Config) string {
	if cfg.Input != "" {
		return cfg.Input
	}
	return "input"
}

func openInput(cfg Config) (io.Reader, func(), error) {
	var r io.Reader
	closer := func() {}

	if cfg.InputReader != nil {
		r = cfg.InputReader
	} else {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, errors.WrapIO("open", cfg.Input, err)
		}
		r = f
		closer = func() { _ = f.Close() }
	}

	if cfg.Encoding == EncodingLatin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	return r, closer, nil
}

func openReport(cfg Config) (*report.Report, error) {
	if cfg.ReportWriter != nil {
		return report.NewWriter(cfg.ReportWriter), nil
	}
	path := filepath.Join(cfg.OutputDir, filepath.Base(inputName(cfg))+".error")
	return report.New(path)
}

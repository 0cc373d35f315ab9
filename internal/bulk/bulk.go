// Package bulk serializes accepted entities into the load sink's row
// files: one tab-delimited file per entity type, in the fixed column order
// the bulk-load mechanism expects. At end of run each sink is finalized
// and the configured bulk-load command is invoked once per entity type
// that actually produced rows; preview mode writes nothing.
package bulk

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
)

// sink buffers one entity's row file.
type sink struct {
	entity string
	path   string
	f      *os.File
	w      *bufio.Writer
	rows   int
}

// Sinks holds the per-entity row files for one run.
type Sinks struct {
	preview bool
	log     zerolog.Logger

	annotation *sink
	evidence   *sink
	property   *sink
	note       *sink
	chunk      *sink
}

// Open creates the row files under dir, named after the input file's base
// name. A sink that cannot be created is fatal. In preview mode no files
// are opened and every write is a counted no-op.
func Open(dir, base string, preview bool, log zerolog.Logger) (*Sinks, error) {
	s := &Sinks{preview: preview, log: log}
	for _, e := range []struct {
		entity string
		dest   **sink
	}{
		{"annotation", &s.annotation},
		{"evidence", &s.evidence},
		{"property", &s.property},
		{"note", &s.note},
		{"notechunk", &s.chunk},
	} {
		sk := &sink{entity: e.entity, path: filepath.Join(dir, base+"."+e.entity+".bulk")}
		if !preview {
			f, err := os.Create(sk.path)
			if err != nil {
				s.closeAll()
				return nil, errors.WrapIO("create", sk.path, err)
			}
			sk.f = f
			sk.w = bufio.NewWriter(f)
		}
		*e.dest = sk
	}
	return s, nil
}

func (s *sink) writef(format string, args ...any) {
	s.rows++
	if s.w != nil {
		fmt.Fprintf(s.w, format, args...)
	}
}

func date(t utc.Time) string { return t.Format(annot.EntryDateLayout) }

// WriteAnnotation appends one annotation row.
func (s *Sinks) WriteAnnotation(a annot.Annotation) {
	s.annotation.writef("%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
		a.Key, a.AnnotType, a.Object, a.Term, a.Qualifier, date(a.Created), date(a.Modified))
}

// WriteEvidence appends one evidence row.
func (s *Sinks) WriteEvidence(e annot.Evidence) {
	s.evidence.writef("%d\t%d\t%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
		e.Key, e.Annot, e.Code, e.Reference, e.InferredFrom,
		e.CreatedBy, e.ModifiedBy, date(e.Created), date(e.Modified))
}

// WriteProperty appends one property row.
func (s *Sinks) WriteProperty(p annot.Property) {
	s.property.writef("%d\t%d\t%d\t%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
		p.Key, p.Evidence, p.Term, p.Stanza, p.Sequence, p.Value,
		p.CreatedBy, p.ModifiedBy, date(p.Created), date(p.Modified))
}

// WriteNote appends one note. The single variant carries the text on the
// note row; the chunked variant writes a header row plus ordered chunk
// rows to the chunk sink.
func (s *Sinks) WriteNote(n annot.Note) {
	if len(n.Chunks) == 0 {
		s.note.writef("%d\t%d\t%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
			n.Key, n.Evidence, n.ObjectKind, n.NoteType, n.Text,
			n.CreatedBy, n.ModifiedBy, date(n.Created), date(n.Modified))
		return
	}

	s.note.writef("%d\t%d\t%d\t%d\t\t%d\t%d\t%s\t%s\n",
		n.Key, n.Evidence, n.ObjectKind, n.NoteType,
		n.CreatedBy, n.ModifiedBy, date(n.Created), date(n.Modified))
	for _, c := range n.Chunks {
		s.chunk.writef("%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
			c.Note, c.Sequence, c.Text,
			n.CreatedBy, n.ModifiedBy, date(n.Created), date(n.Modified))
	}
}

// Rows reports the row counts per entity in sink order: annotation,
// evidence, property, note, notechunk.
func (s *Sinks) Rows() (int, int, int, int, int) {
	return s.annotation.rows, s.evidence.rows, s.property.rows, s.note.rows, s.chunk.rows
}

// Finalize flushes and closes every sink.
func (s *Sinks) Finalize() error {
	for _, sk := range s.all() {
		if sk.w != nil {
			if err := sk.w.Flush(); err != nil {
				return errors.WrapIO("write", sk.path, err)
			}
		}
		if sk.f != nil {
			if err := sk.f.Close(); err != nil {
				return errors.WrapIO("close", sk.path, err)
			}
			sk.f = nil
		}
	}
	return nil
}

// Invoke runs the bulk-load command once per entity type that produced
// rows. The command is opaque to the loader: it receives the entity name
// and the row file path as arguments. An empty command leaves the row
// files in place for an external load step. Nothing runs in preview mode
// or for a sink with zero rows.
func (s *Sinks) Invoke(ctx context.Context, command string) error {
	if s.preview || command == "" {
		return nil
	}
	for _, sk := range s.all() {
		if sk.rows == 0 {
			continue
		}
		s.log.Info().Str("entity", sk.entity).Str("file", sk.path).Int("rows", sk.rows).
			Msg("invoking bulk load")
		cmd := exec.CommandContext(ctx, command, sk.entity, sk.path)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return errors.NewIOError("bulk-load", sk.path,
				fmt.Errorf("%s: %w (output: %s)", command, err, out))
		}
	}
	return nil
}

func (s *Sinks) all() []*sink {
	return []*sink{s.annotation, s.evidence, s.property, s.note, s.chunk}
}

func (s *Sinks) closeAll() {
	for _, sk := range s.all() {
		if sk != nil && sk.f != nil {
			_ = sk.f.Close()
		}
	}
}

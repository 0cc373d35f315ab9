// Package annot defines the data model for the annotation load pipeline:
// the parsed input record, the four bulk-load row types (Annotation,
// Evidence, Property, Note) and the composite natural keys used to
// deduplicate them. Natural keys are comparable structs used directly as
// map keys; delimiter-joined key strings are deliberately avoided so that
// delimiter characters inside a field can never cause key collisions.
package annot

import (
	"github.com/agentstation/utc"
)

// EntryDateLayout is the wire format for input-file entry dates and for
// created/modified dates in the bulk-load row files.
const EntryDateLayout = "01/02/2006"

// Record is one parsed line of the standard tab-delimited input format.
// Fields 1-9 are required; Namespace (field 10) and Properties (field 11)
// are optional. All values are raw text; resolution against the store
// happens in the validators.
type Record struct {
	LineNum      int
	Raw          string // original line text, kept for duplicate reporting
	TermID       string // accession ID of the vocabulary term
	ObjectID     string // identifier of the annotated object
	Reference    string // reference token (e.g. J:12345)
	EvidenceCode string // evidence code abbreviation
	InferredFrom string
	Qualifier    string
	Editor       string
	EntryDate    utc.Time // zero when the field was blank
	Notes        string
	Namespace    string // alternate object-identifier namespace, field 10
	Properties   string // property blob in the stanza grammar, field 11
}

// AnnotationKey is the natural key of an Annotation: at most one Annotation
// row exists per key within an annotation type.
type AnnotationKey struct {
	AnnotType int64
	Object    int64
	Term      int64
	Qualifier int64
}

// EvidenceKey is the dedup key of an Evidence row. Extra carries the
// load-type specific widening (encoded properties, inferred-from text,
// notes, or empty for the default policy).
type EvidenceKey struct {
	Annot     int64
	Code      int64
	Reference int64
	Extra     string
}

// Annotation is one bulk-load row of the annotation entity.
type Annotation struct {
	Key       int64
	AnnotType int64
	Object    int64
	Term      int64
	Qualifier int64
	Created   utc.Time
	Modified  utc.Time
}

// Evidence is one bulk-load row of the evidence entity.
type Evidence struct {
	Key          int64
	Annot        int64
	Code         int64
	Reference    int64
	InferredFrom string
	CreatedBy    int64
	ModifiedBy   int64
	Created      utc.Time
	Modified     utc.Time
}

// Property is one ordered (stanza, sequence, term, value) tuple owned by an
// Evidence row. Stanza and Sequence are 1-indexed.
type Property struct {
	Key        int64
	Evidence   int64
	Term       int64
	Stanza     int
	Sequence   int
	Value      string
	CreatedBy  int64
	ModifiedBy int64
	Created    utc.Time
	Modified   utc.Time
}

// Note is the free-text annotation attached 1:1 to an Evidence row.
// In the chunked variant Text is empty on the header row and the content
// lives in the ordered Chunks; in the single variant Chunks is nil.
type Note struct {
	Key        int64
	Evidence   int64
	ObjectKind int64 // note object-type marker
	NoteType   int64 // note type marker
	Text       string
	Chunks     []NoteChunk
	CreatedBy  int64
	ModifiedBy int64
	Created    utc.Time
	Modified   utc.Time
}

// NoteChunk is one ordered segment of a chunked note.
type NoteChunk struct {
	Note     int64
	Sequence int
	Text     string
}

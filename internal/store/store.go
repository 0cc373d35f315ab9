// Package store defines the annotation store consumed by the load
// pipeline: lookup queries behind the caches, pre-load snapshots for the
// key resolvers, high-water marks for the surrogate key allocator, and the
// deletion cascade. Implementations live in the postgres and sqlite
// subpackages; Memory is an in-memory fixture for component tests.
//
// The loader assumes exclusive write access to the target annotation-type
// scope for the duration of one run: high-water marks are read once at
// start and advanced purely in memory, so concurrent runs against an
// overlapping scope are unsafe.
package store

import (
	"context"

	"github.com/annotbase/annotload/pkg/annot"
)

// Marks holds the next available surrogate key per entity, seeded from the
// store's current maxima at load start and written back once at end of run.
type Marks struct {
	Annotation int64
	Evidence   int64
	Property   int64
	Note       int64
}

// SeedFloor is the first surrogate key handed out against an empty store.
const SeedFloor = 1000

// EvidenceSeed is one pre-existing evidence row of the target annotation
// type, carried with the raw fields each load-type strategy may fold into
// the dedup key.
type EvidenceSeed struct {
	Annot             int64
	Code              int64
	Reference         int64
	InferredFrom      string
	Notes             string
	EncodedProperties string
}

// Scope selects the subset of annotations targeted by a new/delete run.
// Reference scoping takes precedence over curator scoping; the zero value
// is unscoped (the whole annotation type).
type Scope struct {
	Reference     int64  // 0 means no reference scoping
	CuratorPrefix string // empty means no curator scoping
}

// Unscoped reports whether the scope covers the whole annotation type.
func (s Scope) Unscoped() bool { return s.Reference == 0 && s.CuratorPrefix == "" }

// EvidenceRef pairs an evidence key with its parent annotation key.
type EvidenceRef struct {
	Evidence int64
	Annot    int64
}

// Plan is the explicit deletion-plan value object: every key to remove,
// computed up front and applied child-to-parent inside one unit of work.
type Plan struct {
	AnnotType   int64
	Scope       Scope
	Properties  []int64
	Notes       []int64
	Evidence    []int64
	Annotations []int64 // annotations left with zero surviving evidence
	// CrossReference, when nonzero, additionally removes the
	// cross-reference-usage marker scoped to that reference.
	CrossReference int64
}

// Empty reports whether the plan deletes nothing.
func (p *Plan) Empty() bool {
	return len(p.Properties) == 0 && len(p.Notes) == 0 &&
		len(p.Evidence) == 0 && len(p.Annotations) == 0 && p.CrossReference == 0
}

// Store is the read/write surface of the annotation store used by one load
// run. All methods take a context; the pipeline is synchronous and
// single-threaded, so implementations need not be safe for concurrent use.
type Store interface {
	// AnnotationType resolves an annotation-type name to its key.
	AnnotationType(ctx context.Context, name string) (int64, error)

	// Terms returns accession→key for the vocabulary, optionally admitting
	// obsolete terms.
	Terms(ctx context.Context, vocabulary string, includeObsolete bool) (map[string]int64, error)

	// EvidenceCodes returns abbreviation→key for the evidence vocabulary.
	EvidenceCodes(ctx context.Context, vocabulary string) (map[string]int64, error)

	// Qualifiers returns qualifier→key for the qualifier vocabulary,
	// addressed by abbreviation or by full label.
	Qualifiers(ctx context.Context, vocabulary string, byAbbreviation bool) (map[string]int64, error)

	// PropertyTerms returns term→key across the configured property
	// vocabularies. An empty vocabulary set yields an empty map.
	PropertyTerms(ctx context.Context, vocabularies []string) (map[string]int64, error)

	// Editors returns login→key for the curator directory.
	Editors(ctx context.Context) (map[string]int64, error)

	// ResolveObject resolves an object identifier within the namespace to
	// an object key, constrained to the object kind the annotation type
	// permits. ok is false on a clean miss.
	ResolveObject(ctx context.Context, accID, namespace string, annotType int64) (key int64, ok bool, err error)

	// ResolveReference resolves a reference token to its key.
	ResolveReference(ctx context.Context, token string) (key int64, ok bool, err error)

	// AnnotationSnapshot returns the natural-key→surrogate-key map of every
	// annotation of the type currently in the store.
	AnnotationSnapshot(ctx context.Context, annotType int64) (map[annot.AnnotationKey]int64, error)

	// EvidenceSnapshot returns the pre-existing evidence of the type with
	// the raw fields needed to rebuild dedup keys under any strategy.
	EvidenceSnapshot(ctx context.Context, annotType int64) ([]EvidenceSeed, error)

	// HighWaterMarks returns the next available surrogate key per entity.
	HighWaterMarks(ctx context.Context) (Marks, error)

	// ScopedEvidence lists the evidence of the annotation type falling
	// inside the deletion scope.
	ScopedEvidence(ctx context.Context, annotType int64, scope Scope) ([]EvidenceRef, error)

	// PropertyKeys and NoteKeys list the child rows of the given evidence.
	PropertyKeys(ctx context.Context, evidence []int64) ([]int64, error)
	NoteKeys(ctx context.Context, evidence []int64) ([]int64, error)

	// OrphanAnnotations lists annotations of the type that would retain
	// zero evidence once the given evidence keys are deleted.
	OrphanAnnotations(ctx context.Context, annotType int64, evidence []int64) ([]int64, error)

	// CuratorExists reports whether any editor login matches the prefix.
	CuratorExists(ctx context.Context, prefix string) (bool, error)

	// ApplyDeletion removes the planned rows child-to-parent in one unit
	// of work.
	ApplyDeletion(ctx context.Context, plan *Plan) error

	// AdvanceSequences writes the final high-water marks back to the store.
	AdvanceSequences(ctx context.Context, used Marks) error

	// Close releases the underlying connection.
	Close() error
}

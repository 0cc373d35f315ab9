// Package resolve assigns surrogate keys: the allocator hands out
// monotonically increasing keys seeded once from the store's high-water
// marks, and the annotation/evidence resolvers deduplicate entities by
// composite natural key across the run's in-memory maps and the pre-load
// store snapshots. Nothing here talks to the store mid-run.
package resolve

import "github.com/annotbase/annotload/internal/store"

// Allocator hands out surrogate keys for one load run. It is seeded once
// and advanced purely in memory; the run holds exclusive write access to
// its scope, so the marks are never re-queried.
type Allocator struct {
	next store.Marks
}

// NewAllocator seeds an allocator from the store's high-water marks.
func NewAllocator(seed store.Marks) *Allocator {
	return &Allocator{next: seed}
}

// NextAnnotation returns the next annotation key.
func (a *Allocator) NextAnnotation() int64 {
	k := a.next.Annotation
	a.next.Annotation++
	return k
}

// NextEvidence returns the next evidence key.
func (a *Allocator) NextEvidence() int64 {
	k := a.next.Evidence
	a.next.Evidence++
	return k
}

// NextProperty returns the next property key.
func (a *Allocator) NextProperty() int64 {
	k := a.next.Property
	a.next.Property++
	return k
}

// NextNote returns the next note key.
func (a *Allocator) NextNote() int64 {
	k := a.next.Note
	a.next.Note++
	return k
}

// Marks returns the high-water marks actually used, the only value written
// back to the store at end of run.
func (a *Allocator) Marks() store.Marks {
	return a.next
}

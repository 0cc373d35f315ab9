package resolve

import (
	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/pkg/annot"
)

// Annotations deduplicates the parent annotation entity by natural key.
// Once a key is seen, every subsequent line attaches its evidence to the
// same annotation; annotations are never duplicated within one run.
type Annotations struct {
	alloc *Allocator
	seen  map[annot.AnnotationKey]int64
}

// NewAnnotations creates the resolver over the pre-loaded store snapshot.
func NewAnnotations(alloc *Allocator, snapshot map[annot.AnnotationKey]int64) *Annotations {
	seen := make(map[annot.AnnotationKey]int64, len(snapshot))
	for k, v := range snapshot {
		seen[k] = v
	}
	return &Annotations{alloc: alloc, seen: seen}
}

// Resolve returns the surrogate key for the natural key, allocating a new
// annotation when the key is unseen. The returned row is non-nil exactly
// when a new annotation must be emitted to the sink.
func (r *Annotations) Resolve(key annot.AnnotationKey, entry utc.Time) (int64, *annot.Annotation) {
	if existing, ok := r.seen[key]; ok {
		return existing, nil
	}

	assigned := r.alloc.NextAnnotation()
	r.seen[key] = assigned
	return assigned, &annot.Annotation{
		Key:       assigned,
		AnnotType: key.AnnotType,
		Object:    key.Object,
		Term:      key.Term,
		Qualifier: key.Qualifier,
		Created:   entry,
		Modified:  entry,
	}
}

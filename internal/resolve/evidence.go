package resolve

import (
	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/loadtype"
)

// Evidence deduplicates evidence statements. The dedup key starts from
// (annotation, code, reference) and is widened by the active load-type
// strategy; the store snapshot is folded in once at construction and never
// re-queried, so the duplicate guarantee is run-scoped and single-pass.
type Evidence struct {
	alloc    *Allocator
	strategy loadtype.Strategy
	// seen maps dedup key → true when the key came from the store
	// snapshot, false when an earlier input line claimed it.
	seen map[annot.EvidenceKey]bool
}

// NewEvidence creates the resolver, rebuilding dedup keys for every
// pre-existing store row under the active strategy.
func NewEvidence(alloc *Allocator, strategy loadtype.Strategy, seeds []store.EvidenceSeed) *Evidence {
	seen := make(map[annot.EvidenceKey]bool, len(seeds))
	for _, s := range seeds {
		key := annot.EvidenceKey{
			Annot:     s.Annot,
			Code:      s.Code,
			Reference: s.Reference,
			Extra:     strategy.DedupExtra(s.EncodedProperties, s.InferredFrom, s.Notes),
		}
		seen[key] = true
	}
	return &Evidence{alloc: alloc, strategy: strategy, seen: seen}
}

// Resolve checks the dedup key and allocates a new evidence row when the
// statement is unseen. On a duplicate the row is nil and inStore tells the
// caller whether the collision was with a pre-existing store row or an
// earlier input line.
func (r *Evidence) Resolve(
	annotKey, code, reference int64,
	inferredFrom, encodedProperties, notes string,
	editor int64,
	entry utc.Time,
) (row *annot.Evidence, inStore bool, dup bool) {
	key := annot.EvidenceKey{
		Annot:     annotKey,
		Code:      code,
		Reference: reference,
		Extra:     r.strategy.DedupExtra(encodedProperties, inferredFrom, notes),
	}

	if fromStore, ok := r.seen[key]; ok {
		return nil, fromStore, true
	}
	r.seen[key] = false

	return &annot.Evidence{
		Key:          r.alloc.NextEvidence(),
		Annot:        annotKey,
		Code:         code,
		Reference:    reference,
		InferredFrom: inferredFrom,
		CreatedBy:    editor,
		ModifiedBy:   editor,
		Created:      entry,
		Modified:     entry,
	}, false, false
}

package resolve

import (
	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/internal/cache"
	"github.com/annotbase/annotload/internal/report"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/properties"
)

// PropertyEncoder expands a record's property pairs into Property rows,
// resolving each term against the property-term cache. A pair whose term
// does not resolve is reported and dropped; sibling pairs in the same
// stanza still process, and the host evidence row is unaffected.
type PropertyEncoder struct {
	alloc  *Allocator
	caches *cache.Caches
	report *report.Report
}

// NewPropertyEncoder creates the encoder.
func NewPropertyEncoder(alloc *Allocator, caches *cache.Caches, rep *report.Report) *PropertyEncoder {
	return &PropertyEncoder{alloc: alloc, caches: caches, report: rep}
}

// Encode emits one Property row per resolvable pair, keyed to the evidence
// row. An empty pair list yields nil and is not an error.
func (e *PropertyEncoder) Encode(
	lineNum int,
	pairs []properties.Pair,
	evidence, editor int64,
	entry utc.Time,
) []annot.Property {
	var rows []annot.Property
	for _, p := range pairs {
		termKey, ok := e.caches.PropertyTerm(p.Term)
		if !ok {
			e.report.InvalidProperty(lineNum, p.Term)
			continue
		}
		rows = append(rows, annot.Property{
			Key:        e.alloc.NextProperty(),
			Evidence:   evidence,
			Term:       termKey,
			Stanza:     p.Stanza,
			Sequence:   p.Sequence,
			Value:      p.Value,
			CreatedBy:  editor,
			ModifiedBy: editor,
			Created:    entry,
			Modified:   entry,
		})
	}
	return rows
}

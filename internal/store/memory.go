package store

import (
	"context"
	"strings"

	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
)

// Term is one vocabulary entry in the Memory fixture.
type Term struct {
	Key      int64
	Obsolete bool
}

// MemoryEvidence is one stored evidence row in the Memory fixture, carrying
// the curator login for curator-scoped deletion.
type MemoryEvidence struct {
	Key       int64
	Annot     int64
	Code      int64
	Reference int64
	CreatedBy string
}

// Memory is an in-memory Store used as fixture data in component tests.
// Populate the exported fields, then hand it to the caches, resolvers and
// planner. ApplyDeletion and AdvanceSequences record their arguments so
// tests can assert on what a run would have committed.
type Memory struct {
	AnnotTypes     map[string]int64
	TermsByVocab   map[string]map[string]Term  // vocabulary → accession → term
	CodesByVocab   map[string]map[string]int64 // vocabulary → abbreviation → key
	QualsByAbbrev  map[string]map[string]int64 // vocabulary → abbreviation → key
	QualsByLabel   map[string]map[string]int64 // vocabulary → label → key
	Users          map[string]int64            // login → key
	Objects        map[string]map[string]int64 // namespace → accession → key
	References     map[string]int64            // token → key
	Annotations    map[annot.AnnotationKey]int64
	Seeds          []EvidenceSeed
	Rows           []MemoryEvidence
	PropsByEv      map[int64][]int64 // evidence key → property keys
	NotesByEv      map[int64][]int64 // evidence key → note keys
	Marks          Marks
	CrossRefUsage  map[int64]bool // reference key → marker present
	ObjectQueries  int            // count of ResolveObject store round trips
	AppliedPlans   []*Plan
	AdvancedMarks  []Marks
	FailObjects    bool // force ResolveObject to error, for fault paths
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty fixture with all maps allocated and marks at
// the seed floor.
func NewMemory() *Memory {
	return &Memory{
		AnnotTypes:    map[string]int64{},
		TermsByVocab:  map[string]map[string]Term{},
		CodesByVocab:  map[string]map[string]int64{},
		QualsByAbbrev: map[string]map[string]int64{},
		QualsByLabel:  map[string]map[string]int64{},
		Users:         map[string]int64{},
		Objects:       map[string]map[string]int64{},
		References:    map[string]int64{},
		Annotations:   map[annot.AnnotationKey]int64{},
		PropsByEv:     map[int64][]int64{},
		NotesByEv:     map[int64][]int64{},
		CrossRefUsage: map[int64]bool{},
		Marks:         Marks{Annotation: SeedFloor, Evidence: SeedFloor, Property: SeedFloor, Note: SeedFloor},
	}
}

// AnnotationType implements Store.
func (m *Memory) AnnotationType(_ context.Context, name string) (int64, error) {
	key, ok := m.AnnotTypes[name]
	if !ok {
		return 0, errors.NewConfigError("annotation-type", "unknown annotation type: "+name, errors.ErrNotFound)
	}
	return key, nil
}

// Terms implements Store.
func (m *Memory) Terms(_ context.Context, vocabulary string, includeObsolete bool) (map[string]int64, error) {
	out := map[string]int64{}
	for acc, t := range m.TermsByVocab[vocabulary] {
		if t.Obsolete && !includeObsolete {
			continue
		}
		out[acc] = t.Key
	}
	return out, nil
}

// EvidenceCodes implements Store.
func (m *Memory) EvidenceCodes(_ context.Context, vocabulary string) (map[string]int64, error) {
	return clone(m.CodesByVocab[vocabulary]), nil
}

// Qualifiers implements Store.
func (m *Memory) Qualifiers(_ context.Context, vocabulary string, byAbbreviation bool) (map[string]int64, error) {
	if byAbbreviation {
		return clone(m.QualsByAbbrev[vocabulary]), nil
	}
	return clone(m.QualsByLabel[vocabulary]), nil
}

// PropertyTerms implements Store.
func (m *Memory) PropertyTerms(_ context.Context, vocabularies []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, vocab := range vocabularies {
		for acc, t := range m.TermsByVocab[vocab] {
			out[acc] = t.Key
		}
	}
	return out, nil
}

// Editors implements Store.
func (m *Memory) Editors(_ context.Context) (map[string]int64, error) {
	return clone(m.Users), nil
}

// ResolveObject implements Store.
func (m *Memory) ResolveObject(_ context.Context, accID, namespace string, _ int64) (int64, bool, error) {
	m.ObjectQueries++
	if m.FailObjects {
		return 0, false, errors.NewStoreError("query", errors.New("object lookup failed"))
	}
	key, ok := m.Objects[namespace][accID]
	return key, ok, nil
}

// ResolveReference implements Store.
func (m *Memory) ResolveReference(_ context.Context, token string) (int64, bool, error) {
	key, ok := m.References[token]
	return key, ok, nil
}

// AnnotationSnapshot implements Store.
func (m *Memory) AnnotationSnapshot(_ context.Context, _ int64) (map[annot.AnnotationKey]int64, error) {
	out := make(map[annot.AnnotationKey]int64, len(m.Annotations))
	for k, v := range m.Annotations {
		out[k] = v
	}
	return out, nil
}

// EvidenceSnapshot implements Store.
func (m *Memory) EvidenceSnapshot(_ context.Context, _ int64) ([]EvidenceSeed, error) {
	return append([]EvidenceSeed(nil), m.Seeds...), nil
}

// HighWaterMarks implements Store.
func (m *Memory) HighWaterMarks(_ context.Context) (Marks, error) {
	return m.Marks, nil
}

// ScopedEvidence implements Store.
func (m *Memory) ScopedEvidence(_ context.Context, _ int64, scope Scope) ([]EvidenceRef, error) {
	var out []EvidenceRef
	for _, row := range m.Rows {
		switch {
		case scope.Reference != 0:
			if row.Reference != scope.Reference {
				continue
			}
		case scope.CuratorPrefix != "":
			if !strings.HasPrefix(row.CreatedBy, scope.CuratorPrefix) {
				continue
			}
		}
		out = append(out, EvidenceRef{Evidence: row.Key, Annot: row.Annot})
	}
	return out, nil
}

// PropertyKeys implements Store.
func (m *Memory) PropertyKeys(_ context.Context, evidence []int64) ([]int64, error) {
	var out []int64
	for _, ev := range evidence {
		out = append(out, m.PropsByEv[ev]...)
	}
	return out, nil
}

// NoteKeys implements Store.
func (m *Memory) NoteKeys(_ context.Context, evidence []int64) ([]int64, error) {
	var out []int64
	for _, ev := range evidence {
		out = append(out, m.NotesByEv[ev]...)
	}
	return out, nil
}

// OrphanAnnotations implements Store.
func (m *Memory) OrphanAnnotations(_ context.Context, _ int64, evidence []int64) ([]int64, error) {
	deleted := map[int64]bool{}
	for _, ev := range evidence {
		deleted[ev] = true
	}
	surviving := map[int64]bool{}
	members := map[int64]bool{}
	for _, row := range m.Rows {
		members[row.Annot] = true
		if !deleted[row.Key] {
			surviving[row.Annot] = true
		}
	}
	var out []int64
	for ann := range members {
		if !surviving[ann] {
			out = append(out, ann)
		}
	}
	return out, nil
}

// CuratorExists implements Store.
func (m *Memory) CuratorExists(_ context.Context, prefix string) (bool, error) {
	for login := range m.Users {
		if strings.HasPrefix(login, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// ApplyDeletion implements Store by recording the plan.
func (m *Memory) ApplyDeletion(_ context.Context, plan *Plan) error {
	m.AppliedPlans = append(m.AppliedPlans, plan)
	return nil
}

// AdvanceSequences implements Store by recording the marks.
func (m *Memory) AdvanceSequences(_ context.Context, used Marks) error {
	m.AdvancedMarks = append(m.AdvancedMarks, used)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

func clone(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package validate runs every field of a parsed record against the lookup
// caches. All validators run even after the first miss so the error report
// accumulates every problem on a bad line; any single unresolved field
// rejects the whole record.
package validate

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/internal/cache"
	"github.com/annotbase/annotload/internal/report"
	"github.com/annotbase/annotload/pkg/annot"
)

// Field length limits carried over from the input-format contract.
const (
	MaxEvidenceCodeLen = 5
	MaxEditorLen       = 30
	MaxInferredFromLen = 255
)

// Resolved carries the store keys of a fully validated record.
type Resolved struct {
	Term      int64
	Object    int64
	Reference int64
	Code      int64
	Qualifier int64
	// Editor is zero when the profile has no editor directory; the editor
	// field is then only required to be non-empty.
	Editor    int64
	EntryDate utc.Time
}

// Validator validates records for one run.
type Validator struct {
	caches *cache.Caches
	report *report.Report
	now    func() utc.Time
}

// New creates a validator. now supplies the default entry date for records
// with a blank date field.
func New(caches *cache.Caches, rep *report.Report, now func() utc.Time) *Validator {
	if now == nil {
		now = utc.Now
	}
	return &Validator{caches: caches, report: rep, now: now}
}

// Validate resolves every field of rec. ok is false when any field failed;
// the returned error is reserved for store faults, which are fatal.
func (v *Validator) Validate(ctx context.Context, rec annot.Record) (Resolved, bool, error) {
	res := Resolved{EntryDate: rec.EntryDate}
	if res.EntryDate.IsZero() {
		res.EntryDate = v.now()
	}
	ok := true

	if key, found := v.caches.Term(rec.TermID); found {
		res.Term = key
	} else {
		label := "Term"
		if !v.caches.IncludeObsolete() {
			label = "or Obsolete Term"
		}
		v.report.Invalid(rec.LineNum, label, rec.TermID)
		ok = false
	}

	key, found, err := v.caches.Object(ctx, rec.ObjectID)
	if err != nil {
		return Resolved{}, false, err
	}
	if found {
		res.Object = key
	} else {
		v.report.Invalid(rec.LineNum, "Object", rec.ObjectID)
		ok = false
	}

	key, found, err = v.caches.Reference(ctx, rec.Reference)
	if err != nil {
		return Resolved{}, false, err
	}
	if found {
		res.Reference = key
	} else {
		v.report.Invalid(rec.LineNum, "Reference", rec.Reference)
		ok = false
	}

	if len(rec.EvidenceCode) > MaxEvidenceCodeLen {
		v.report.Invalid(rec.LineNum, "Evidence Code", rec.EvidenceCode)
		ok = false
	} else if key, found := v.caches.EvidenceCode(rec.EvidenceCode); found {
		res.Code = key
	} else {
		v.report.Invalid(rec.LineNum, "Evidence Code", rec.EvidenceCode)
		ok = false
	}

	if key, found := v.caches.Qualifier(rec.Qualifier); found {
		res.Qualifier = key
	} else {
		v.report.Invalid(rec.LineNum, "Qualifier", rec.Qualifier)
		ok = false
	}

	if !v.validEditor(rec, &res) {
		ok = false
	}

	if len(rec.InferredFrom) > MaxInferredFromLen {
		v.report.Invalid(rec.LineNum, "Inferred From", rec.InferredFrom)
		ok = false
	}

	return res, ok, nil
}

// validEditor applies the non-empty check always, and the directory lookup
// when the profile carries one.
func (v *Validator) validEditor(rec annot.Record, res *Resolved) bool {
	if rec.Editor == "" || len(rec.Editor) > MaxEditorLen {
		v.report.Invalid(rec.LineNum, "User", rec.Editor)
		return false
	}
	if !v.caches.HasEditorDirectory() {
		return true
	}
	key, found := v.caches.Editor(rec.Editor)
	if !found {
		v.report.Invalid(rec.LineNum, "User", rec.Editor)
		return false
	}
	res.Editor = key
	return true
}

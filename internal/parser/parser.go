// Package parser splits one line of the standard tab-delimited input
// format into a typed record. A line carries at least 9 and up to 11
// meaningful fields; columns beyond 11 are ignored. Lines with fewer than
// 9 columns are malformed: the loader's policy is to skip them and
// continue, recording the rejection in the error report.
package parser

import (
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
)

// MinColumns is the minimum field count of a well-formed line.
const MinColumns = 9

// Field positions in the input format.
const (
	fieldTerm = iota
	fieldObject
	fieldReference
	fieldEvidenceCode
	fieldInferredFrom
	fieldQualifier
	fieldEditor
	fieldEntryDate
	fieldNotes
	fieldNamespace
	fieldProperties
)

// Parse splits line into a record. The returned error is a *errors.ParseError
// for malformed lines; the caller reports it and drops the line.
func Parse(file string, lineNum int, line string) (annot.Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < MinColumns {
		return annot.Record{}, errors.NewParseError(file, lineNum, "fewer than 9 columns")
	}

	rec := annot.Record{
		LineNum:      lineNum,
		Raw:          line,
		TermID:       strings.TrimSpace(fields[fieldTerm]),
		ObjectID:     strings.TrimSpace(fields[fieldObject]),
		Reference:    strings.TrimSpace(fields[fieldReference]),
		EvidenceCode: strings.TrimSpace(fields[fieldEvidenceCode]),
		InferredFrom: strings.TrimSpace(fields[fieldInferredFrom]),
		Qualifier:    strings.TrimSpace(fields[fieldQualifier]),
		Editor:       strings.TrimSpace(fields[fieldEditor]),
		Notes:        strings.TrimSpace(fields[fieldNotes]),
	}

	if date := strings.TrimSpace(fields[fieldEntryDate]); date != "" {
		t, err := time.Parse(annot.EntryDateLayout, date)
		if err != nil {
			return annot.Record{}, errors.NewParseError(file, lineNum, "bad entry date: "+date)
		}
		rec.EntryDate = utc.Time{Time: t.UTC()}
	}

	if len(fields) > fieldNamespace {
		rec.Namespace = strings.TrimSpace(fields[fieldNamespace])
	}
	if len(fields) > fieldProperties {
		rec.Properties = strings.TrimSpace(fields[fieldProperties])
	}
	return rec, nil
}

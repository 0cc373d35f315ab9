package annot

import (
	"fmt"
	"strings"
)

// Mode selects the processing behavior of a load run.
type Mode string

// Processing modes.
const (
	// ModeNew deletes the configured scope, then loads the input file.
	ModeNew Mode = "new"
	// ModeAppend loads the input file with no prior deletion.
	ModeAppend Mode = "append"
	// ModePreview performs every verification and computation but commits
	// nothing: no deletes, no sink output, no sequence advancement.
	ModePreview Mode = "preview"
	// ModeDelete runs the deletion cascade and terminates without loading.
	ModeDelete Mode = "delete"
)

// Deletion scope sentinels: a reference token of NoReference means "no
// reference scoping" and a curator token of NoCurator means "no curator
// scoping". With both sentinels in play a new/delete run is unscoped and
// removes every annotation of the configured annotation type.
const (
	NoReference = "J:0"
	NoCurator   = "none"
)

// ParseMode validates a mode selector. Unrecognized strings are a fatal
// configuration condition for the run.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNew, ModeAppend, ModePreview, ModeDelete:
		return m, nil
	default:
		return "", fmt.Errorf("invalid processing mode: %q", s)
	}
}

// Deletes reports whether the mode runs the deletion cascade.
func (m Mode) Deletes() bool { return m == ModeNew || m == ModeDelete }

// Loads reports whether the mode processes input records after the
// deletion pre-pass.
func (m Mode) Loads() bool { return m != ModeDelete }

// Preview reports whether committing side effects are suppressed.
func (m Mode) Preview() bool { return m == ModePreview }

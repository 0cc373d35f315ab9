// Package config loads the annotation-type profile file and provides the
// viper helpers shared by the CLI. A profile binds an annotation type to
// its vocabularies, its load-type strategy and its note-storage variant;
// the load-specific switches (mode, scope, obsolete toggle) stay on the
// command line.
package config

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/annotbase/annotload/pkg/errors"
	"github.com/annotbase/annotload/pkg/loadtype"
)

// Note-storage variants. The legacy chunked variant splits note text into
// ordered segments of NoteChunkSize characters; the single variant stores
// it whole.
const (
	NoteSingle  = "single"
	NoteChunked = "chunked"
)

// DefaultChunkSize is the legacy note chunk length.
const DefaultChunkSize = 255

// Profile configures one annotation type for loading.
type Profile struct {
	Name                string   `yaml:"name"`
	TermVocabulary      string   `yaml:"term_vocabulary"`
	EvidenceVocabulary  string   `yaml:"evidence_vocabulary"`
	QualifierVocabulary string   `yaml:"qualifier_vocabulary"`
	// QualifierByAbbreviation selects the qualifier addressing mode:
	// abbreviation when true, full label when false.
	QualifierByAbbreviation bool `yaml:"qualifier_by_abbreviation"`
	// PropertyVocabularies scope the property-term cache. An empty set
	// admits zero property terms, so every property pair logs as invalid;
	// the loader warns once at startup when a profile leaves this empty.
	PropertyVocabularies []string `yaml:"property_vocabularies"`
	Strategy             string   `yaml:"strategy"`
	NoteVariant          string   `yaml:"note_variant"`
	NoteChunkSize        int      `yaml:"note_chunk_size"`
	NoteObjectKind       int64    `yaml:"note_object_kind"`
	NoteType             int64    `yaml:"note_type"`
	// DefaultNamespace is the object-identifier namespace assumed until an
	// input line names an alternate one in field 10.
	DefaultNamespace string `yaml:"default_namespace"`
	// CrossReferenceUsage removes the cross-reference-usage marker during
	// reference-scoped deletion, for the one domain that maintains it.
	CrossReferenceUsage bool `yaml:"cross_reference_usage"`
	// RequireEditorDirectory validates editors against the store's curator
	// directory. When false the editor field is only required non-empty.
	RequireEditorDirectory bool `yaml:"require_editor_directory"`
}

// profilesFile is the on-disk shape of the profile file.
type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads and validates the profile file.
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewConfigError("profiles", "cannot decode "+path, err)
	}

	out := make(map[string]Profile, len(file.Profiles))
	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, errors.NewConfigError("profiles", "profile without a name", nil)
		}
		if _, dup := out[p.Name]; dup {
			return nil, errors.NewConfigError("profiles", "duplicate profile: "+p.Name, nil)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		out[p.Name] = p.withDefaults()
	}
	return out, nil
}

func (p Profile) validate() error {
	if _, err := loadtype.Lookup(p.Strategy); err != nil {
		return errors.NewConfigError("profiles", p.Name+": "+err.Error(), err)
	}
	switch p.NoteVariant {
	case "", NoteSingle, NoteChunked:
	default:
		return errors.NewConfigError("profiles", p.Name+": unknown note variant: "+p.NoteVariant, nil)
	}
	if p.TermVocabulary == "" || p.EvidenceVocabulary == "" || p.QualifierVocabulary == "" {
		return errors.NewConfigError("profiles", p.Name+": term, evidence and qualifier vocabularies are required", nil)
	}
	return nil
}

func (p Profile) withDefaults() Profile {
	if p.Strategy == "" {
		p.Strategy = loadtype.Default
	}
	if p.NoteVariant == "" {
		p.NoteVariant = NoteSingle
	}
	if p.NoteChunkSize == 0 {
		p.NoteChunkSize = DefaultChunkSize
	}
	return p
}

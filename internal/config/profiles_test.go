package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/pkg/loadtype"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfiles(t *testing.T) {
	t.Run("loads and applies defaults", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  - name: Function/Gene
    term_vocabulary: Function
    evidence_vocabulary: Function Evidence Codes
    qualifier_vocabulary: Function Qualifiers
    property_vocabularies: [Function Properties]
`)
		profiles, err := config.LoadProfiles(path)
		require.NoError(t, err)
		require.Contains(t, profiles, "Function/Gene")

		p := profiles["Function/Gene"]
		assert.Equal(t, loadtype.Default, p.Strategy)
		assert.Equal(t, config.NoteSingle, p.NoteVariant)
		assert.Equal(t, config.DefaultChunkSize, p.NoteChunkSize)
	})

	t.Run("explicit settings survive", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  - name: Expression/Gene
    term_vocabulary: Expression
    evidence_vocabulary: Expression Evidence Codes
    qualifier_vocabulary: Expression Qualifiers
    strategy: properties-inferred
    note_variant: chunked
    note_chunk_size: 100
    qualifier_by_abbreviation: true
    cross_reference_usage: true
`)
		profiles, err := config.LoadProfiles(path)
		require.NoError(t, err)

		p := profiles["Expression/Gene"]
		assert.Equal(t, loadtype.PropertiesInferred, p.Strategy)
		assert.Equal(t, config.NoteChunked, p.NoteVariant)
		assert.Equal(t, 100, p.NoteChunkSize)
		assert.True(t, p.QualifierByAbbreviation)
		assert.True(t, p.CrossReferenceUsage)
	})

	t.Run("unknown strategy fails", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  - name: Bad
    term_vocabulary: V
    evidence_vocabulary: E
    qualifier_vocabulary: Q
    strategy: nonsense
`)
		_, err := config.LoadProfiles(path)
		assert.Error(t, err)
	})

	t.Run("unknown note variant fails", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  - name: Bad
    term_vocabulary: V
    evidence_vocabulary: E
    qualifier_vocabulary: Q
    note_variant: sharded
`)
		_, err := config.LoadProfiles(path)
		assert.Error(t, err)
	})

	t.Run("missing vocabulary fails", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  - name: Bad
    term_vocabulary: V
`)
		_, err := config.LoadProfiles(path)
		assert.Error(t, err)
	})

	t.Run("duplicate profile name fails", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  - name: Twice
    term_vocabulary: V
    evidence_vocabulary: E
    qualifier_vocabulary: Q
  - name: Twice
    term_vocabulary: V
    evidence_vocabulary: E
    qualifier_vocabulary: Q
`)
		_, err := config.LoadProfiles(path)
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := config.LoadProfiles(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

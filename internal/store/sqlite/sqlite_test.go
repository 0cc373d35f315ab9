package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/internal/store/sqlite"
	"github.com/annotbase/annotload/internal/store/sqlstore"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
)

func open(t *testing.T) *sqlstore.Store {
	t.Helper()
	st, err := sqlite.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seed(t *testing.T, st *sqlstore.Store, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := st.DB().Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestOpen(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		st := open(t)
		_, err := st.AnnotationType(context.Background(), "missing")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("on disk", func(t *testing.T) {
		st, err := sqlite.Open(filepath.Join(t.TempDir(), "store.db"))
		require.NoError(t, err)
		assert.NoError(t, st.Close())
	})
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	st := open(t)
	seed(t, st,
		`INSERT INTO annotation_type (id, name, object_kind) VALUES (1, 'Function/Gene', 'gene')`,
		`INSERT INTO term (id, vocabulary, accession, label, abbreviation, obsolete) VALUES
			(10, 'Function', 'ACC:0001', 'kinase activity', '', 0),
			(11, 'Function', 'ACC:0002', 'old activity', '', 1),
			(30, 'Codes', '', '', 'IDA', 0),
			(40, 'Quals', '', 'NOT', 'N', 0)`,
		`INSERT INTO curator (id, login) VALUES (50, 'jsmith')`,
		`INSERT INTO accession (object_id, acc_id, namespace, object_kind) VALUES (60, 'OBJ:42', 'primary', 'gene')`,
		`INSERT INTO citation (id, token) VALUES (70, 'J:12345')`,
	)

	t.Run("annotation type", func(t *testing.T) {
		key, err := st.AnnotationType(ctx, "Function/Gene")
		require.NoError(t, err)
		assert.EqualValues(t, 1, key)
	})

	t.Run("terms honor the obsolete toggle", func(t *testing.T) {
		terms, err := st.Terms(ctx, "Function", false)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"ACC:0001": 10}, terms)

		terms, err = st.Terms(ctx, "Function", true)
		require.NoError(t, err)
		assert.Len(t, terms, 2)
	})

	t.Run("evidence codes by abbreviation", func(t *testing.T) {
		codes, err := st.EvidenceCodes(ctx, "Codes")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"IDA": 30}, codes)
	})

	t.Run("qualifiers by label or abbreviation", func(t *testing.T) {
		quals, err := st.Qualifiers(ctx, "Quals", false)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"NOT": 40}, quals)

		quals, err = st.Qualifiers(ctx, "Quals", true)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"N": 40}, quals)
	})

	t.Run("object constrained to the annotation type's kind", func(t *testing.T) {
		key, ok, err := st.ResolveObject(ctx, "OBJ:42", "primary", 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, 60, key)

		_, ok, err = st.ResolveObject(ctx, "OBJ:42", "other", 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reference token", func(t *testing.T) {
		key, ok, err := st.ResolveReference(ctx, "J:12345")
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, 70, key)

		_, ok, err = st.ResolveReference(ctx, "J:99999")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("curator prefix", func(t *testing.T) {
		ok, err := st.CuratorExists(ctx, "jsm")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = st.CuratorExists(ctx, "zz")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	st := open(t)
	seed(t, st,
		`INSERT INTO annotation_type (id, name, object_kind) VALUES (1, 'Function/Gene', 'gene')`,
		`INSERT INTO term (id, vocabulary, accession) VALUES (20, 'Props', 'anatomy')`,
		`INSERT INTO annotation (id, annot_type_id, object_id, term_id, qualifier_id, created, modified)
			VALUES (100, 1, 60, 10, 40, '01/15/2026', '01/15/2026')`,
		`INSERT INTO evidence (id, annotation_id, code_id, citation_id, inferred_from, created_by, modified_by, created, modified)
			VALUES (200, 100, 30, 70, 'ACC:1', 50, 50, '01/15/2026', '01/15/2026')`,
		`INSERT INTO evidence_property (id, evidence_id, term_id, stanza, sequence, value, created_by, modified_by, created, modified)
			VALUES (300, 200, 20, 1, 1, 'brain', 50, 50, '01/15/2026', '01/15/2026')`,
		`INSERT INTO note (id, evidence_id, object_kind, note_type, text, created_by, modified_by, created, modified)
			VALUES (400, 200, 8, 9, '', 50, 50, '01/15/2026', '01/15/2026')`,
		`INSERT INTO note_chunk (note_id, sequence, text) VALUES (400, 1, 'first '), (400, 2, 'second')`,
	)

	t.Run("annotation snapshot by natural key", func(t *testing.T) {
		snap, err := st.AnnotationSnapshot(ctx, 1)
		require.NoError(t, err)
		key := annot.AnnotationKey{AnnotType: 1, Object: 60, Term: 10, Qualifier: 40}
		assert.Equal(t, map[annot.AnnotationKey]int64{key: 100}, snap)
	})

	t.Run("evidence snapshot carries encoded properties and reassembled notes", func(t *testing.T) {
		seeds, err := st.EvidenceSnapshot(ctx, 1)
		require.NoError(t, err)
		require.Len(t, seeds, 1)
		assert.EqualValues(t, 100, seeds[0].Annot)
		assert.EqualValues(t, 30, seeds[0].Code)
		assert.EqualValues(t, 70, seeds[0].Reference)
		assert.Equal(t, "ACC:1", seeds[0].InferredFrom)
		assert.Equal(t, "anatomy&=&brain", seeds[0].EncodedProperties)
		assert.Equal(t, "first second", seeds[0].Notes)
	})
}

func TestHighWaterMarks(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store starts at the seed floor", func(t *testing.T) {
		st := open(t)
		marks, err := st.HighWaterMarks(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Marks{
			Annotation: store.SeedFloor,
			Evidence:   store.SeedFloor,
			Property:   store.SeedFloor,
			Note:       store.SeedFloor,
		}, marks)
	})

	t.Run("falls back to max id plus one", func(t *testing.T) {
		st := open(t)
		seed(t, st, `INSERT INTO annotation (id, annot_type_id, object_id, term_id, qualifier_id, created, modified)
			VALUES (5000, 1, 60, 10, 40, '', '')`)
		marks, err := st.HighWaterMarks(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5001, marks.Annotation)
	})

	t.Run("sequence state is authoritative and upserts", func(t *testing.T) {
		st := open(t)
		used := store.Marks{Annotation: 7000, Evidence: 7001, Property: 7002, Note: 7003}
		require.NoError(t, st.AdvanceSequences(ctx, used))

		marks, err := st.HighWaterMarks(ctx)
		require.NoError(t, err)
		assert.Equal(t, used, marks)

		used.Evidence = 8000
		require.NoError(t, st.AdvanceSequences(ctx, used))
		marks, err = st.HighWaterMarks(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 8000, marks.Evidence)
	})
}

func TestDeletionCascade(t *testing.T) {
	ctx := context.Background()
	st := open(t)
	seed(t, st,
		`INSERT INTO annotation_type (id, name, object_kind) VALUES (1, 'Function/Gene', 'gene')`,
		`INSERT INTO curator (id, login) VALUES (50, 'jsmith'), (51, 'mjones')`,
		`INSERT INTO annotation (id, annot_type_id, object_id, term_id, qualifier_id, created, modified) VALUES
			(100, 1, 60, 10, 40, '', ''),
			(101, 1, 61, 10, 40, '', '')`,
		`INSERT INTO evidence (id, annotation_id, code_id, citation_id, inferred_from, created_by, modified_by, created, modified) VALUES
			(200, 100, 30, 70, '', 50, 50, '', ''),
			(201, 100, 30, 71, '', 51, 51, '', ''),
			(202, 101, 30, 70, '', 50, 50, '', '')`,
		`INSERT INTO evidence_property (id, evidence_id, term_id, stanza, sequence, value, created_by, modified_by, created, modified)
			VALUES (300, 200, 20, 1, 1, 'x', 50, 50, '', '')`,
		`INSERT INTO note (id, evidence_id, object_kind, note_type, text, created_by, modified_by, created, modified)
			VALUES (400, 202, 8, 9, 'n', 50, 50, '', '')`,
		`INSERT INTO note_chunk (note_id, sequence, text) VALUES (400, 1, 'n')`,
		`INSERT INTO cross_reference_usage (citation_id) VALUES (70)`,
	)

	refs, err := st.ScopedEvidence(ctx, 1, store.Scope{Reference: 70})
	require.NoError(t, err)
	require.Len(t, refs, 2)

	evidence := []int64{refs[0].Evidence, refs[1].Evidence}
	assert.ElementsMatch(t, []int64{200, 202}, evidence)

	props, err := st.PropertyKeys(ctx, evidence)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{300}, props)

	notes, err := st.NoteKeys(ctx, evidence)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{400}, notes)

	orphans, err := st.OrphanAnnotations(ctx, 1, evidence)
	require.NoError(t, err)
	// Annotation 100 keeps evidence 201 (reference 71); 101 loses all.
	assert.Equal(t, []int64{101}, orphans)

	plan := &store.Plan{
		AnnotType:      1,
		Scope:          store.Scope{Reference: 70},
		Properties:     props,
		Notes:          notes,
		Evidence:       evidence,
		Annotations:    orphans,
		CrossReference: 70,
	}
	require.NoError(t, st.ApplyDeletion(ctx, plan))

	var count int
	row := st.DB().QueryRow(`SELECT COUNT(*) FROM evidence`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	row = st.DB().QueryRow(`SELECT COUNT(*) FROM annotation`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	for _, table := range []string{"evidence_property", "note", "note_chunk", "cross_reference_usage"} {
		row = st.DB().QueryRow(`SELECT COUNT(*) FROM ` + table)
		require.NoError(t, row.Scan(&count))
		assert.Zero(t, count, table)
	}
}

func TestCuratorScopedEvidence(t *testing.T) {
	ctx := context.Background()
	st := open(t)
	seed(t, st,
		`INSERT INTO annotation_type (id, name, object_kind) VALUES (1, 'Function/Gene', 'gene')`,
		`INSERT INTO curator (id, login) VALUES (50, 'jsmith'), (51, 'mjones')`,
		`INSERT INTO annotation (id, annot_type_id, object_id, term_id, qualifier_id, created, modified)
			VALUES (100, 1, 60, 10, 40, '', '')`,
		`INSERT INTO evidence (id, annotation_id, code_id, citation_id, inferred_from, created_by, modified_by, created, modified) VALUES
			(200, 100, 30, 70, '', 50, 50, '', ''),
			(201, 100, 30, 70, '', 51, 51, '', '')`,
	)

	refs, err := st.ScopedEvidence(ctx, 1, store.Scope{CuratorPrefix: "jsm"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.EqualValues(t, 200, refs[0].Evidence)
}

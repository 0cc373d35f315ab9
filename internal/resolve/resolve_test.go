package resolve_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotbase/annotload/internal/cache"
	"github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/internal/report"
	"github.com/annotbase/annotload/internal/resolve"
	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/loadtype"
	"github.com/annotbase/annotload/pkg/properties"
)

var entry = utc.Time{Time: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)}

func seededAllocator() *resolve.Allocator {
	return resolve.NewAllocator(store.Marks{
		Annotation: 1000, Evidence: 2000, Property: 3000, Note: 4000,
	})
}

func TestAllocator(t *testing.T) {
	a := seededAllocator()
	assert.EqualValues(t, 1000, a.NextAnnotation())
	assert.EqualValues(t, 1001, a.NextAnnotation())
	assert.EqualValues(t, 2000, a.NextEvidence())
	assert.EqualValues(t, 3000, a.NextProperty())
	assert.EqualValues(t, 4000, a.NextNote())

	marks := a.Marks()
	assert.EqualValues(t, 1002, marks.Annotation)
	assert.EqualValues(t, 2001, marks.Evidence)
	assert.EqualValues(t, 3001, marks.Property)
	assert.EqualValues(t, 4001, marks.Note)
}

func TestAnnotations(t *testing.T) {
	key := annot.AnnotationKey{AnnotType: 1, Object: 60, Term: 10, Qualifier: 40}

	t.Run("new key allocates and emits a row", func(t *testing.T) {
		r := resolve.NewAnnotations(seededAllocator(), nil)
		assigned, row := r.Resolve(key, entry)
		assert.EqualValues(t, 1000, assigned)
		require.NotNil(t, row)
		assert.Equal(t, assigned, row.Key)
		assert.Equal(t, key.Object, row.Object)
	})

	t.Run("repeat key reuses the annotation", func(t *testing.T) {
		r := resolve.NewAnnotations(seededAllocator(), nil)
		first, _ := r.Resolve(key, entry)
		second, row := r.Resolve(key, entry)
		assert.Equal(t, first, second)
		assert.Nil(t, row)
	})

	t.Run("snapshot key never re-emits", func(t *testing.T) {
		r := resolve.NewAnnotations(seededAllocator(), map[annot.AnnotationKey]int64{key: 77})
		assigned, row := r.Resolve(key, entry)
		assert.EqualValues(t, 77, assigned)
		assert.Nil(t, row)
	})

	t.Run("distinct qualifier is a distinct annotation", func(t *testing.T) {
		r := resolve.NewAnnotations(seededAllocator(), nil)
		first, _ := r.Resolve(key, entry)
		other := key
		other.Qualifier = 41
		second, row := r.Resolve(other, entry)
		assert.NotEqual(t, first, second)
		assert.NotNil(t, row)
	})
}

func mustStrategy(t *testing.T, name string) loadtype.Strategy {
	t.Helper()
	s, err := loadtype.Lookup(name)
	require.NoError(t, err)
	return s
}

func TestEvidence(t *testing.T) {
	t.Run("default key collapses by annotation, code, reference", func(t *testing.T) {
		r := resolve.NewEvidence(seededAllocator(), mustStrategy(t, loadtype.Default), nil)

		row, _, dup := r.Resolve(1000, 30, 70, "ACC:1", "p&=&v", "notes", 50, entry)
		require.False(t, dup)
		require.NotNil(t, row)
		assert.EqualValues(t, 2000, row.Key)
		assert.Equal(t, "ACC:1", row.InferredFrom)

		// Same narrow key, different payload: still a duplicate.
		_, inStore, dup := r.Resolve(1000, 30, 70, "ACC:2", "q&=&w", "other", 50, entry)
		assert.True(t, dup)
		assert.False(t, inStore)
	})

	t.Run("properties strategy admits distinct payloads", func(t *testing.T) {
		r := resolve.NewEvidence(seededAllocator(), mustStrategy(t, loadtype.Properties), nil)

		_, _, dup := r.Resolve(1000, 30, 70, "", "anatomy&=&brain", "", 50, entry)
		require.False(t, dup)
		_, _, dup = r.Resolve(1000, 30, 70, "", "anatomy&=&liver", "", 50, entry)
		assert.False(t, dup)
		_, _, dup = r.Resolve(1000, 30, 70, "", "anatomy&=&brain", "", 50, entry)
		assert.True(t, dup)
	})

	t.Run("store snapshot collision reports in-store", func(t *testing.T) {
		seeds := []store.EvidenceSeed{{Annot: 1000, Code: 30, Reference: 70}}
		r := resolve.NewEvidence(seededAllocator(), mustStrategy(t, loadtype.Default), seeds)

		_, inStore, dup := r.Resolve(1000, 30, 70, "", "", "", 50, entry)
		assert.True(t, dup)
		assert.True(t, inStore)
	})

	t.Run("snapshot keys widen under the active strategy", func(t *testing.T) {
		seeds := []store.EvidenceSeed{{
			Annot: 1000, Code: 30, Reference: 70,
			EncodedProperties: "anatomy&=&brain",
		}}
		r := resolve.NewEvidence(seededAllocator(), mustStrategy(t, loadtype.Properties), seeds)

		_, inStore, dup := r.Resolve(1000, 30, 70, "", "anatomy&=&brain", "", 50, entry)
		assert.True(t, dup)
		assert.True(t, inStore)

		_, _, dup = r.Resolve(1000, 30, 70, "", "anatomy&=&liver", "", 50, entry)
		assert.False(t, dup)
	})
}

func TestPropertyEncoder(t *testing.T) {
	ctx := context.Background()

	m := store.NewMemory()
	m.TermsByVocab["Props"] = map[string]store.Term{
		"anatomy": {Key: 20},
		"stage":   {Key: 21},
	}
	profile := config.Profile{
		Name:                 "T",
		TermVocabulary:       "Props",
		EvidenceVocabulary:   "Props",
		QualifierVocabulary:  "Props",
		PropertyVocabularies: []string{"Props"},
	}
	caches := cache.New(m, profile, 1, false, zerolog.Nop())
	require.NoError(t, caches.Prime(ctx))

	t.Run("resolvable pairs become rows in order", func(t *testing.T) {
		var buf bytes.Buffer
		enc := resolve.NewPropertyEncoder(seededAllocator(), caches, report.NewWriter(&buf))

		pairs := properties.Parse("anatomy&=&brain&==&stage&=&adult")
		rows := enc.Encode(1, pairs, 2000, 50, entry)
		require.Len(t, rows, 2)
		assert.EqualValues(t, 20, rows[0].Term)
		assert.Equal(t, 1, rows[0].Stanza)
		assert.Equal(t, 1, rows[0].Sequence)
		assert.Equal(t, "brain", rows[0].Value)
		assert.EqualValues(t, 21, rows[1].Term)
		assert.Equal(t, 2, rows[1].Sequence)
		assert.Empty(t, buf.String())
	})

	t.Run("unresolvable pair is dropped and reported, siblings survive", func(t *testing.T) {
		var buf bytes.Buffer
		enc := resolve.NewPropertyEncoder(seededAllocator(), caches, report.NewWriter(&buf))

		pairs := properties.Parse("bogus&=&x&==&stage&=&adult")
		rows := enc.Encode(9, pairs, 2000, 50, entry)
		require.Len(t, rows, 1)
		assert.EqualValues(t, 21, rows[0].Term)
		assert.Contains(t, buf.String(), "Invalid Property (9): bogus")
	})

	t.Run("no pairs yields nil", func(t *testing.T) {
		var buf bytes.Buffer
		enc := resolve.NewPropertyEncoder(seededAllocator(), caches, report.NewWriter(&buf))
		assert.Nil(t, enc.Encode(1, nil, 2000, 50, entry))
	})
}

func TestNoteBuilder(t *testing.T) {
	t.Run("empty text yields no note", func(t *testing.T) {
		b := resolve.NewNoteBuilder(seededAllocator(), config.Profile{NoteVariant: config.NoteSingle})
		assert.Nil(t, b.Build(2000, "", 50, entry))
	})

	t.Run("single variant stores text whole", func(t *testing.T) {
		b := resolve.NewNoteBuilder(seededAllocator(), config.Profile{NoteVariant: config.NoteSingle})
		note := b.Build(2000, "free text", 50, entry)
		require.NotNil(t, note)
		assert.Equal(t, "free text", note.Text)
		assert.Nil(t, note.Chunks)
	})

	t.Run("chunked variant splits at the chunk size", func(t *testing.T) {
		profile := config.Profile{
			NoteVariant:   config.NoteChunked,
			NoteChunkSize: 255,
		}

		b := resolve.NewNoteBuilder(seededAllocator(), profile)
		note := b.Build(2000, strings.Repeat("a", 255), 50, entry)
		require.NotNil(t, note)
		require.Len(t, note.Chunks, 1)
		assert.Equal(t, 1, note.Chunks[0].Sequence)

		note = b.Build(2000, strings.Repeat("a", 256), 50, entry)
		require.NotNil(t, note)
		require.Len(t, note.Chunks, 2)
		assert.Len(t, note.Chunks[0].Text, 255)
		assert.Len(t, note.Chunks[1].Text, 1)
		assert.Equal(t, 2, note.Chunks[1].Sequence)
		assert.Empty(t, note.Text)
	})

	t.Run("chunk rows carry the note key", func(t *testing.T) {
		profile := config.Profile{NoteVariant: config.NoteChunked, NoteChunkSize: 4}
		b := resolve.NewNoteBuilder(seededAllocator(), profile)
		note := b.Build(2000, "abcdefgh", 50, entry)
		require.NotNil(t, note)
		for _, c := range note.Chunks {
			assert.Equal(t, note.Key, c.Note)
		}
	})
}

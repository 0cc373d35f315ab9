package parser_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotbase/annotload/internal/parser"
	"github.com/annotbase/annotload/pkg/errors"
)

func line(fields ...string) string {
	return strings.Join(fields, "\t")
}

func TestParse(t *testing.T) {
	t.Run("nine columns", func(t *testing.T) {
		rec, err := parser.Parse("in.txt", 1, line(
			"ACC:0001", "OBJ:42", "J:12345", "IDA", "ACC:9", "NOT", "jsmith", "01/15/2026", "a note"))
		require.NoError(t, err)
		assert.Equal(t, 1, rec.LineNum)
		assert.Equal(t, "ACC:0001", rec.TermID)
		assert.Equal(t, "OBJ:42", rec.ObjectID)
		assert.Equal(t, "J:12345", rec.Reference)
		assert.Equal(t, "IDA", rec.EvidenceCode)
		assert.Equal(t, "ACC:9", rec.InferredFrom)
		assert.Equal(t, "NOT", rec.Qualifier)
		assert.Equal(t, "jsmith", rec.Editor)
		assert.Equal(t, "a note", rec.Notes)
		assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), rec.EntryDate.Time)
		assert.Empty(t, rec.Namespace)
		assert.Empty(t, rec.Properties)
	})

	t.Run("optional columns ten and eleven", func(t *testing.T) {
		rec, err := parser.Parse("in.txt", 1, line(
			"ACC:0001", "OBJ:42", "J:12345", "IDA", "", "", "jsmith", "01/15/2026", "",
			"alt-namespace", "anatomy&=&brain"))
		require.NoError(t, err)
		assert.Equal(t, "alt-namespace", rec.Namespace)
		assert.Equal(t, "anatomy&=&brain", rec.Properties)
	})

	t.Run("columns beyond eleven are ignored", func(t *testing.T) {
		rec, err := parser.Parse("in.txt", 1, line(
			"ACC:0001", "OBJ:42", "J:12345", "IDA", "", "", "jsmith", "", "",
			"", "", "extra", "more"))
		require.NoError(t, err)
		assert.Empty(t, rec.Properties)
	})

	t.Run("blank entry date stays zero for downstream defaulting", func(t *testing.T) {
		rec, err := parser.Parse("in.txt", 1, line(
			"ACC:0001", "OBJ:42", "J:12345", "IDA", "", "", "jsmith", "  ", ""))
		require.NoError(t, err)
		assert.True(t, rec.EntryDate.IsZero())
	})

	t.Run("fewer than nine columns is malformed", func(t *testing.T) {
		_, err := parser.Parse("in.txt", 3, line("ACC:0001", "OBJ:42", "J:12345"))
		require.Error(t, err)
		var perr *errors.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 3, perr.Line)
	})

	t.Run("unparseable date is malformed", func(t *testing.T) {
		_, err := parser.Parse("in.txt", 4, line(
			"ACC:0001", "OBJ:42", "J:12345", "IDA", "", "", "jsmith", "2026-01-15", ""))
		require.Error(t, err)
		var perr *errors.ParseError
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("fields are trimmed", func(t *testing.T) {
		rec, err := parser.Parse("in.txt", 1, line(
			" ACC:0001 ", " OBJ:42", "J:12345 ", "IDA", "", "", " jsmith ", "", ""))
		require.NoError(t, err)
		assert.Equal(t, "ACC:0001", rec.TermID)
		assert.Equal(t, "OBJ:42", rec.ObjectID)
		assert.Equal(t, "jsmith", rec.Editor)
	})
}

// Package sqlstore implements the annotation store over database/sql. It
// carries the SQL shared by the postgres and sqlite backends; the only
// divergence between them is placeholder syntax, handled by Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
	"github.com/annotbase/annotload/pkg/properties"
)

// Dialect selects placeholder syntax for the backend.
type Dialect int

// Supported dialects.
const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// deleteBatch bounds the size of IN lists in cascade deletes.
const deleteBatch = 500

// Store implements store.Store over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle, mainly for tests and schema setup.
func (s *Store) DB() *sql.DB { return s.db }

// Close implements store.Store.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ?-placeholders to $N for postgres. Query text never
// contains a literal question mark.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

// AnnotationType implements store.Store.
func (s *Store) AnnotationType(ctx context.Context, name string) (int64, error) {
	var key int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id FROM annotation_type WHERE name = ?`), name).Scan(&key)
	if err == sql.ErrNoRows {
		return 0, errors.NewConfigError("annotation-type", "unknown annotation type: "+name, errors.ErrNotFound)
	}
	if err != nil {
		return 0, errors.WrapStore("query", err)
	}
	return key, nil
}

// Terms implements store.Store.
func (s *Store) Terms(ctx context.Context, vocabulary string, includeObsolete bool) (map[string]int64, error) {
	query := `SELECT accession, id FROM term WHERE vocabulary = ?`
	if !includeObsolete {
		query += ` AND obsolete = 0`
	}
	return s.keyMap(ctx, query, vocabulary)
}

// EvidenceCodes implements store.Store.
func (s *Store) EvidenceCodes(ctx context.Context, vocabulary string) (map[string]int64, error) {
	return s.keyMap(ctx, `SELECT abbreviation, id FROM term WHERE vocabulary = ?`, vocabulary)
}

// Qualifiers implements store.Store.
func (s *Store) Qualifiers(ctx context.Context, vocabulary string, byAbbreviation bool) (map[string]int64, error) {
	column := "label"
	if byAbbreviation {
		column = "abbreviation"
	}
	return s.keyMap(ctx, `SELECT `+column+`, id FROM term WHERE vocabulary = ?`, vocabulary)
}

// PropertyTerms implements store.Store.
func (s *Store) PropertyTerms(ctx context.Context, vocabularies []string) (map[string]int64, error) {
	if len(vocabularies) == 0 {
		return map[string]int64{}, nil
	}
	args := make([]any, len(vocabularies))
	for i, v := range vocabularies {
		args[i] = v
	}
	query := `SELECT accession, id FROM term WHERE vocabulary IN (` + placeholders(len(vocabularies)) + `)`
	return s.keyMap(ctx, query, args...)
}

// Editors implements store.Store.
func (s *Store) Editors(ctx context.Context) (map[string]int64, error) {
	return s.keyMap(ctx, `SELECT login, id FROM curator`)
}

// ResolveObject implements store.Store.
func (s *Store) ResolveObject(ctx context.Context, accID, namespace string, annotType int64) (int64, bool, error) {
	var key int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT a.object_id
		FROM accession a
		JOIN annotation_type t ON t.object_kind = a.object_kind
		WHERE a.acc_id = ? AND a.namespace = ? AND t.id = ?`),
		accID, namespace, annotType).Scan(&key)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.WrapStore("query", err)
	}
	return key, true, nil
}

// ResolveReference implements store.Store.
func (s *Store) ResolveReference(ctx context.Context, token string) (int64, bool, error) {
	var key int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id FROM citation WHERE token = ?`), token).Scan(&key)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.WrapStore("query", err)
	}
	return key, true, nil
}

// AnnotationSnapshot implements store.Store.
func (s *Store) AnnotationSnapshot(ctx context.Context, annotType int64) (map[annot.AnnotationKey]int64, error) {
	rows, err := s.query(ctx, `
		SELECT id, object_id, term_id, qualifier_id
		FROM annotation WHERE annot_type_id = ?`, annotType)
	if err != nil {
		return nil, errors.WrapStore("snapshot", err)
	}
	defer rows.Close()

	out := map[annot.AnnotationKey]int64{}
	for rows.Next() {
		var key int64
		k := annot.AnnotationKey{AnnotType: annotType}
		if err := rows.Scan(&key, &k.Object, &k.Term, &k.Qualifier); err != nil {
			return nil, errors.WrapStore("snapshot", err)
		}
		out[k] = key
	}
	return out, errors.WrapStore("snapshot", rows.Err())
}

// EvidenceSnapshot implements store.Store.
func (s *Store) EvidenceSnapshot(ctx context.Context, annotType int64) ([]store.EvidenceSeed, error) {
	rows, err := s.query(ctx, `
		SELECT e.id, e.annotation_id, e.code_id, e.citation_id, e.inferred_from
		FROM evidence e
		JOIN annotation a ON a.id = e.annotation_id
		WHERE a.annot_type_id = ?`, annotType)
	if err != nil {
		return nil, errors.WrapStore("snapshot", err)
	}
	defer rows.Close()

	byKey := map[int64]*store.EvidenceSeed{}
	var order []int64
	for rows.Next() {
		var evKey int64
		seed := &store.EvidenceSeed{}
		if err := rows.Scan(&evKey, &seed.Annot, &seed.Code, &seed.Reference, &seed.InferredFrom); err != nil {
			return nil, errors.WrapStore("snapshot", err)
		}
		byKey[evKey] = seed
		order = append(order, evKey)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("snapshot", err)
	}

	if err := s.attachProperties(ctx, annotType, byKey); err != nil {
		return nil, err
	}
	if err := s.attachNotes(ctx, annotType, byKey); err != nil {
		return nil, err
	}

	out := make([]store.EvidenceSeed, 0, len(order))
	for _, evKey := range order {
		out = append(out, *byKey[evKey])
	}
	return out, nil
}

// attachProperties folds each evidence row's property tuples into its
// canonical encoded string.
func (s *Store) attachProperties(ctx context.Context, annotType int64, byKey map[int64]*store.EvidenceSeed) error {
	rows, err := s.query(ctx, `
		SELECT p.evidence_id, t.accession, p.value, p.stanza, p.sequence
		FROM evidence_property p
		JOIN term t ON t.id = p.term_id
		JOIN evidence e ON e.id = p.evidence_id
		JOIN annotation a ON a.id = e.annotation_id
		WHERE a.annot_type_id = ?
		ORDER BY p.evidence_id, p.stanza, p.sequence`, annotType)
	if err != nil {
		return errors.WrapStore("snapshot", err)
	}
	defer rows.Close()

	pairs := map[int64][]properties.Pair{}
	for rows.Next() {
		var evKey int64
		var p properties.Pair
		if err := rows.Scan(&evKey, &p.Term, &p.Value, &p.Stanza, &p.Sequence); err != nil {
			return errors.WrapStore("snapshot", err)
		}
		pairs[evKey] = append(pairs[evKey], p)
	}
	if err := rows.Err(); err != nil {
		return errors.WrapStore("snapshot", err)
	}
	for evKey, ps := range pairs {
		if seed, ok := byKey[evKey]; ok {
			seed.EncodedProperties = properties.Encode(ps)
		}
	}
	return nil
}

// attachNotes reassembles note text, concatenating chunks in order for the
// legacy chunked variant.
func (s *Store) attachNotes(ctx context.Context, annotType int64, byKey map[int64]*store.EvidenceSeed) error {
	rows, err := s.query(ctx, `
		SELECT n.evidence_id, n.text, COALESCE(c.text, ''), COALESCE(c.sequence, 0)
		FROM note n
		LEFT JOIN note_chunk c ON c.note_id = n.id
		JOIN evidence e ON e.id = n.evidence_id
		JOIN annotation a ON a.id = e.annotation_id
		WHERE a.annot_type_id = ?
		ORDER BY n.evidence_id, c.sequence`, annotType)
	if err != nil {
		return errors.WrapStore("snapshot", err)
	}
	defer rows.Close()

	seen := map[int64]bool{}
	for rows.Next() {
		var evKey, seq int64
		var text, chunk string
		if err := rows.Scan(&evKey, &text, &chunk, &seq); err != nil {
			return errors.WrapStore("snapshot", err)
		}
		seed, ok := byKey[evKey]
		if !ok {
			continue
		}
		if !seen[evKey] {
			seed.Notes = text
			seen[evKey] = true
		}
		seed.Notes += chunk
	}
	return errors.WrapStore("snapshot", rows.Err())
}

// HighWaterMarks implements store.Store. The sequence_state table is
// authoritative; tables without a recorded sequence fall back to max(id)+1
// with the seed floor.
func (s *Store) HighWaterMarks(ctx context.Context) (store.Marks, error) {
	marks := store.Marks{}
	for _, e := range []struct {
		entity string
		table  string
		dest   *int64
	}{
		{"annotation", "annotation", &marks.Annotation},
		{"evidence", "evidence", &marks.Evidence},
		{"property", "evidence_property", &marks.Property},
		{"note", "note", &marks.Note},
	} {
		next, err := s.nextKey(ctx, e.entity, e.table)
		if err != nil {
			return store.Marks{}, err
		}
		*e.dest = next
	}
	return marks, nil
}

func (s *Store) nextKey(ctx context.Context, entity, table string) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT next_key FROM sequence_state WHERE entity = ?`), entity).Scan(&next)
	if err == nil {
		return next, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.WrapStore("sequence", err)
	}

	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM `+table).Scan(&max); err != nil {
		return 0, errors.WrapStore("sequence", err)
	}
	if !max.Valid || max.Int64+1 < store.SeedFloor {
		return store.SeedFloor, nil
	}
	return max.Int64 + 1, nil
}

// ScopedEvidence implements store.Store.
func (s *Store) ScopedEvidence(ctx context.Context, annotType int64, scope store.Scope) ([]store.EvidenceRef, error) {
	query := `
		SELECT e.id, e.annotation_id
		FROM evidence e
		JOIN annotation a ON a.id = e.annotation_id
		WHERE a.annot_type_id = ?`
	args := []any{annotType}
	switch {
	case scope.Reference != 0:
		query += ` AND e.citation_id = ?`
		args = append(args, scope.Reference)
	case scope.CuratorPrefix != "":
		query += ` AND e.created_by IN (SELECT id FROM curator WHERE login LIKE ?)`
		args = append(args, scope.CuratorPrefix+"%")
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("query", err)
	}
	defer rows.Close()

	var out []store.EvidenceRef
	for rows.Next() {
		var ref store.EvidenceRef
		if err := rows.Scan(&ref.Evidence, &ref.Annot); err != nil {
			return nil, errors.WrapStore("query", err)
		}
		out = append(out, ref)
	}
	return out, errors.WrapStore("query", rows.Err())
}

// PropertyKeys implements store.Store.
func (s *Store) PropertyKeys(ctx context.Context, evidence []int64) ([]int64, error) {
	return s.childKeys(ctx, `SELECT id FROM evidence_property WHERE evidence_id IN (%s)`, evidence)
}

// NoteKeys implements store.Store.
func (s *Store) NoteKeys(ctx context.Context, evidence []int64) ([]int64, error) {
	return s.childKeys(ctx, `SELECT id FROM note WHERE evidence_id IN (%s)`, evidence)
}

func (s *Store) childKeys(ctx context.Context, format string, evidence []int64) ([]int64, error) {
	var out []int64
	for _, batch := range batches(evidence) {
		query := fmt.Sprintf(format, placeholders(len(batch)))
		rows, err := s.query(ctx, query, int64Args(batch)...)
		if err != nil {
			return nil, errors.WrapStore("query", err)
		}
		for rows.Next() {
			var key int64
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return nil, errors.WrapStore("query", err)
			}
			out = append(out, key)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.WrapStore("query", err)
		}
		rows.Close()
	}
	return out, nil
}

// OrphanAnnotations implements store.Store. Annotations with surviving
// evidence from other scopes are preserved.
func (s *Store) OrphanAnnotations(ctx context.Context, annotType int64, evidence []int64) ([]int64, error) {
	deleted := map[int64]bool{}
	for _, ev := range evidence {
		deleted[ev] = true
	}

	rows, err := s.query(ctx, `
		SELECT e.id, e.annotation_id
		FROM evidence e
		JOIN annotation a ON a.id = e.annotation_id
		WHERE a.annot_type_id = ?`, annotType)
	if err != nil {
		return nil, errors.WrapStore("query", err)
	}
	defer rows.Close()

	surviving := map[int64]bool{}
	members := map[int64]bool{}
	for rows.Next() {
		var evKey, annKey int64
		if err := rows.Scan(&evKey, &annKey); err != nil {
			return nil, errors.WrapStore("query", err)
		}
		members[annKey] = true
		if !deleted[evKey] {
			surviving[annKey] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("query", err)
	}

	var out []int64
	for ann := range members {
		if !surviving[ann] {
			out = append(out, ann)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// CuratorExists implements store.Store.
func (s *Store) CuratorExists(ctx context.Context, prefix string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM curator WHERE login LIKE ?`), prefix+"%").Scan(&n)
	if err != nil {
		return false, errors.WrapStore("query", err)
	}
	return n > 0, nil
}

// ApplyDeletion implements store.Store: child rows first, then evidence,
// then orphan annotations, inside one transaction.
func (s *Store) ApplyDeletion(ctx context.Context, plan *store.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("delete", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	steps := []struct {
		query string
		keys  []int64
	}{
		{`DELETE FROM evidence_property WHERE id IN (%s)`, plan.Properties},
		{`DELETE FROM note_chunk WHERE note_id IN (%s)`, plan.Notes},
		{`DELETE FROM note WHERE id IN (%s)`, plan.Notes},
		{`DELETE FROM evidence WHERE id IN (%s)`, plan.Evidence},
		{`DELETE FROM annotation WHERE id IN (%s)`, plan.Annotations},
	}
	for _, step := range steps {
		for _, batch := range batches(step.keys) {
			query := fmt.Sprintf(step.query, placeholders(len(batch)))
			if _, err := tx.ExecContext(ctx, s.rebind(query), int64Args(batch)...); err != nil {
				return errors.WrapStore("delete", err)
			}
		}
	}

	if plan.CrossReference != 0 {
		if _, err := tx.ExecContext(ctx,
			s.rebind(`DELETE FROM cross_reference_usage WHERE citation_id = ?`),
			plan.CrossReference); err != nil {
			return errors.WrapStore("delete", err)
		}
	}

	return errors.WrapStore("delete", tx.Commit())
}

// AdvanceSequences implements store.Store.
func (s *Store) AdvanceSequences(ctx context.Context, used store.Marks) error {
	for _, e := range []struct {
		entity string
		next   int64
	}{
		{"annotation", used.Annotation},
		{"evidence", used.Evidence},
		{"property", used.Property},
		{"note", used.Note},
	} {
		_, err := s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO sequence_state (entity, next_key) VALUES (?, ?)
			ON CONFLICT (entity) DO UPDATE SET next_key = excluded.next_key`),
			e.entity, e.next)
		if err != nil {
			return errors.WrapStore("sequence", err)
		}
	}
	return nil
}

// keyMap runs a two-column (text, key) query into a map.
func (s *Store) keyMap(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("query", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var name string
		var key int64
		if err := rows.Scan(&name, &key); err != nil {
			return nil, errors.WrapStore("query", err)
		}
		out[name] = key
	}
	return out, errors.WrapStore("query", rows.Err())
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(keys []int64) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

func batches(keys []int64) [][]int64 {
	var out [][]int64
	for len(keys) > deleteBatch {
		out = append(out, keys[:deleteBatch])
		keys = keys[deleteBatch:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}

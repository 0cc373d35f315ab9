// Package cache holds the read-only lookup snapshots a load run validates
// against: terms, evidence codes, qualifiers, property terms and editors
// are primed eagerly at load start; objects and references are resolved
// read-through so repeated identifiers cost one store round trip.
package cache

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/internal/store"
)

// objectKey addresses the object cache by namespace and accession so a
// mid-run namespace switch can never serve a stale key.
type objectKey struct {
	namespace string
	accID     string
}

// Caches is the validation surface for one load run.
type Caches struct {
	store     store.Store
	log       zerolog.Logger
	profile   config.Profile
	annotType int64

	includeObsolete bool
	namespace       string

	terms     map[string]int64
	codes     map[string]int64
	quals     map[string]int64
	propTerms map[string]int64
	editors   map[string]int64

	objects    map[objectKey]int64
	references map[string]int64
}

// New creates unprimed caches for the annotation type.
func New(st store.Store, profile config.Profile, annotType int64, includeObsolete bool, log zerolog.Logger) *Caches {
	return &Caches{
		store:           st,
		log:             log,
		profile:         profile,
		annotType:       annotType,
		includeObsolete: includeObsolete,
		namespace:       profile.DefaultNamespace,
		objects:         map[objectKey]int64{},
		references:      map[string]int64{},
	}
}

// Prime materializes the eager caches. The object cache stays lazy: the
// first input line may switch the active identifier namespace, so objects
// resolve read-through instead.
func (c *Caches) Prime(ctx context.Context) error {
	var err error
	if c.terms, err = c.store.Terms(ctx, c.profile.TermVocabulary, c.includeObsolete); err != nil {
		return err
	}
	if c.codes, err = c.store.EvidenceCodes(ctx, c.profile.EvidenceVocabulary); err != nil {
		return err
	}
	if c.quals, err = c.store.Qualifiers(ctx, c.profile.QualifierVocabulary, c.profile.QualifierByAbbreviation); err != nil {
		return err
	}
	if c.propTerms, err = c.store.PropertyTerms(ctx, c.profile.PropertyVocabularies); err != nil {
		return err
	}
	if len(c.profile.PropertyVocabularies) == 0 {
		// Explicit fallback: with no property vocabulary configured the
		// cache admits zero terms and every property pair logs as invalid.
		c.log.Warn().
			Str("profile", c.profile.Name).
			Msg("no property vocabularies configured; all properties will be rejected")
	}
	if c.profile.RequireEditorDirectory {
		if c.editors, err = c.store.Editors(ctx); err != nil {
			return err
		}
	}

	c.log.Debug().
		Int("terms", len(c.terms)).
		Int("evidence_codes", len(c.codes)).
		Int("qualifiers", len(c.quals)).
		Int("property_terms", len(c.propTerms)).
		Msg("lookup caches primed")
	return nil
}

// IncludeObsolete reports the obsolete-terms toggle, which decides whether
// a term miss reads "invalid" or "invalid or obsolete".
func (c *Caches) IncludeObsolete() bool { return c.includeObsolete }

// HasEditorDirectory reports whether editors validate against the store
// directory or only against the non-empty check.
func (c *Caches) HasEditorDirectory() bool { return c.profile.RequireEditorDirectory }

// Namespace returns the active object-identifier namespace.
func (c *Caches) Namespace() string { return c.namespace }

// SetNamespace widens the active namespace for all subsequent lines.
// Later lines never revert it.
func (c *Caches) SetNamespace(ns string) {
	if ns != "" && ns != c.namespace {
		c.log.Debug().Str("namespace", ns).Msg("object namespace switched")
		c.namespace = ns
	}
}

// Term resolves a term accession.
func (c *Caches) Term(acc string) (int64, bool) {
	key, ok := c.terms[acc]
	return key, ok
}

// EvidenceCode resolves an evidence-code abbreviation.
func (c *Caches) EvidenceCode(code string) (int64, bool) {
	key, ok := c.codes[code]
	return key, ok
}

// Qualifier resolves a qualifier token in the profile's addressing mode.
// A blank qualifier addresses the vocabulary's empty entry.
func (c *Caches) Qualifier(q string) (int64, bool) {
	key, ok := c.quals[q]
	return key, ok
}

// PropertyTerm resolves a property term.
func (c *Caches) PropertyTerm(term string) (int64, bool) {
	key, ok := c.propTerms[term]
	return key, ok
}

// Editor resolves an editor login against the curator directory.
func (c *Caches) Editor(login string) (int64, bool) {
	key, ok := c.editors[login]
	return key, ok
}

// Object resolves an object identifier in the active namespace,
// read-through against the store. Confirmed identifiers are cached for the
// rest of the run.
func (c *Caches) Object(ctx context.Context, accID string) (int64, bool, error) {
	k := objectKey{namespace: c.namespace, accID: accID}
	if key, ok := c.objects[k]; ok {
		return key, true, nil
	}
	key, ok, err := c.store.ResolveObject(ctx, accID, c.namespace, c.annotType)
	if err != nil || !ok {
		return 0, false, err
	}
	c.objects[k] = key
	return key, true, nil
}

// Reference resolves a reference token, read-through against the store.
func (c *Caches) Reference(ctx context.Context, token string) (int64, bool, error) {
	if key, ok := c.references[token]; ok {
		return key, true, nil
	}
	key, ok, err := c.store.ResolveReference(ctx, token)
	if err != nil || !ok {
		return 0, false, err
	}
	c.references[token] = key
	return key, true, nil
}

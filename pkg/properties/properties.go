// Package properties implements the three-level delimiter grammar used for
// the optional property blob in field 11 of the input format:
//
//	pair  := term "&=&" value
//	stanza := pair ("&==&" pair)*
//	blob  := stanza ("&===&" stanza)*
//
// Parsing yields ordered (stanza, sequence, term, value) tuples with
// 1-indexed stanza and sequence numbers. Term resolution against the
// property vocabulary happens downstream; this package is pure syntax.
package properties

import "strings"

// Grammar delimiters, longest first so a stanza separator is never read as
// a group separator plus a stray "=".
const (
	StanzaSep = "&===&"
	GroupSep  = "&==&"
	PairSep   = "&=&"
)

// Pair is one term/value pair positioned within the blob. Stanza and
// Sequence are both 1-indexed.
type Pair struct {
	Stanza   int
	Sequence int
	Term     string
	Value    string
}

// Parse expands a property blob into ordered pairs. An empty blob yields
// nil and is not an error. A pair missing the "&=&" separator is returned
// with the whole text as Term and an empty Value; the term then fails
// vocabulary resolution downstream and is reported there.
func Parse(blob string) []Pair {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil
	}

	var pairs []Pair
	for si, stanza := range strings.Split(blob, StanzaSep) {
		for pi, pair := range strings.Split(stanza, GroupSep) {
			term, value, found := strings.Cut(pair, PairSep)
			if !found {
				value = ""
			}
			pairs = append(pairs, Pair{
				Stanza:   si + 1,
				Sequence: pi + 1,
				Term:     strings.TrimSpace(term),
				Value:    strings.TrimSpace(value),
			})
		}
	}
	return pairs
}

// Encode renders pairs back into blob syntax. Pairs must be ordered the
// way Parse produces them; stanza boundaries are recovered from the Stanza
// numbers. Encode(Parse(blob)) is the canonical form of blob and is the
// string the widened evidence dedup keys use, so two blobs differing only
// in surrounding whitespace compare equal.
func Encode(pairs []Pair) string {
	if len(pairs) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			if p.Stanza != pairs[i-1].Stanza {
				b.WriteString(StanzaSep)
			} else {
				b.WriteString(GroupSep)
			}
		}
		b.WriteString(p.Term)
		b.WriteString(PairSep)
		b.WriteString(p.Value)
	}
	return b.String()
}

// Canonical is shorthand for Encode(Parse(blob)).
func Canonical(blob string) string {
	return Encode(Parse(blob))
}

// Package loadtype enumerates the load-type strategies that govern how an
// evidence dedup key is widened beyond the default (annotation, code,
// reference) tuple. Several load domains legitimately carry multiple
// evidence statements that share code and reference and differ only in
// structured property payload or inferred-from text, so the widening is a
// per-domain policy selected by the annotation-type profile, not a global
// toggle. The set of strategies is closed: profiles naming an unknown
// strategy fail configuration.
package loadtype

import (
	"fmt"
	"sort"
)

// Strategy computes the load-type specific portion of an evidence dedup
// key. DedupExtra receives the canonical encoded-properties string, the raw
// inferred-from text and the raw notes text of a record and returns the
// extra key material; an empty return means the default narrow key.
type Strategy interface {
	Name() string
	DedupExtra(encodedProperties, inferredFrom, notes string) string
}

// Strategy names accepted in annotation-type profiles.
const (
	Default            = "default"
	Properties         = "properties"
	InferredFrom       = "inferred-from"
	PropertiesInferred = "properties-inferred"
	Notes              = "notes"
)

type defaultStrategy struct{}

func (defaultStrategy) Name() string                    { return Default }
func (defaultStrategy) DedupExtra(_, _, _ string) string { return "" }

type propertiesStrategy struct{}

func (propertiesStrategy) Name() string { return Properties }
func (propertiesStrategy) DedupExtra(props, _, _ string) string {
	return props
}

type inferredFromStrategy struct{}

func (inferredFromStrategy) Name() string { return InferredFrom }
func (inferredFromStrategy) DedupExtra(_, inferredFrom, _ string) string {
	return inferredFrom
}

type propertiesInferredStrategy struct{}

func (propertiesInferredStrategy) Name() string { return PropertiesInferred }
func (propertiesInferredStrategy) DedupExtra(props, inferredFrom, _ string) string {
	// Both components participate; a length prefix would be overkill since
	// the pair is compared only for equality against keys built the same way.
	return props + "\x1f" + inferredFrom
}

type notesStrategy struct{}

func (notesStrategy) Name() string { return Notes }
func (notesStrategy) DedupExtra(_, _, notes string) string {
	return notes
}

var strategies = map[string]Strategy{
	Default:            defaultStrategy{},
	Properties:         propertiesStrategy{},
	InferredFrom:       inferredFromStrategy{},
	PropertiesInferred: propertiesInferredStrategy{},
	Notes:              notesStrategy{},
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	if name == "" {
		return strategies[Default], nil
	}
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown load-type strategy: %q (known: %v)", name, Names())
	}
	return s, nil
}

// Names lists the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package deletion computes and applies the cascading delete set for
// new/delete mode runs. The plan is an explicit value object computed
// entirely before anything is removed: child property and note rows first,
// then evidence, then annotations left with zero surviving evidence.
// Annotations with surviving evidence from other scopes are preserved.
package deletion

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
)

// Planner computes deletion plans for one annotation type.
type Planner struct {
	store         store.Store
	log           zerolog.Logger
	annotType     int64
	crossRefUsage bool
}

// NewPlanner creates a planner. crossRefUsage enables removal of the
// cross-reference-usage marker on reference-scoped deletion.
func NewPlanner(st store.Store, annotType int64, crossRefUsage bool, log zerolog.Logger) *Planner {
	return &Planner{store: st, log: log, annotType: annotType, crossRefUsage: crossRefUsage}
}

// ResolveScope validates the scoping selectors and builds the deletion
// scope. Reference scoping takes precedence over curator scoping; the
// sentinel tokens mean "no scoping" on their axis. An invalid reference or
// curator token is fatal before any deletion is attempted.
func (p *Planner) ResolveScope(ctx context.Context, referenceToken, curatorToken string) (store.Scope, error) {
	if referenceToken != "" && referenceToken != annot.NoReference {
		key, ok, err := p.store.ResolveReference(ctx, referenceToken)
		if err != nil {
			return store.Scope{}, err
		}
		if !ok {
			return store.Scope{}, errors.NewScopeError("reference", referenceToken)
		}
		return store.Scope{Reference: key}, nil
	}

	if curatorToken != "" && curatorToken != annot.NoCurator {
		ok, err := p.store.CuratorExists(ctx, curatorToken)
		if err != nil {
			return store.Scope{}, err
		}
		if !ok {
			return store.Scope{}, errors.NewScopeError("curator", curatorToken)
		}
		return store.Scope{CuratorPrefix: curatorToken}, nil
	}

	return store.Scope{}, nil
}

// Compute builds the full deletion plan for the scope without removing
// anything.
func (p *Planner) Compute(ctx context.Context, scope store.Scope) (*store.Plan, error) {
	refs, err := p.store.ScopedEvidence(ctx, p.annotType, scope)
	if err != nil {
		return nil, err
	}

	plan := &store.Plan{AnnotType: p.annotType, Scope: scope}
	if len(refs) == 0 {
		return plan, nil
	}

	evidence := make([]int64, 0, len(refs))
	for _, ref := range refs {
		evidence = append(evidence, ref.Evidence)
	}
	plan.Evidence = evidence

	if plan.Properties, err = p.store.PropertyKeys(ctx, evidence); err != nil {
		return nil, err
	}
	if plan.Notes, err = p.store.NoteKeys(ctx, evidence); err != nil {
		return nil, err
	}
	if plan.Annotations, err = p.store.OrphanAnnotations(ctx, p.annotType, evidence); err != nil {
		return nil, err
	}
	if p.crossRefUsage && scope.Reference != 0 {
		plan.CrossReference = scope.Reference
	}

	p.log.Info().
		Int("evidence", len(plan.Evidence)).
		Int("properties", len(plan.Properties)).
		Int("notes", len(plan.Notes)).
		Int("orphan_annotations", len(plan.Annotations)).
		Bool("unscoped", scope.Unscoped()).
		Msg("deletion plan computed")
	return plan, nil
}

// Apply removes the planned rows. Callers gate this behind the preview
// flag; in preview mode the plan is computed but never applied.
func (p *Planner) Apply(ctx context.Context, plan *store.Plan) error {
	if plan.Empty() {
		return nil
	}
	return p.store.ApplyDeletion(ctx, plan)
}

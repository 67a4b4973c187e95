// Package subscription reconciles a user's desired notice categories
// against the persisted subscription rows and the remote topic registry.
// Remote calls can partially fail, so every applied step is recorded in a
// ledger published before the first mutation; a compensating listener can
// then undo exactly the completed prefix.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
)

// Store is the persisted-subscription access the reconciler needs.
type Store interface {
	CategoriesByToken(ctx context.Context, token string) ([]string, error)
	SaveSubscription(ctx context.Context, token, category string) error
	DeleteSubscription(ctx context.Context, token, category string) error
}

// Registry is the remote per-topic registration API.
type Registry interface {
	Subscribe(ctx context.Context, token, category string) error
	Unsubscribe(ctx context.Context, token, category string) error
}

// StepKind says which direction one applied step went.
type StepKind string

const (
	StepAdd    StepKind = "add"
	StepRemove StepKind = "remove"
)

// Step is one completed remote-plus-persisted mutation.
type Step struct {
	Kind     StepKind
	Category string
}

// Plan is the minimal delta between desired and persisted categories.
// Both slices are sorted so application order is deterministic.
type Plan struct {
	Token    string
	ToAdd    []string
	ToRemove []string
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Ledger is the rollback record for one apply: the plan plus the steps
// completed so far, in completion order. It is published before the first
// step runs, so a compensating listener holding it sees exactly how far a
// failed apply got.
type Ledger struct {
	Token     string
	Plan      Plan
	Completed []Step
}

// Reconciler computes and applies subscription deltas.
type Reconciler struct {
	store    Store
	registry Registry
	logger   *slog.Logger
	publish  func(*Ledger) // rollback channel; may be nil
	known    map[string]kuring.Category

	mu         sync.Mutex
	tokenLocks map[string]*sync.Mutex
}

// New creates a reconciler. categories is the reference set loaded at
// startup; publish, when non-nil, receives each apply's ledger before any
// step runs.
func New(store Store, registry Registry, categories []kuring.Category, publish func(*Ledger), logger *slog.Logger) *Reconciler {
	known := make(map[string]kuring.Category, len(categories))
	for _, c := range categories {
		known[c.Name] = c
	}
	return &Reconciler{
		store:      store,
		registry:   registry,
		logger:     logger,
		publish:    publish,
		known:      known,
		tokenLocks: make(map[string]*sync.Mutex),
	}
}

// Reconcile validates and de-duplicates the desired category set and diffs
// it against the persisted rows. Any unrecognized name rejects the whole
// request; nothing is partially applied.
func (r *Reconciler) Reconcile(ctx context.Context, token string, desired []string) (Plan, error) {
	for _, name := range desired {
		if _, ok := r.known[name]; !ok {
			return Plan{}, apperror.New(apperror.ErrUnknownCategory, name)
		}
	}

	desiredSet := make(map[string]bool, len(desired))
	for _, name := range desired {
		desiredSet[name] = true
	}

	persisted, err := r.store.CategoriesByToken(ctx, token)
	if err != nil {
		return Plan{}, fmt.Errorf("load persisted categories: %w", err)
	}
	persistedSet := make(map[string]bool, len(persisted))
	for _, name := range persisted {
		persistedSet[name] = true
	}

	plan := Plan{Token: token}
	for name := range desiredSet {
		if !persistedSet[name] {
			plan.ToAdd = append(plan.ToAdd, name)
		}
	}
	for name := range persistedSet {
		if !desiredSet[name] {
			plan.ToRemove = append(plan.ToRemove, name)
		}
	}
	sort.Strings(plan.ToAdd)
	sort.Strings(plan.ToRemove)

	r.logger.Info("Reconciliation plan computed",
		"to_add", len(plan.ToAdd),
		"to_remove", len(plan.ToRemove))

	return plan, nil
}

// Apply executes a plan: adds before removes, each in sorted order, remote
// call before the matching store write. On a mid-plan failure the applied
// prefix stays applied; the error and the returned ledger describe exactly
// what completed. Apply never reverses completed steps itself.
func (r *Reconciler) Apply(ctx context.Context, plan Plan) (*Ledger, error) {
	ledger := &Ledger{Token: plan.Token, Plan: plan}
	if r.publish != nil {
		r.publish(ledger)
	}

	for _, name := range plan.ToAdd {
		if err := r.registry.Subscribe(ctx, plan.Token, name); err != nil {
			return ledger, apperror.Wrap(apperror.ErrReconciliation,
				fmt.Errorf("subscribe %s after %d completed steps: %w", name, len(ledger.Completed), err))
		}
		if err := r.store.SaveSubscription(ctx, plan.Token, name); err != nil {
			return ledger, apperror.Wrap(apperror.ErrReconciliation,
				fmt.Errorf("persist subscription %s: %w", name, err))
		}
		ledger.Completed = append(ledger.Completed, Step{Kind: StepAdd, Category: name})
		r.logger.Info("Subscription added", "category", name)
	}

	for _, name := range plan.ToRemove {
		if err := r.registry.Unsubscribe(ctx, plan.Token, name); err != nil {
			return ledger, apperror.Wrap(apperror.ErrReconciliation,
				fmt.Errorf("unsubscribe %s after %d completed steps: %w", name, len(ledger.Completed), err))
		}
		if err := r.store.DeleteSubscription(ctx, plan.Token, name); err != nil {
			return ledger, apperror.Wrap(apperror.ErrReconciliation,
				fmt.Errorf("delete subscription %s: %w", name, err))
		}
		ledger.Completed = append(ledger.Completed, Step{Kind: StepRemove, Category: name})
		r.logger.Info("Subscription removed", "category", name)
	}

	return ledger, nil
}

// Update runs the full reconcile-then-apply flow, serialized per token so
// concurrent requests for one device cannot race on the persisted rows.
func (r *Reconciler) Update(ctx context.Context, token string, desired []string) (*Ledger, error) {
	lock := r.lockFor(token)
	lock.Lock()
	defer lock.Unlock()

	plan, err := r.Reconcile(ctx, token, desired)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		r.logger.Info("Nothing to reconcile")
		return &Ledger{Token: token, Plan: plan}, nil
	}
	return r.Apply(ctx, plan)
}

// lockFor hands out one mutex per token. Entries are never released: the
// map is bounded by the number of distinct device tokens seen since
// startup, a few bytes each, and releasing safely would need refcounting
// under r.mu for no measurable win at that bound.
func (r *Reconciler) lockFor(token string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.tokenLocks[token]
	if !ok {
		lock = &sync.Mutex{}
		r.tokenLocks[token] = lock
	}
	return lock
}

package pricing

import (
	"fmt"
	"sync"

	"github.com/caterdispatch/tally/internal/domain"
)

// TemplateSnapshot is an immutable, evaluation-ready view of one template:
// rules pre-split by side and pre-ordered, gates pre-validated. Calculations
// in flight keep the snapshot they started with; a reload never hands a
// reader a mix of old amounts and new ordering.
type TemplateSnapshot struct {
	Template      *domain.PricingTemplate
	CustomerRules []domain.PricingRule
	DriverRules   []domain.PricingRule
}

// SnapshotStore holds the loaded template snapshots behind an atomic swap.
// This enables hot-reloading of templates without server restart.
type SnapshotStore struct {
	mu         sync.RWMutex
	snapshots  map[string]*TemplateSnapshot
	conditions *Conditions
}

// NewSnapshotStore creates an empty snapshot store. conditions may be nil;
// when set, rule gates are compiled eagerly so a bad expression surfaces at
// load time instead of mid-calculation.
func NewSnapshotStore(conditions *Conditions) *SnapshotStore {
	return &SnapshotStore{
		snapshots:  make(map[string]*TemplateSnapshot),
		conditions: conditions,
	}
}

// Load validates a template and installs its snapshot.
func (s *SnapshotStore) Load(tpl *domain.PricingTemplate) error {
	_, err := s.install(tpl)
	return err
}

// install validates, installs and returns the snapshot. Callers on the
// calculation path use the returned snapshot directly; re-reading the map
// after installing would race a concurrent Remove or ReloadAll.
func (s *SnapshotStore) install(tpl *domain.PricingTemplate) (*TemplateSnapshot, error) {
	snap, err := s.build(tpl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshots[tpl.ID] = snap
	s.mu.Unlock()
	return snap, nil
}

// ReloadAll replaces every loaded snapshot in one swap. Readers observe
// either the fully-old or fully-new set, never a mix.
func (s *SnapshotStore) ReloadAll(templates []*domain.PricingTemplate) error {
	next := make(map[string]*TemplateSnapshot, len(templates))
	for _, tpl := range templates {
		if !tpl.Active {
			continue
		}
		snap, err := s.build(tpl)
		if err != nil {
			return err
		}
		next[tpl.ID] = snap
	}

	s.mu.Lock()
	s.snapshots = next
	s.mu.Unlock()
	return nil
}

// Get returns the snapshot for a template ID, or nil when not loaded.
func (s *SnapshotStore) Get(id string) *TemplateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[id]
}

// Remove drops a snapshot, e.g. after a template is deactivated.
func (s *SnapshotStore) Remove(id string) {
	s.mu.Lock()
	delete(s.snapshots, id)
	s.mu.Unlock()
}

// Count returns the number of loaded snapshots.
func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Templates returns the currently loaded template configurations.
func (s *SnapshotStore) Templates() []*domain.PricingTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PricingTemplate, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap.Template)
	}
	return out
}

func (s *SnapshotStore) build(tpl *domain.PricingTemplate) (*TemplateSnapshot, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if s.conditions != nil {
		for _, r := range tpl.Rules {
			if r.Condition == "" {
				continue
			}
			if err := s.conditions.Validate(r.Condition); err != nil {
				return nil, fmt.Errorf("template %s rule %s: %w", tpl.ID, r.ID, err)
			}
		}
	}

	return &TemplateSnapshot{
		Template:      tpl,
		CustomerRules: orderRules(tpl.RulesForSide(domain.RuleTypeCustomerCharge)),
		DriverRules:   orderRules(tpl.RulesForSide(domain.RuleTypeDriverPayment)),
	}, nil
}

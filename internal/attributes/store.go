// Package attributes holds per-parcel user data keyed by polygon_uuid.
//
// The store keeps two scopes: the persisted scope mirrors the user's saved
// attributes and the imported scope carries a transient CSV import. Reads merge
// the two; writes target one scope only.
package attributes

import (
	"maps"
	"slices"
	"sync"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
)

// Store is safe for concurrent use.
type Store struct {
	persisted map[string]model.Attributes
	imported  map[string]model.Attributes
	mu        sync.RWMutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		persisted: make(map[string]model.Attributes),
		imported:  make(map[string]model.Attributes),
	}
}

// Reconcile replaces the persisted scope with snapshot. The imported scope is
// not touched.
func (s *Store) Reconcile(snapshot []model.AttributeRecord) {
	fresh := make(map[string]model.Attributes, len(snapshot))
	for _, r := range snapshot {
		if r.ID == "" {
			continue
		}
		fresh[r.ID] = cloneAttributes(r.Attributes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = fresh
}

// ReconcileImport replaces the imported scope with records.
func (s *Store) ReconcileImport(records []model.AttributeRecord) {
	fresh := make(map[string]model.Attributes, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		fresh[r.ID] = cloneAttributes(r.Attributes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported = fresh
}

// ClearImport drops the imported scope.
func (s *Store) ClearImport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported = make(map[string]model.Attributes)
}

// Upsert merges patch into the persisted entry for id, creating it if needed.
func (s *Store) Upsert(id string, patch model.AttributePatch) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted[id] = patch.Apply(s.persisted[id])
}

// BulkUpsert applies the variety and transplant date of patch to every id.
// It returns common.ErrNothingToApply and changes nothing when neither is set.
func (s *Store) BulkUpsert(ids []string, patch model.AttributePatch) error {
	bulk := model.BulkPatch(deref(patch.Variety), deref(patch.TransplantDate))
	if bulk.IsEmpty() {
		return common.ErrNothingToApply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.persisted[id] = bulk.Apply(s.persisted[id])
	}
	return nil
}

// Remove deletes the persisted entry for id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.persisted, id)
}

// BulkRemove deletes the persisted entries for ids.
func (s *Store) BulkRemove(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.persisted, id)
	}
}

// Get returns the merged attributes for id. ok is false when neither scope
// has an entry.
func (s *Store) Get(id string) (model.Attributes, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merged(id)
}

// Field returns one named field of the merged entry, or "" if absent.
func (s *Store) Field(id, name string) string {
	a, _ := s.Get(id)
	return a.Field(name)
}

// Persisted returns the persisted entry for id without the import overlay.
func (s *Store) Persisted(id string) (model.Attributes, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.persisted[id]
	return cloneAttributes(a), ok
}

// IDs returns every id present in either scope, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.persisted)+len(s.imported))
	for id := range s.persisted {
		seen[id] = struct{}{}
	}
	for id := range s.imported {
		seen[id] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Len returns the number of distinct ids across both scopes.
func (s *Store) Len() int {
	return len(s.IDs())
}

func (s *Store) merged(id string) (model.Attributes, bool) {
	base, inPersisted := s.persisted[id]
	over, inImported := s.imported[id]
	if !inPersisted && !inImported {
		return model.Attributes{}, false
	}

	out := cloneAttributes(base)
	if !inImported {
		return out, true
	}
	if over.Name != "" {
		out.Name = over.Name
	}
	if over.Variety != "" {
		out.Variety = over.Variety
	}
	if over.TransplantDate != "" {
		out.TransplantDate = over.TransplantDate
	}
	for k, v := range over.Custom {
		if v == "" {
			continue
		}
		if out.Custom == nil {
			out.Custom = make(map[string]string, len(over.Custom))
		}
		out.Custom[k] = v
	}
	return out, true
}

func cloneAttributes(a model.Attributes) model.Attributes {
	if a.Custom != nil {
		a.Custom = maps.Clone(a.Custom)
	}
	return a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

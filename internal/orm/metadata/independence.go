package metadata

import "sync"

// AnySubtype registers every subtype of a type
const AnySubtype = "*"

// Independence records which entity type/subtype combinations keep their
// metadata access ids independent of the parent entity. It is populated at
// configuration time and injected into the Store.
type Independence struct {
	mu      sync.RWMutex
	entries map[string]map[string]bool
}

// NewIndependence creates an empty registry
func NewIndependence() *Independence {
	return &Independence{
		entries: make(map[string]map[string]bool),
	}
}

// Register marks type/subtype as independent. Use AnySubtype (or "") for
// every subtype of the type.
func (r *Independence) Register(entityType, subtype string) {
	if subtype == "" {
		subtype = AnySubtype
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	subtypes, ok := r.entries[entityType]
	if !ok {
		subtypes = make(map[string]bool)
		r.entries[entityType] = subtypes
	}
	subtypes[subtype] = true
}

// IsIndependent reports whether type/subtype, or the type's wildcard, is registered
func (r *Independence) IsIndependent(entityType, subtype string) bool {
	if r == nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	subtypes := r.entries[entityType]
	if len(subtypes) == 0 {
		return false
	}
	return subtypes[subtype] || subtypes[AnySubtype]
}

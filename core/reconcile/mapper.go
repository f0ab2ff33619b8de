package reconcile

// Mapper holds the run-scoped mapping from foreign-system keys to backend
// primary keys. Entries are written once (first writer wins) and read many times.
// A Mapper is owned by a single Run and is not safe for concurrent use.
type Mapper struct {
	entries map[Kind]map[string]uint
}

// NewMapper returns an empty mapper.
func NewMapper() *Mapper {
	return &Mapper{entries: make(map[Kind]map[string]uint)}
}

// Get returns the backend id mapped to key for kind.
func (m *Mapper) Get(kind Kind, key string) (uint, bool) {
	if key == "" {
		return 0, false
	}
	id, ok := m.entries[kind][key]
	return id, ok
}

// Put maps key to id for kind. It returns false, leaving the existing entry
// in place, when key is already mapped or empty.
func (m *Mapper) Put(kind Kind, key string, id uint) bool {
	if key == "" {
		return false
	}
	byKey, ok := m.entries[kind]
	if !ok {
		byKey = make(map[string]uint)
		m.entries[kind] = byKey
	}
	if _, exists := byKey[key]; exists {
		return false
	}
	byKey[key] = id
	return true
}

// Len returns the number of keys mapped for kind.
func (m *Mapper) Len(kind Kind) int {
	return len(m.entries[kind])
}

// Snapshot returns a deep copy of all mappings, suitable for reporting after
// the run has ended.
func (m *Mapper) Snapshot() map[Kind]map[string]uint {
	out := make(map[Kind]map[string]uint, len(m.entries))
	for _, kind := range sortedKinds(m.entries) {
		byKey := m.entries[kind]
		cp := make(map[string]uint, len(byKey))
		for k, v := range byKey {
			cp[k] = v
		}
		out[kind] = cp
	}
	return out
}

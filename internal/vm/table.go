package vm

// Open-addressing hash table keyed by interned strings. Keys compare
// by pointer; the cached content hash picks the probe start. Used for
// global bindings and for the string intern table itself. Entries are
// never deleted during a run, so no tombstones are needed.

const tableMaxLoad = 0.75

type tableEntry struct {
	key   *ObjString // nil marks an empty bucket
	value Value
}

// Table maps interned strings to values
type Table struct {
	entries []tableEntry
	count   int
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of live entries
func (t *Table) Len() int {
	return t.count
}

// Get looks up key and reports whether it was present
func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 {
		return NilVal(), false
	}
	entry := t.findEntry(t.entries, key)
	if entry.key == nil {
		return NilVal(), false
	}
	return entry.value, true
}

// Set inserts or overwrites key. It reports whether the key was new.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.resize(growCapacity(len(t.entries)))
	}

	entry := t.findEntry(t.entries, key)
	isNew := entry.key == nil
	if isNew {
		t.count++
	}
	entry.key = key
	entry.value = value
	return isNew
}

// FindString looks up a key by content rather than identity. It is
// the one content-based lookup the intern table needs; everything
// else goes through pointer keys.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if t.count == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		entry := &t.entries[index]
		if entry.key == nil {
			return nil
		}
		if entry.key.Hash == hash && entry.key.Chars == chars {
			return entry.key
		}
		index = (index + 1) % capacity
	}
}

// Range calls fn for every entry until fn returns false
func (t *Table) Range(fn func(key *ObjString, value Value) bool) {
	for i := range t.entries {
		if t.entries[i].key == nil {
			continue
		}
		if !fn(t.entries[i].key, t.entries[i].value) {
			return
		}
	}
}

func (t *Table) findEntry(entries []tableEntry, key *ObjString) *tableEntry {
	capacity := uint32(len(entries))
	index := key.Hash % capacity
	for {
		entry := &entries[index]
		if entry.key == nil || entry.key == key {
			return entry
		}
		index = (index + 1) % capacity
	}
}

func (t *Table) resize(capacity int) {
	entries := make([]tableEntry, capacity)
	for i := range t.entries {
		src := &t.entries[i]
		if src.key == nil {
			continue
		}
		dst := t.findEntry(entries, src.key)
		dst.key = src.key
		dst.value = src.value
	}
	t.entries = entries
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// hashString is FNV-1a over the string bytes
func hashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

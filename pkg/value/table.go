package value

// Table is the open-addressed hash table from (interned String key) →
// Value that backs both the VM's globals and its string-intern index
// (§4.3). It is the one data structure in the core keyed on object
// identity for ordinary lookups and on content for interning.
type Table struct {
	entries []entry
	count   int // live entries + tombstones, for load-factor accounting
}

type entry struct {
	key   *Object // nil key = empty or tombstone
	value Value
	// tombstone distinguishes a deleted slot (key nil, tombstone true)
	// from a never-used slot (key nil, tombstone false) — both have a
	// nil key. Delete also stores Bool(true) in value, the original's
	// tombstone encoding, but probes test this flag, not the value.
	tombstone bool
}

const tableMaxLoad = 0.75
const tableMinCapacity = 8

// NewTable returns an empty Table; its backing array is allocated
// lazily on first insert.
func NewTable() *Table {
	return &Table{}
}

// Count is the number of occupied slots: live entries plus the
// tombstones Delete has left since the last grow.
func (t *Table) Count() int { return t.count }

// Get looks up key by reference identity, as required for globals and
// for any lookup once a String reference is already in hand (§4.3:
// "reference equality for set/get/delete").
func (t *Table) Get(key *Object) (Value, bool) {
	if len(t.entries) == 0 {
		return NilValue, false
	}
	e := t.find(key)
	if e.key == nil {
		return NilValue, false
	}
	return e.value, true
}

// Set inserts or overwrites key → v. It reports true iff key was not
// already present, whether it lands in an empty slot or reuses a
// tombstone. Only an empty slot increments the count; tombstone reuse
// does not (§4.3 "Insert").
func (t *Table) Set(key *Object, v Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}

	e := t.find(key)
	isNewKey := e.key == nil
	if isNewKey && !e.tombstone {
		t.count++
	}
	e.key = key
	e.value = v
	e.tombstone = false
	return isNewKey
}

// Delete converts key's slot to a tombstone. Size is not decremented
// (§4.3 "Delete": tombstones still count toward load until the next
// grow) so probe chains through it remain intact.
func (t *Table) Delete(key *Object) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolValue(true)
	e.tombstone = true
	return true
}

// FindInterned walks the probe chain for a string with the given
// content, matching on (length, hash, byte equality) rather than
// reference identity — this is the lookup the intern table uses to
// decide whether a freshly scanned or concatenated string already has
// a live Object (§4.3 "Intern lookup").
func (t *Table) FindInterned(s string, hash uint32) *Object {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := int(hash) % capacity
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && len(e.key.Chars) == len(s) && e.key.Chars == s {
			return e.key
		}
		index = (index + 1) % capacity
	}
}

// find returns the slot a (key) probe would land on: either the slot
// already holding key, the first empty slot seen, or — preferring
// whichever comes first — a remembered tombstone suitable for reuse
// (§4.3 "a tombstone is skipped but remembered as insertion fallback").
func (t *Table) find(key *Object) *entry {
	capacity := len(t.entries)
	index := int(key.Hash) % capacity
	var tombstone *entry
	for {
		e := &t.entries[index]
		switch {
		case e.key == nil:
			if !e.tombstone {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		index = (index + 1) % capacity
	}
}

func growCapacity(capacity int) int {
	if capacity < tableMinCapacity {
		return tableMinCapacity
	}
	return capacity * 2
}

// grow rebuilds the table at newCapacity, dropping tombstones and
// recounting size from scratch (§4.3 "Grow").
func (t *Table) grow(newCapacity int) {
	grown := make([]entry, newCapacity)
	oldEntries := t.entries
	t.entries = grown
	t.count = 0

	for i := range oldEntries {
		e := &oldEntries[i]
		if e.key == nil {
			continue
		}
		dst := t.find(e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
}

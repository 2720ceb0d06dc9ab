package runtime

import (
	"math"

	"github.com/tanema/lvm/src/lerrors"
)

// Table is the lua associative array. Positive integer keys that are contiguous
// from 1 live in the array part, everything else lives in the hash part.
type Table struct {
	arr  []Value
	hash map[Value]Value
	// snapshot of hash keys for iteration with Next, stale once a new key is
	// added to the hash part.
	keys   []Value
	keyIdx map[Value]int
	stale  bool
}

// NewTable creates a table with capacity hints for both parts.
func NewTable(nArr, nRec int) *Table {
	t := &Table{}
	if nArr > 0 {
		t.arr = make([]Value, 0, nArr)
	}
	if nRec > 0 {
		t.hash = make(map[Value]Value, nRec)
	}
	return t
}

// normalizeKey converts floats with an exact integer value to integers so that
// 1 and 1.0 address the same slot.
func normalizeKey(key Value) Value {
	if f, ok := key.(Float); ok {
		if i, ok := floatToInteger(float64(f)); ok {
			return Integer(i)
		}
	}
	return key
}

// Get returns the value at key or nil.
func (t *Table) Get(key Value) Value {
	key = normalizeKey(key)
	if idx, ok := key.(Integer); ok && idx >= 1 && int64(idx) <= int64(len(t.arr)) {
		return t.arr[idx-1]
	}
	if t.hash == nil || key == nil {
		return nil
	}
	return t.hash[key]
}

// Put sets the value at key, setting nil removes the key.
func (t *Table) Put(key, val Value) error {
	switch k := key.(type) {
	case nil:
		return lerrors.New(lerrors.IndexErr, "table index is nil")
	case Float:
		if math.IsNaN(float64(k)) {
			return lerrors.New(lerrors.IndexErr, "table index is NaN")
		}
	}
	key = normalizeKey(key)
	if idx, ok := key.(Integer); ok && idx >= 1 {
		arrLen := Integer(len(t.arr))
		if idx <= arrLen {
			t.arr[idx-1] = val
			if idx == arrLen && val == nil {
				t.shrinkArray()
			}
			return nil
		}
		if idx == arrLen+1 {
			if t.hash != nil {
				delete(t.hash, key)
			}
			if val != nil {
				t.arr = append(t.arr, val)
				t.expandArray()
			}
			return nil
		}
	}
	if val == nil {
		if t.hash != nil {
			delete(t.hash, key)
		}
		return nil
	}
	if t.hash == nil {
		t.hash = map[Value]Value{}
	}
	if _, found := t.hash[key]; !found {
		t.stale = true
	}
	t.hash[key] = val
	return nil
}

func (t *Table) shrinkArray() {
	for i := len(t.arr) - 1; i >= 0 && t.arr[i] == nil; i-- {
		t.arr = t.arr[:i]
	}
}

// expandArray moves keys len+1, len+2... from the hash part into the array part
// while they are contiguous.
func (t *Table) expandArray() {
	if t.hash == nil {
		return
	}
	for idx := Integer(len(t.arr) + 1); ; idx++ {
		val, found := t.hash[idx]
		if !found {
			return
		}
		delete(t.hash, idx)
		t.arr = append(t.arr, val)
	}
}

// Len is the length of the array part.
func (t *Table) Len() int64 { return int64(len(t.arr)) }

// Next returns the key and value that follow key, starting with the array part
// and then the hash part. A nil key starts the iteration and a nil returned key
// ends it.
func (t *Table) Next(key Value) (Value, Value, error) {
	key = normalizeKey(key)
	start := 0
	if key != nil {
		idx, isInt := key.(Integer)
		if isInt && idx >= 1 && int64(idx) <= int64(len(t.arr)) {
			start = int(idx)
		} else {
			return t.nextHash(key)
		}
	}
	for i := start; i < len(t.arr); i++ {
		if t.arr[i] != nil {
			return Integer(i + 1), t.arr[i], nil
		}
	}
	t.refreshKeys()
	return t.nextFrom(0)
}

func (t *Table) nextHash(key Value) (Value, Value, error) {
	idx, found := t.keyIdx[key]
	if !found {
		t.refreshKeys()
		if idx, found = t.keyIdx[key]; !found {
			return nil, nil, lerrors.New(lerrors.IndexErr, "invalid key to 'next'")
		}
	}
	return t.nextFrom(idx + 1)
}

func (t *Table) nextFrom(start int) (Value, Value, error) {
	for i := start; i < len(t.keys); i++ {
		if val := t.hash[t.keys[i]]; val != nil {
			return t.keys[i], val, nil
		}
	}
	return nil, nil, nil
}

// refreshKeys rebuilds the key snapshot only if keys were added since it was
// taken, so traversals running at the same time agree on the order.
func (t *Table) refreshKeys() {
	if t.keys != nil && !t.stale {
		return
	}
	t.stale = false
	t.keys = make([]Value, 0, len(t.hash))
	t.keyIdx = make(map[Value]int, len(t.hash))
	for key := range t.hash {
		t.keyIdx[key] = len(t.keys)
		t.keys = append(t.keys, key)
	}
}

package form

import "iter"

type entry[V any] struct {
	key   string
	value V
}

// MultiDict is an ordered mapping where a key may hold several values. Insertion order is kept
// across keys and for the values of a single key.
type MultiDict[V any] struct {
	entries []entry[V]
	index   map[string][]int
}

// Fields maps form field names to their decoded text values.
type Fields = MultiDict[string]

// Files maps form field names to uploaded files.
type Files = MultiDict[*FileEntry]

// NewMultiDict creates an empty MultiDict.
func NewMultiDict[V any]() *MultiDict[V] {
	return &MultiDict[V]{index: make(map[string][]int)}
}

// Add appends a value for key.
func (m *MultiDict[V]) Add(key string, value V) {
	if m.index == nil {
		m.index = make(map[string][]int)
	}

	m.index[key] = append(m.index[key], len(m.entries))
	m.entries = append(m.entries, entry[V]{key: key, value: value})
}

// Get returns the first value added for key.
func (m *MultiDict[V]) Get(key string) (v V, ok bool) {
	ii := m.index[key]
	if len(ii) == 0 {
		return
	}

	return m.entries[ii[0]].value, true
}

// GetAll returns all values for key in the order they were added.
func (m *MultiDict[V]) GetAll(key string) []V {
	ii := m.index[key]
	vv := make([]V, 0, len(ii))
	for _, i := range ii {
		vv = append(vv, m.entries[i].value)
	}

	return vv
}

// Has reports whether key has at least one value.
func (m *MultiDict[V]) Has(key string) bool {
	return len(m.index[key]) > 0
}

// Keys returns the distinct keys in order of first appearance.
func (m *MultiDict[V]) Keys() []string {
	keys := make([]string, 0, len(m.index))
	for i, e := range m.entries {
		if m.index[e.key][0] == i {
			keys = append(keys, e.key)
		}
	}

	return keys
}

// Len returns the number of values, counting duplicate keys.
func (m *MultiDict[V]) Len() int {
	return len(m.entries)
}

// All iterates over every key/value pair in insertion order.
func (m *MultiDict[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Package orderedmap provides a map that preserves insertion order.
package orderedmap

// Map is a map datastructure that allows accessing it's element in a
// fixed order. It is not safe for concurrent use.
type Map[K comparable, V any] struct {
	order   []K
	m       map[K]V
	zeroval V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: map[K]V{},
	}
}

// AddIfNotExist adds val to the map if K does not exist.
func (m *Map[K, V]) AddIfNotExist(key K, val V) (added bool) {
	if _, exist := m.m[key]; exist {
		return false
	}

	m.order = append(m.order, key)
	m.m[key] = val

	return true
}

// Get returns the value for the given key.
// If the key does not exist, the zero value is returned
func (m *Map[K, V]) Get(key K) V {
	v, exist := m.m[key]
	if !exist {
		return m.zeroval
	}

	return v
}

// Len returns the number of elements in the maps.
func (m *Map[K, V]) Len() int {
	return len(m.order)
}

// Foreach itereates through the map in order.
// When fn returns false the iteration is aborted.
func (m *Map[K, V]) Foreach(fn func(K, V) bool) {
	for _, k := range m.order {
		if !fn(k, m.m[k]) {
			return
		}
	}
}

// AsSlice returns a new slice containing the elements of the orderedMap in
// order.
func (m *Map[K, V]) AsSlice() []V {
	result := make([]V, 0, len(m.order))

	for _, k := range m.order {
		result = append(result, m.m[k])
	}

	return result
}

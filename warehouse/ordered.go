//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of AeroDW.
//
// AeroDW is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AeroDW is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AeroDW. If not, see https://www.gnu.org/licenses/.

package warehouse

// OrderedMap is a map that remembers the order in which keys were first
// inserted. Overwriting a key keeps its original position.
type OrderedMap[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{index: make(map[K]int)}
}

// Put stores v under k.
func (m *OrderedMap[K, V]) Put(k K, v V) {
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// PutIfAbsent stores v under k unless k is already present. It reports
// whether v was stored.
func (m *OrderedMap[K, V]) PutIfAbsent(k K, v V) bool {
	if _, ok := m.index[k]; ok {
		return false
	}
	m.Put(k, v)
	return true
}

// Get returns the value stored under k.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// Ref returns a pointer to the value stored under k, for in-place updates.
// The pointer is invalidated by the next insertion of a new key.
func (m *OrderedMap[K, V]) Ref(k K) (*V, bool) {
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	return &m.vals[i], true
}

// Has reports whether k is present.
func (m *OrderedMap[K, V]) Has(k K) bool {
	_, ok := m.index[k]
	return ok
}

// Len returns the number of keys.
func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	return append([]K(nil), m.keys...)
}

// Values returns the values in key insertion order.
func (m *OrderedMap[K, V]) Values() []V {
	return append([]V(nil), m.vals...)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap[K, V]) Range(fn func(k K, v V) bool) {
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}

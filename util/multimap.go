// util/multimap.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"hash/maphash"
	"iter"
	"reflect"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrKeyNotFound     = errors.New("key not found")
)

// RemoveMode selects whether MultiMap removal stops after the first
// matching entry or removes all of them.
type RemoveMode int

const (
	RemoveFirst RemoveMode = iota
	RemoveAll
)

///////////////////////////////////////////////////////////////////////////
// MultiMap

// MultiMap is a hash map that allows duplicate keys. It uses open hashing
// with chained buckets; the bucket and entry arrays are sized to primes
// and entries freed by removal are reused before the arrays grow.
//
// Iteration order follows the entry array and should not be relied upon.
type MultiMap[K comparable, V comparable] struct {
	buckets   []int
	entries   []multiMapEntry[K, V]
	elemCount int
	freeList  int
	freeCount int

	hash       func(K) uint64
	keyEqual   func(K, K) bool
	valueEqual func(V, V) bool
	keyNilable bool
}

type multiMapEntry[K comparable, V comparable] struct {
	hashCode int // lower 31 bits of the hash, -1 if unused
	next     int // index of the next entry in the chain, -1 if last
	key      K
	value    V
}

// MultiMapOption customizes the equality used by a MultiMap.
type MultiMapOption[K comparable, V comparable] func(*MultiMap[K, V])

// WithKeyEquality provides a hash function and equality predicate for
// keys. Keys that compare equal must hash to the same value.
func WithKeyEquality[K comparable, V comparable](hash func(K) uint64, equal func(K, K) bool) MultiMapOption[K, V] {
	return func(m *MultiMap[K, V]) {
		if hash != nil && equal != nil {
			m.hash = hash
			m.keyEqual = equal
		}
	}
}

// WithValueEquality provides the predicate used to match values in Find,
// RemoveValue and ContainsValue.
func WithValueEquality[K comparable, V comparable](equal func(V, V) bool) MultiMapOption[K, V] {
	return func(m *MultiMap[K, V]) {
		if equal != nil {
			m.valueEqual = equal
		}
	}
}

var multiMapSeed = maphash.MakeSeed()

// NewMultiMap returns a MultiMap with room for at least capacity entries
// before it needs to grow. MultiMaps must be created with NewMultiMap;
// the zero value is not usable.
func NewMultiMap[K comparable, V comparable](capacity int, opts ...MultiMapOption[K, V]) (*MultiMap[K, V], error) {
	if capacity < 0 {
		return nil, ErrInvalidArgument
	}

	m := &MultiMap[K, V]{
		freeList:   -1,
		hash:       func(k K) uint64 { return maphash.Comparable(multiMapSeed, k) },
		keyEqual:   func(a, b K) bool { return a == b },
		valueEqual: func(a, b V) bool { return a == b },
	}
	switch reflect.TypeFor[K]().Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		m.keyNilable = true
	}
	for _, opt := range opts {
		opt(m)
	}
	if capacity > 0 {
		m.initialize(capacity)
	}
	return m, nil
}

func (m *MultiMap[K, V]) initialize(capacity int) {
	size := getPrime(capacity)
	m.buckets = make([]int, size)
	for i := range m.buckets {
		m.buckets[i] = -1
	}
	m.entries = make([]multiMapEntry[K, V], size)
	m.freeList = -1
}

// isNilKey reports whether k is nil; only keys of nilable kinds are
// inspected.
func (m *MultiMap[K, V]) isNilKey(k K) bool {
	if !m.keyNilable {
		return false
	}
	v := reflect.ValueOf(any(k))
	if !v.IsValid() {
		// nil interface
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

func (m *MultiMap[K, V]) hashCode(k K) int {
	return int(m.hash(k) & 0x7fffffff)
}

// Count returns the number of entries in the map.
func (m *MultiMap[K, V]) Count() int {
	return m.elemCount - m.freeCount
}

// Add inserts the key and value. Existing entries with the same key are
// left as is.
func (m *MultiMap[K, V]) Add(k K, v V) error {
	if m.isNilKey(k) {
		return ErrInvalidArgument
	}

	if m.buckets == nil {
		m.initialize(0)
	}

	hc := m.hashCode(k)
	target := hc % len(m.buckets)

	var index int
	if m.freeCount > 0 {
		index = m.freeList
		m.freeList = m.entries[index].next
		m.freeCount--
	} else {
		if m.elemCount == len(m.entries) {
			m.resize(expandPrime(m.elemCount))
			target = hc % len(m.buckets)
		}
		index = m.elemCount
		m.elemCount++
	}

	m.entries[index] = multiMapEntry[K, V]{
		hashCode: hc,
		next:     m.buckets[target],
		key:      k,
		value:    v,
	}
	m.buckets[target] = index
	return nil
}

func (m *MultiMap[K, V]) resize(size int) {
	buckets := make([]int, size)
	for i := range buckets {
		buckets[i] = -1
	}

	entries := make([]multiMapEntry[K, V], size)
	copy(entries, m.entries[:m.elemCount])

	for i := range m.elemCount {
		if entries[i].hashCode >= 0 {
			b := entries[i].hashCode % size
			entries[i].next = buckets[b]
			buckets[b] = i
		}
	}

	m.buckets = buckets
	m.entries = entries
}

// chain calls visit for each entry index in k's bucket whose key matches
// k until visit returns false.
func (m *MultiMap[K, V]) chain(k K, visit func(i int) bool) {
	if m.buckets == nil || m.isNilKey(k) {
		return
	}
	hc := m.hashCode(k)
	for i := m.buckets[hc%len(m.buckets)]; i >= 0; i = m.entries[i].next {
		if m.entries[i].hashCode == hc && m.keyEqual(m.entries[i].key, k) {
			if !visit(i) {
				return
			}
		}
	}
}

func (m *MultiMap[K, V]) findEntry(k K) int {
	idx := -1
	m.chain(k, func(i int) bool {
		idx = i
		return false
	})
	return idx
}

// FindAny returns the value of one of the entries with the given key; it
// is unspecified which one when there are several.
func (m *MultiMap[K, V]) FindAny(k K) (V, error) {
	if i := m.findEntry(k); i >= 0 {
		return m.entries[i].value, nil
	}
	var v V
	return v, ErrKeyNotFound
}

// Find returns the stored value of an entry matching both k and v.
func (m *MultiMap[K, V]) Find(k K, v V) (V, error) {
	var result V
	err := ErrKeyNotFound
	m.chain(k, func(i int) bool {
		if m.valueEqual(m.entries[i].value, v) {
			result, err = m.entries[i].value, nil
			return false
		}
		return true
	})
	return result, err
}

// FindAll returns the values of all entries with the given key, in no
// particular order. The slice is empty if there are none.
func (m *MultiMap[K, V]) FindAll(k K) []V {
	result := []V{}
	m.chain(k, func(i int) bool {
		result = append(result, m.entries[i].value)
		return true
	})
	return result
}

func (m *MultiMap[K, V]) ContainsKey(k K) bool {
	return m.findEntry(k) >= 0
}

// ContainsValue does a linear scan over all of the entries.
func (m *MultiMap[K, V]) ContainsValue(v V) bool {
	for i := range m.elemCount {
		if m.entries[i].hashCode >= 0 && m.valueEqual(m.entries[i].value, v) {
			return true
		}
	}
	return false
}

// Remove removes the first or all entries with the given key and returns
// true if anything was removed.
func (m *MultiMap[K, V]) Remove(k K, mode RemoveMode) bool {
	return m.remove(k, func(V) bool { return true }, mode)
}

// RemoveValue is like Remove but only considers entries whose value
// matches v.
func (m *MultiMap[K, V]) RemoveValue(k K, v V, mode RemoveMode) bool {
	return m.remove(k, func(ev V) bool { return m.valueEqual(ev, v) }, mode)
}

func (m *MultiMap[K, V]) remove(k K, match func(V) bool, mode RemoveMode) bool {
	if m.buckets == nil || m.isNilKey(k) {
		return false
	}

	hc := m.hashCode(k)
	bucket := hc % len(m.buckets)
	last := -1
	removed := false

	for i := m.buckets[bucket]; i >= 0; {
		e := &m.entries[i]
		if e.hashCode != hc || !m.keyEqual(e.key, k) || !match(e.value) {
			last, i = i, e.next
			continue
		}

		next := e.next
		if last < 0 {
			m.buckets[bucket] = next
		} else {
			m.entries[last].next = next
		}

		*e = multiMapEntry[K, V]{hashCode: -1, next: m.freeList}
		m.freeList = i
		m.freeCount++
		removed = true

		if mode == RemoveFirst {
			return true
		}
		// last is unchanged since entry i is no longer in the chain.
		i = next
	}
	return removed
}

// Clear removes all entries but keeps the allocated storage.
func (m *MultiMap[K, V]) Clear() {
	if m.elemCount == 0 {
		return
	}
	for i := range m.buckets {
		m.buckets[i] = -1
	}
	clear(m.entries[:m.elemCount])
	m.freeList = -1
	m.elemCount = 0
	m.freeCount = 0
}

// All returns an iterator over all key/value pairs.
func (m *MultiMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.elemCount {
			if m.entries[i].hashCode >= 0 {
				if !yield(m.entries[i].key, m.entries[i].value) {
					return
				}
			}
		}
	}
}

///////////////////////////////////////////////////////////////////////////
// Prime sizing

var primes = [...]int{
	3, 7, 11, 17, 23, 29, 37, 47, 59, 71, 89, 107, 131, 163, 197, 239, 293, 353, 431, 521, 631, 761, 919, 1103,
	1327, 1597, 1931, 2333, 2801, 3371, 4049, 4861, 5839, 7013, 8419, 10103, 12143, 14591,
	17519, 21023, 25229, 30293, 36353, 43627, 52361, 62851, 75431, 90523, 108631, 130363,
	156437, 187751, 225307, 270371, 324449, 389357, 467237, 560689, 672827, 807403,
	968897, 1162687, 1395263, 1674319, 2009191, 2411033, 2893249, 3471899, 4166287, 4999559, 5999471, 7199369,
}

func isPrime(n int) bool {
	if n&1 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return n > 1
}

// getPrime returns the smallest prime in the table that is >= min, or
// searches for one past the end of the table.
func getPrime(min int) int {
	for _, p := range primes {
		if p >= min {
			return p
		}
	}
	for i := min | 1; ; i += 2 {
		if isPrime(i) {
			return i
		}
	}
}

func expandPrime(oldSize int) int {
	return getPrime(2 * oldSize)
}

// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// package slotmap implements the ordered property store behind the own
// properties of a scriptable object. Properties are identified by a string
// name, a symbol, or an integer index, and must enumerate in the order they
// were first defined no matter where they land in the hash table.
//
// # Layout
//
// A Map is a chained hash table with the chains threaded directly through
// the Slot values, so a property costs one allocation. Every slot also sits
// on a second singly linked list, the order list, which runs from the first
// slot added to the last. The two lists are independent: growth rebuilds the
// chains and never touches the order list, and enumeration walks the order
// list and never looks at the chains.
//
//	buckets             order list
//	+---+
//	| 0 | --> b --> nil     firstAdded --> a --> b --> c --> d <-- lastAdded
//	+---+
//	| 1 | --> d --> a --> nil
//	+---+
//	| 2 | --> nil
//	+---+
//	| 3 | --> c --> nil
//	+---+
//
// The bucket array length is always a power of two so a bucket is selected
// with indexOrHash&(len-1). A slot's indexOrHash is the hash carried by its
// Key, or the index itself for index-keyed slots, and is never recomputed.
// New slots are pushed at the head of their chain. The array is allocated on
// first insert with 4 buckets and doubles whenever an insert would take the
// load factor above 3/4. It never shrinks.
//
// # Replacing slots
//
// A slot's representation (plain value vs. accessor pair) is fixed at
// construction. Converting a property therefore builds a new Slot and swaps it
// in with Replace, which splices the new slot into the exact chain and
// order-list position of the old one so enumeration order is unaffected.
//
// # Deletion
//
// Removal unlinks the slot from its chain in O(1) (the predecessor is found
// during lookup) and from the order list in O(n), since the order list has no
// back pointers and deletes are rare compared to lookups and inserts. Deleting
// a Permanent slot leaves it in place, and in strict mode reports a
// *PropertyError wrapping ErrNotConfigurable.
package slotmap

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	debug = false

	// initialBuckets is the size of the first bucket array. It must be a
	// power of 2.
	initialBuckets = 4
)

// Map is an insertion-ordered map from property identities to slots with
// Query, Modify, Add, Replace, Remove, Compute and All operations. The zero
// value is an empty map ready to use; no bucket array is allocated until the
// first insert.
//
// A Map is NOT goroutine-safe. Wrap it in a Locked for concurrent use.
type Map struct {
	// buckets holds the chain heads. It is nil until the first insert and
	// its length is always a power of 2.
	buckets []*Slot
	// Gateways into the insertion-order list of slots.
	firstAdded *Slot
	lastAdded  *Slot
	// The number of live slots.
	count int
	// hasIndex is set once an index-keyed slot has been inserted, letting
	// Query skip the lookup of indexes in maps holding only named keys.
	hasIndex bool
	// The allocator to use for the bucket arrays. nil means the default.
	allocator Allocator
	// The bucket array size requested by WithInitialCapacity.
	initialCapacity int
}

// New constructs a new Map. By default the bucket array is not allocated
// until the first insert.
func New(options ...option) *Map {
	m := &Map{}
	for _, op := range options {
		op.apply(m)
	}
	if m.initialCapacity > 0 {
		m.buckets = m.alloc(roundUpCapacity(m.initialCapacity))
	}
	m.checkInvariants()
	return m
}

// Close releases the bucket array back to the configured allocator and
// empties the map. It is unnecessary to close a map using the default
// allocator. Close is idempotent.
func (m *Map) Close() {
	if m.buckets != nil {
		m.free(m.buckets)
	}
	m.buckets = nil
	m.firstAdded = nil
	m.lastAdded = nil
	m.count = 0
	m.hasIndex = false
}

// Len returns the number of slots in the map.
func (m *Map) Len() int {
	return m.count
}

// Empty returns true if the map holds no slots.
func (m *Map) Empty() bool {
	return m.count == 0
}

// Query returns the slot for the given name or symbol key, or for index if
// key is NoKey. It returns nil if there is no such slot.
func (m *Map) Query(key Key, index int32) *Slot {
	if m.buckets == nil || (key.kind == keyIndex && !m.hasIndex) {
		return nil
	}
	h := indexOrHash(key, index)
	for s := m.buckets[bucketIndex(len(m.buckets), h)]; s != nil; s = s.next {
		if s.matches(key, h) {
			return s
		}
	}
	return nil
}

// Modify returns the slot for (key, index), creating and inserting a new data
// slot with attributes attrs if none exists. The attributes of an existing
// slot are left untouched.
func (m *Map) Modify(key Key, index int32, attrs Attributes) *Slot {
	h := indexOrHash(key, index)
	if m.buckets != nil {
		if s, _, _ := m.find(key, h); s != nil {
			return s
		}
	}
	s := NewSlot(key, index, attrs)
	m.insert(s)
	m.checkInvariants()
	return s
}

// Add inserts s into the map. The caller must know that no slot for the same
// property is present; violating this corrupts the map (it is only detected
// when built with the invariants tag). Add is meant for bulk construction
// such as cloning another map's slots.
func (m *Map) Add(s *Slot) {
	m.insert(s)
	m.checkInvariants()
}

// Replace swaps newSlot in for oldSlot, keeping oldSlot's position in both its
// bucket chain and the enumeration order. oldSlot must be present in the map
// and newSlot must be an unlinked slot for the same property; anything else
// is a bug in the caller and panics.
//
// oldSlot keeps its links so that an iteration positioned on it continues
// with the rest of the map.
func (m *Map) Replace(oldSlot, newSlot *Slot) {
	if oldSlot == newSlot {
		return
	}
	if !oldSlot.sameProperty(newSlot) {
		assertf("replacing slot %s with slot for a different property %s", oldSlot, newSlot)
	}
	if m.buckets == nil {
		assertf("replacing slot %s that is not present", oldSlot)
	}
	b := bucketIndex(len(m.buckets), oldSlot.indexOrHash)
	var prev *Slot
	s := m.buckets[b]
	for s != nil && s != oldSlot {
		prev = s
		s = s.next
	}
	if s == nil {
		assertf("replacing slot %s that is not present", oldSlot)
	}
	if debug {
		fmt.Printf("replace(%s): bucket=%d new=%s\n", oldSlot, b, newSlot)
	}
	m.swap(oldSlot, newSlot, prev, b)
	m.checkInvariants()
}

// Remove deletes the slot for (key, index). Removing an absent property is a
// no-op. A Permanent slot is never removed: in strict mode Remove returns a
// *PropertyError wrapping ErrNotConfigurable, otherwise it silently does
// nothing.
func (m *Map) Remove(key Key, index int32, strict bool) error {
	if m.count == 0 {
		return nil
	}
	s, prev, b := m.find(key, indexOrHash(key, index))
	if s == nil {
		return nil
	}
	if s.attributes&Permanent != 0 {
		if debug {
			fmt.Printf("remove(%s): permanent strict=%t\n", s, strict)
		}
		if strict {
			return newPropertyError(ErrNotConfigurable, MsgDeleteNotConfigurable, key, index)
		}
		return nil
	}
	m.unlink(s, prev, b)
	if debug {
		fmt.Printf("remove(%s): bucket=%d count=%d\n", s, b, m.count)
	}
	m.checkInvariants()
	return nil
}

// Compute looks up the slot for (key, index) and passes it, or nil, to fn.
// A nil result removes the existing slot regardless of its attributes; the
// existing slot keeps it; any other slot is inserted, or replaces the
// existing one in place. The slot fn returned is passed back. fn must not
// modify the map.
func (m *Map) Compute(key Key, index int32, fn ComputeFunc) *Slot {
	h := indexOrHash(key, index)
	var s, prev *Slot
	var b int
	if m.buckets != nil {
		s, prev, b = m.find(key, h)
	}

	if s == nil {
		newSlot := fn(key, index, nil)
		if newSlot != nil {
			if !newSlot.matches(key, h) {
				assertf("computed slot %s for a different property %s", newSlot, describe(key, index))
			}
			m.insert(newSlot)
			m.checkInvariants()
		}
		return newSlot
	}

	newSlot := fn(key, index, s)
	switch {
	case newSlot == nil:
		m.unlink(s, prev, b)
	case newSlot != s:
		if !newSlot.sameProperty(s) {
			assertf("computed slot %s for a different property %s", newSlot, s)
		}
		m.swap(s, newSlot, prev, b)
	}
	m.checkInvariants()
	return newSlot
}

// All calls yield sequentially for each slot in the map, in the order the
// slots were added. If yield returns false, iteration stops. The map can be
// mutated during iteration (for instance deleting the slot just yielded),
// though there is no guarantee that the mutations will be visible to the
// iteration.
func (m *Map) All(yield func(s *Slot) bool) {
	for s := m.firstAdded; s != nil; s = s.orderedNext {
		if !yield(s) {
			return
		}
	}
}

// Iterator returns an iterator positioned before the first slot added.
func (m *Map) Iterator() Iterator {
	return Iterator{m: m}
}

// Iterator is a single pass cursor over a map's slots in insertion order.
// Like All, it tolerates mutation of the map but may or may not observe it.
type Iterator struct {
	m       *Map
	last    *Slot
	started bool
}

// Next returns the next slot, or false once the iteration is exhausted.
func (it *Iterator) Next() (*Slot, bool) {
	var s *Slot
	switch {
	case !it.started:
		it.started = true
		s = it.m.firstAdded
	case it.last != nil:
		s = it.last.orderedNext
	}
	it.last = s
	return s, s != nil
}

// capacity returns the length of the bucket array.
func (m *Map) capacity() int {
	return len(m.buckets)
}

// find locates the slot for key and h, also returning its chain predecessor
// (nil if the slot heads the chain) and its bucket. m.buckets must be non-nil.
func (m *Map) find(key Key, h int32) (s, prev *Slot, b int) {
	b = bucketIndex(len(m.buckets), h)
	for s = m.buckets[b]; s != nil; s = s.next {
		if s.matches(key, h) {
			return s, prev, b
		}
		prev = s
	}
	return nil, nil, b
}

// insert links a slot known to be absent into the map, allocating or growing
// the bucket array first if necessary.
func (m *Map) insert(s *Slot) {
	if m.buckets == nil {
		m.buckets = m.alloc(initialBuckets)
	}
	// Check if the table is not too full before inserting.
	if 4*(m.count+1) > 3*len(m.buckets) {
		m.grow()
	}

	m.count++
	// Add the new slot to the order list.
	s.orderedNext = nil
	if m.lastAdded != nil {
		m.lastAdded.orderedNext = s
	}
	if m.firstAdded == nil {
		m.firstAdded = s
	}
	m.lastAdded = s
	if s.key.kind == keyIndex {
		m.hasIndex = true
	}
	addKnownAbsent(m.buckets, s)
}

// grow doubles the bucket array, keeping its length a power of 2, and
// rebuckets every slot by walking the old chains. The order list is not
// touched.
func (m *Map) grow() {
	oldBuckets := m.buckets
	newBuckets := m.alloc(2 * len(oldBuckets))
	if debug {
		fmt.Printf("grow: capacity=%d->%d count=%d\n", len(oldBuckets), len(newBuckets), m.count)
	}
	for _, s := range oldBuckets {
		for s != nil {
			next := s.next
			addKnownAbsent(newBuckets, s)
			s = next
		}
	}
	m.buckets = newBuckets
	m.free(oldBuckets)
}

// swap splices newSlot into oldSlot's position in bucket b (after prev, or at
// the head if prev is nil) and in the order list.
func (m *Map) swap(oldSlot, newSlot, prev *Slot, b int) {
	newSlot.next = oldSlot.next
	if prev == nil {
		m.buckets[b] = newSlot
	} else {
		prev.next = newSlot
	}

	newSlot.orderedNext = oldSlot.orderedNext
	if oldSlot == m.firstAdded {
		m.firstAdded = newSlot
	} else {
		p := m.orderedPredecessor(oldSlot)
		p.orderedNext = newSlot
	}
	if oldSlot == m.lastAdded {
		m.lastAdded = newSlot
	}
}

// unlink removes s, found in bucket b after prev, from the map. s keeps its
// orderedNext link so that an iteration positioned on it can continue.
func (m *Map) unlink(s, prev *Slot, b int) {
	m.count--
	if prev == nil {
		m.buckets[b] = s.next
	} else {
		prev.next = s.next
	}

	// The order list has no back pointers. Deletes are infrequent enough
	// that the linear scan for the predecessor is acceptable.
	var p *Slot
	if s == m.firstAdded {
		m.firstAdded = s.orderedNext
	} else {
		p = m.orderedPredecessor(s)
		p.orderedNext = s.orderedNext
	}
	if s == m.lastAdded {
		m.lastAdded = p
	}
}

// orderedPredecessor returns the slot preceding s in the order list. s must
// be linked and must not be firstAdded.
func (m *Map) orderedPredecessor(s *Slot) *Slot {
	p := m.firstAdded
	for p != nil && p.orderedNext != s {
		p = p.orderedNext
	}
	if p == nil {
		assertf("slot %s missing from order list", s)
	}
	return p
}

func (m *Map) alloc(n int) []*Slot {
	if m.allocator == nil {
		return defaultAllocator{}.AllocBuckets(n)
	}
	return m.allocator.AllocBuckets(n)
}

func (m *Map) free(b []*Slot) {
	if m.allocator != nil {
		m.allocator.FreeBuckets(b)
	}
}

// addKnownAbsent pushes s onto the head of its chain in buckets. The caller
// guarantees s's property is not already present.
func addKnownAbsent(buckets []*Slot, s *Slot) {
	b := bucketIndex(len(buckets), s.indexOrHash)
	s.next = buckets[b]
	buckets[b] = s
}

// bucketIndex reduces indexOrHash to a bucket. n must be a power of 2, which
// turns the modulo into a mask.
func bucketIndex(n int, indexOrHash int32) int {
	return int(uint32(indexOrHash) & uint32(n-1))
}

func (m *Map) checkInvariants() {
	if invariants {
		if err := m.verify(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v\n%s", err, m.debugString()))
		}
	}
}

// verify checks the structural invariants of the map: the bucket array is a
// power of 2 and within the load factor, every slot sits in the right bucket,
// the chains and the order list each hold exactly count slots, lastAdded is
// the tail of the order list, and every slot in the order list is the one
// Query finds for its property.
func (m *Map) verify() error {
	if m.buckets == nil {
		if m.count != 0 || m.firstAdded != nil || m.lastAdded != nil {
			return errors.Newf("unallocated map has count=%d", m.count)
		}
		return nil
	}

	n := len(m.buckets)
	if n&(n-1) != 0 {
		return errors.Newf("capacity %d is not a power of 2", n)
	}
	if 4*m.count > 3*n {
		return errors.Newf("count %d exceeds load factor of capacity %d", m.count, n)
	}

	var chained int
	for i, s := range m.buckets {
		for ; s != nil; s = s.next {
			if chained++; chained > m.count {
				return errors.Newf("bucket chains hold more than %d slots", m.count)
			}
			if b := bucketIndex(n, s.indexOrHash); b != i {
				return errors.Newf("slot %s found in bucket %d, expected %d", s, i, b)
			}
		}
	}
	if chained != m.count {
		return errors.Newf("bucket chains hold %d slots, but count is %d", chained, m.count)
	}

	var ordered int
	var last *Slot
	for s := m.firstAdded; s != nil; s = s.orderedNext {
		if ordered++; ordered > m.count {
			return errors.Newf("order list holds more than %d slots", m.count)
		}
		if q := m.Query(s.key, s.indexOrHash); q != s {
			return errors.Newf("slot %s in order list is not found by query (found %v)", s, q)
		}
		last = s
	}
	if ordered != m.count {
		return errors.Newf("order list holds %d slots, but count is %d", ordered, m.count)
	}
	if last != m.lastAdded {
		return errors.Newf("lastAdded is %v, but order list ends at %v", m.lastAdded, last)
	}
	return nil
}

func (m *Map) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  count=%d  has-index=%t\n", len(m.buckets), m.count, m.hasIndex)
	for i, s := range m.buckets {
		fmt.Fprintf(&buf, "  %4d:", i)
		for n := 0; s != nil && n <= m.count; s, n = s.next, n+1 {
			fmt.Fprintf(&buf, " %s [%08x]", s, uint32(s.indexOrHash))
		}
		buf.WriteString("\n")
	}
	buf.WriteString("  order:")
	for s, n := m.firstAdded, 0; s != nil && n <= m.count; s, n = s.orderedNext, n+1 {
		fmt.Fprintf(&buf, " %s", s)
	}
	buf.WriteString("\n")
	return buf.String()
}

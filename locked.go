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

package slotmap

import "sync"

// Locked is a goroutine-safe SlotMap for objects shared between goroutines.
// Lookups take a read lock on the underlying map and mutations take the write
// lock. The slots it hands out are not themselves synchronized: callers that
// write Slot.Value from several goroutines must coordinate on their own.
type Locked struct {
	mu sync.RWMutex
	m  SlotMap
}

// NewLocked returns a Locked wrapping m, or a new Map if m is nil. m must not
// be used directly afterwards.
func NewLocked(m SlotMap) *Locked {
	if m == nil {
		m = New()
	}
	return &Locked{m: m}
}

func (l *Locked) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.m.Len()
}

func (l *Locked) Empty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.m.Empty()
}

func (l *Locked) Query(key Key, index int32) *Slot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.m.Query(key, index)
}

func (l *Locked) Modify(key Key, index int32, attrs Attributes) *Slot {
	// Most calls find an existing slot, so try under the read lock first.
	if s := l.Query(key, index); s != nil {
		return s
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Modify(key, index, attrs)
}

func (l *Locked) Add(s *Slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m.Add(s)
}

func (l *Locked) Replace(oldSlot, newSlot *Slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m.Replace(oldSlot, newSlot)
}

func (l *Locked) Remove(key Key, index int32, strict bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Remove(key, index, strict)
}

// Compute runs fn while holding the write lock, so fn must not call back into
// l.
func (l *Locked) Compute(key Key, index int32, fn ComputeFunc) *Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Compute(key, index, fn)
}

// All snapshots the slots under the read lock and then yields them without
// holding it, so yield may modify l.
func (l *Locked) All(yield func(s *Slot) bool) {
	for _, s := range l.Snapshot() {
		if !yield(s) {
			return
		}
	}
}

// Snapshot returns the slots in insertion order.
func (l *Locked) Snapshot() []*Slot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	slots := make([]*Slot, 0, l.m.Len())
	l.m.All(func(s *Slot) bool {
		slots = append(slots, s)
		return true
	})
	return slots
}

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

// ComputeFunc decides the fate of the slot for (key, index). existing is nil
// if the property is absent. Returning nil removes an existing slot (or
// leaves an absent one absent), returning existing keeps it, and returning
// any other slot installs that slot in place of existing.
type ComputeFunc func(key Key, index int32, existing *Slot) *Slot

// SlotMap is the storage capability behind an object's own properties. Every
// property is identified by a Key, or by an index when the key is NoKey.
type SlotMap interface {
	// Len returns the number of live slots.
	Len() int
	// Empty returns true if Len is zero.
	Empty() bool
	// Query returns the slot for (key, index), or nil.
	Query(key Key, index int32) *Slot
	// Modify returns the slot for (key, index), creating a data slot with
	// attrs if there is none.
	Modify(key Key, index int32, attrs Attributes) *Slot
	// Add inserts s, whose property the caller knows to be absent.
	Add(s *Slot)
	// Replace swaps newSlot in for oldSlot at the same chain and enumeration
	// position. oldSlot must be present.
	Replace(oldSlot, newSlot *Slot)
	// Remove deletes the slot for (key, index). Deleting a Permanent slot is
	// a no-op, reported as a *PropertyError when strict is set.
	Remove(key Key, index int32, strict bool) error
	// Compute looks up (key, index) once and applies fn's decision.
	Compute(key Key, index int32, fn ComputeFunc) *Slot
	// All calls yield for each slot in insertion order until yield returns
	// false.
	All(yield func(s *Slot) bool)
}

var (
	_ SlotMap = (*Map)(nil)
	_ SlotMap = (*Locked)(nil)
)

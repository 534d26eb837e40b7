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

import "math/bits"

// option provide an interface to do work on Map while it is being created.
type option interface {
	apply(m *Map)
}

type initialCapacityOption struct {
	capacity int
}

func (op initialCapacityOption) apply(m *Map) {
	m.initialCapacity = op.capacity
}

// WithInitialCapacity is an option to allocate the bucket array up front,
// sized to the smallest power of two >= capacity (and no smaller than the
// default initial size). Without it the array is allocated on first insert.
func WithInitialCapacity(capacity int) option {
	return initialCapacityOption{capacity}
}

// Allocator specifies an interface for allocating and releasing the bucket
// arrays used by a Map. The default allocator utilizes Go's builtin make()
// and allows the GC to reclaim memory.
//
// If the allocator recycles bucket arrays then Map.Close must be called in
// order to ensure FreeBuckets is called for the final array.
type Allocator interface {
	// AllocBuckets should return a slice equivalent to make([]*Slot, n).
	AllocBuckets(n int) []*Slot

	// FreeBuckets can optionally release the supplied slice, which is
	// guaranteed to have been allocated by AllocBuckets. The map no longer
	// references it.
	FreeBuckets(b []*Slot)
}

type defaultAllocator struct{}

func (defaultAllocator) AllocBuckets(n int) []*Slot {
	return make([]*Slot, n)
}

func (defaultAllocator) FreeBuckets(b []*Slot) {
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(m *Map) {
	m.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a Map.
func WithAllocator(allocator Allocator) option {
	return allocatorOption{allocator}
}

// roundUpCapacity returns the smallest power of two >= n, and at least
// initialBuckets.
func roundUpCapacity(n int) int {
	if n <= initialBuckets {
		return initialBuckets
	}
	return 1 << bits.Len(uint(n-1))
}

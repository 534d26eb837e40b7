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

import (
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

// orderedRuntimeMap is the obvious alternative to a Map: a builtin map for
// lookups and a slice for enumeration order.
type orderedRuntimeMap struct {
	m     map[Key]*Slot
	order []*Slot
}

func (o *orderedRuntimeMap) modify(key Key) *Slot {
	if s, ok := o.m[key]; ok {
		return s
	}
	s := NewSlot(key, 0, Empty)
	o.m[key] = s
	o.order = append(o.order, s)
	return s
}

func (o *orderedRuntimeMap) remove(key Key) {
	s, ok := o.m[key]
	if !ok {
		return
	}
	delete(o.m, key)
	for i := range o.order {
		if o.order[i] == s {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func BenchmarkMapQueryHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapQueryHit))
	b.Run("impl=slotMap", benchSizes(benchmarkSlotMapQueryHit))
}

func BenchmarkMapQueryMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapQueryMiss))
	b.Run("impl=slotMap", benchSizes(benchmarkSlotMapQueryMiss))
}

func BenchmarkMapModifyGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapModifyGrow))
	b.Run("impl=slotMap", benchSizes(benchmarkSlotMapModifyGrow))
}

func BenchmarkMapRemoveModify(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapRemoveModify))
	b.Run("impl=slotMap", benchSizes(benchmarkSlotMapRemoveModify))
}

func BenchmarkMapIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	b.Run("impl=slotMap", benchSizes(benchmarkSlotMapIter))
}

func BenchmarkMapReplace(b *testing.B) {
	b.Run("impl=slotMap", benchSizes(benchmarkSlotMapReplace))
}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	// Most objects have a handful of properties.
	var cases = []int{
		1, 3, 6, 12, 24,
		64,
		256,
		1024,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genKeys(start, end int) []Key {
	keys := make([]Key, end-start)
	for i := range keys {
		keys[i] = Name("prop" + strconv.Itoa(start+i))
	}
	return keys
}

func benchmarkRuntimeMapQueryHit(b *testing.B, n int) {
	o := &orderedRuntimeMap{m: make(map[Key]*Slot)}
	keys := genKeys(0, n)
	for _, k := range keys {
		o.modify(k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var s *Slot
	for i := 0; i < b.N; i++ {
		s = o.m[keys[i%n]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, s != nil)
}

func benchmarkSlotMapQueryHit(b *testing.B, n int) {
	m := New()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Modify(k, 0, Empty)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var s *Slot
	for i := 0; i < b.N; i++ {
		s = m.Query(keys[i%n], 0)
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, s != nil)
}

func benchmarkRuntimeMapQueryMiss(b *testing.B, n int) {
	o := &orderedRuntimeMap{m: make(map[Key]*Slot)}
	for _, k := range genKeys(0, n) {
		o.modify(k)
	}
	miss := genKeys(-n, 0)
	b.ResetTimer()
	perfbench.Open(b)
	var s *Slot
	for i := 0; i < b.N; i++ {
		s = o.m[miss[i%n]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, s != nil)
}

func benchmarkSlotMapQueryMiss(b *testing.B, n int) {
	m := New()
	for _, k := range genKeys(0, n) {
		m.Modify(k, 0, Empty)
	}
	miss := genKeys(-n, 0)
	b.ResetTimer()
	perfbench.Open(b)
	var s *Slot
	for i := 0; i < b.N; i++ {
		s = m.Query(miss[i%n], 0)
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, s != nil)
}

func benchmarkRuntimeMapModifyGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		o := &orderedRuntimeMap{m: make(map[Key]*Slot)}
		for _, k := range keys {
			o.modify(k)
		}
	}
}

func benchmarkSlotMapModifyGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		var m Map
		for _, k := range keys {
			m.Modify(k, 0, Empty)
		}
	}
}

func benchmarkRuntimeMapRemoveModify(b *testing.B, n int) {
	o := &orderedRuntimeMap{m: make(map[Key]*Slot)}
	keys := genKeys(0, n)
	for _, k := range keys {
		o.modify(k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := i % n
		o.remove(keys[j])
		o.modify(keys[j])
	}
}

func benchmarkSlotMapRemoveModify(b *testing.B, n int) {
	m := New()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Modify(k, 0, Empty)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := i % n
		_ = m.Remove(keys[j], 0, false)
		m.Modify(keys[j], 0, Empty)
	}
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	o := &orderedRuntimeMap{m: make(map[Key]*Slot)}
	for _, k := range genKeys(0, n) {
		o.modify(k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp int
	for i := 0; i < b.N; i++ {
		for _, s := range o.order {
			if s.attributes.Enumerable() {
				tmp++
			}
		}
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkSlotMapIter(b *testing.B, n int) {
	m := New()
	for _, k := range genKeys(0, n) {
		m.Modify(k, 0, Empty)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp int
	for i := 0; i < b.N; i++ {
		for s := range m.All {
			if s.attributes.Enumerable() {
				tmp++
			}
		}
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkSlotMapReplace(b *testing.B, n int) {
	m := New()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Modify(k, 0, Empty)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		s := m.Query(keys[i%n], 0)
		if s.IsAccessor() {
			m.Replace(s, s.ToData())
		} else {
			m.Replace(s, s.ToAccessor())
		}
	}
}

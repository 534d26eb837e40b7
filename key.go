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
	"strconv"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/frand"
)

type keyKind uint8

const (
	keyIndex keyKind = iota
	keyName
	keySymbol
)

// Key identifies a named property: either a string name or a Symbol. The
// zero Key (NoKey) identifies no name, in which case the integer index passed
// alongside it is the property's identity.
//
// A Key carries the hash of its name or symbol, computed once when the key is
// constructed. Keys are comparable with ==.
type Key struct {
	kind keyKind
	hash int32
	name string
	sym  *Symbol
}

// NoKey is the key used for index-keyed properties.
var NoKey Key

// Name returns the key for the string property name s. The empty string is a
// valid property name and is distinct from NoKey.
func Name(s string) Key {
	return Key{kind: keyName, hash: fold(xxhash.Sum64String(s)), name: s}
}

// SymbolKey returns the key for the symbol sym.
func SymbolKey(sym *Symbol) Key {
	return Key{kind: keySymbol, hash: sym.hash, sym: sym}
}

// IsIndex returns true if k is NoKey.
func (k Key) IsIndex() bool {
	return k.kind == keyIndex
}

// Name returns the property name and true if k is a string key.
func (k Key) Name() (string, bool) {
	return k.name, k.kind == keyName
}

// Symbol returns the symbol if k is a symbol key, and nil otherwise.
func (k Key) Symbol() *Symbol {
	return k.sym
}

func (k Key) String() string {
	switch k.kind {
	case keyName:
		return k.name
	case keySymbol:
		return k.sym.String()
	default:
		return "<index>"
	}
}

// Symbol is an opaque property identity. Two symbols are never equal, even
// if they share a description.
type Symbol struct {
	desc string
	hash int32
}

// NewSymbol returns a new unique symbol with the given description.
func NewSymbol(description string) *Symbol {
	return &Symbol{desc: description, hash: fold(frand.Uint64n(1 << 32))}
}

// Description returns the description the symbol was created with.
func (s *Symbol) Description() string {
	return s.desc
}

func (s *Symbol) String() string {
	return "Symbol(" + s.desc + ")"
}

// indexOrHash returns the hash of key, or index if key is NoKey.
func indexOrHash(key Key, index int32) int32 {
	if key.kind == keyIndex {
		return index
	}
	return key.hash
}

// describe renders a property identity for error messages and debugging.
func describe(key Key, index int32) string {
	if key.kind == keyIndex {
		return strconv.FormatInt(int64(index), 10)
	}
	return key.String()
}

func fold(h uint64) int32 {
	return int32(uint32(h) ^ uint32(h>>32))
}

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

import "strings"

// Attributes is the property attribute bitmask stored in a Slot.
type Attributes uint8

const (
	// Empty is the attribute set of an ordinary writable, enumerable,
	// configurable property.
	Empty Attributes = 0
	// ReadOnly marks a non-writable property.
	ReadOnly Attributes = 0x01
	// DontEnum marks a non-enumerable property.
	DontEnum Attributes = 0x02
	// Permanent marks a non-configurable property. It cannot be deleted.
	Permanent Attributes = 0x04
	// UninitializedConst marks a const binding that has not been assigned
	// yet.
	UninitializedConst Attributes = 0x08
	// Const is the attribute set of a const binding.
	Const = Permanent | ReadOnly | UninitializedConst

	allAttributes = ReadOnly | DontEnum | Permanent | UninitializedConst
)

// Enumerable returns true if DontEnum is clear.
func (a Attributes) Enumerable() bool { return a&DontEnum == 0 }

// Writable returns true if ReadOnly is clear.
func (a Attributes) Writable() bool { return a&ReadOnly == 0 }

// Configurable returns true if Permanent is clear.
func (a Attributes) Configurable() bool { return a&Permanent == 0 }

func (a Attributes) String() string {
	if a == Empty {
		return "empty"
	}
	var parts []string
	for _, x := range []struct {
		bit  Attributes
		name string
	}{
		{ReadOnly, "readonly"},
		{DontEnum, "dontenum"},
		{Permanent, "permanent"},
		{UninitializedConst, "uninitialized-const"},
	} {
		if a&x.bit != 0 {
			parts = append(parts, x.name)
		}
	}
	return strings.Join(parts, "|")
}

func checkAttributes(a Attributes) {
	if a&^allAttributes != 0 {
		assertf("invalid attributes %#02x", uint8(a))
	}
}

// Accessor is the payload of an accessor property. Either function may be
// nil.
type Accessor struct {
	Getter func(this any) (any, error)
	Setter func(this any, value any) error
}

// Slot is a single property entry. Whether a slot holds a plain value or an
// accessor pair is fixed when it is constructed; changing representation
// requires building a new slot (see ToAccessor and ToData) and swapping it in
// with Map.Replace so the property keeps its enumeration position.
//
// A slot belongs to at most one map at a time.
type Slot struct {
	key Key
	// indexOrHash is key's hash, or the index when key is NoKey. It is set at
	// construction and never recomputed.
	indexOrHash int32
	attributes  Attributes
	// accessor is non-nil iff this is an accessor slot.
	accessor *Accessor

	// Value is the stored value of a data slot. Accessor slots use it as the
	// fallback when no getter is installed.
	Value any

	// next links the slot into its bucket chain.
	next *Slot
	// orderedNext links the slot into the map's insertion-order list.
	orderedNext *Slot
}

// NewSlot returns an unlinked data slot.
func NewSlot(key Key, index int32, attrs Attributes) *Slot {
	checkAttributes(attrs)
	return &Slot{
		key:         key,
		indexOrHash: indexOrHash(key, index),
		attributes:  attrs,
	}
}

// NewAccessorSlot returns an unlinked accessor slot with no getter or setter.
func NewAccessorSlot(key Key, index int32, attrs Attributes) *Slot {
	s := NewSlot(key, index, attrs)
	s.accessor = &Accessor{}
	return s
}

// Key returns the slot's key. It is NoKey for index-keyed slots.
func (s *Slot) Key() Key { return s.key }

// Index returns the property index of an index-keyed slot. For named slots
// the result is meaningless.
func (s *Slot) Index() int32 { return s.indexOrHash }

// Attributes returns the slot's attribute bitmask.
func (s *Slot) Attributes() Attributes { return s.attributes }

// SetAttributes changes the slot's attributes in place. It panics if attrs
// contains unknown bits.
func (s *Slot) SetAttributes(attrs Attributes) {
	checkAttributes(attrs)
	s.attributes = attrs
}

// IsAccessor returns true if the slot holds an accessor pair.
func (s *Slot) IsAccessor() bool { return s.accessor != nil }

// Accessor returns the accessor pair, or nil for a data slot. The returned
// pointer may be used to install a getter or setter.
func (s *Slot) Accessor() *Accessor { return s.accessor }

// Copy returns an unlinked slot of the same kind, identity, attributes and
// payload as s.
func (s *Slot) Copy() *Slot {
	c := &Slot{
		key:         s.key,
		indexOrHash: s.indexOrHash,
		attributes:  s.attributes,
		Value:       s.Value,
	}
	if s.accessor != nil {
		a := *s.accessor
		c.accessor = &a
	}
	return c
}

// ToAccessor returns an unlinked accessor slot for the same property as s,
// carrying over its attributes and value. The getter and setter start unset.
func (s *Slot) ToAccessor() *Slot {
	return &Slot{
		key:         s.key,
		indexOrHash: s.indexOrHash,
		attributes:  s.attributes,
		Value:       s.Value,
		accessor:    &Accessor{},
	}
}

// ToData returns an unlinked data slot for the same property as s, carrying
// over its attributes and value.
func (s *Slot) ToData() *Slot {
	return &Slot{
		key:         s.key,
		indexOrHash: s.indexOrHash,
		attributes:  s.attributes,
		Value:       s.Value,
	}
}

// GetValue returns the property value as seen from this. Accessor slots call
// their getter if one is installed.
func (s *Slot) GetValue(this any) (any, error) {
	if s.accessor != nil && s.accessor.Getter != nil {
		return s.accessor.Getter(this)
	}
	return s.Value, nil
}

// SetValue writes value to the property as seen from this. Writes to a
// ReadOnly data property, or to an accessor property with a getter but no
// setter, return a *PropertyError when strict is set and are ignored
// otherwise.
func (s *Slot) SetValue(this any, value any, strict bool) error {
	if a := s.accessor; a != nil {
		if a.Setter != nil {
			return a.Setter(this, value)
		}
		if a.Getter != nil {
			if strict {
				return newPropertyError(ErrNoSetter, MsgSetNoSetter, s.key, s.indexOrHash)
			}
			return nil
		}
	}
	if s.attributes&ReadOnly != 0 {
		if strict {
			return newPropertyError(ErrReadOnly, MsgModifyReadOnly, s.key, s.indexOrHash)
		}
		return nil
	}
	s.Value = value
	return nil
}

// sameProperty returns true if s and o identify the same property.
func (s *Slot) sameProperty(o *Slot) bool {
	return s.indexOrHash == o.indexOrHash && s.key == o.key
}

func (s *Slot) matches(key Key, indexOrHash int32) bool {
	return s.indexOrHash == indexOrHash && s.key == key
}

func (s *Slot) String() string {
	kind := "data"
	if s.accessor != nil {
		kind = "accessor"
	}
	return describe(s.key, s.indexOrHash) + "[" + kind + "," + s.attributes.String() + "]"
}

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

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotConfigurable is the cause of a PropertyError returned when a
	// strict-mode delete targets a Permanent property.
	ErrNotConfigurable = errors.New("property is not configurable")
	// ErrReadOnly is the cause of a PropertyError returned when a strict-mode
	// write targets a ReadOnly data property.
	ErrReadOnly = errors.New("property is read-only")
	// ErrNoSetter is the cause of a PropertyError returned when a strict-mode
	// write targets an accessor property that has a getter but no setter.
	ErrNoSetter = errors.New("property has no setter")
)

// Message keys handed to the language layer to build the script-visible
// TypeError.
const (
	MsgDeleteNotConfigurable = "msg.delete.property.with.configurable.false"
	MsgModifyReadOnly        = "msg.modify.readonly"
	MsgSetNoSetter           = "msg.set.prop.no.setter"
)

// PropertyError is the language-semantic failure returned by operations run
// in strict mode. Use errors.Is with one of the Err* sentinels to classify it.
type PropertyError struct {
	// MessageKey names the localized message the caller should raise.
	MessageKey string
	Key        Key
	Index      int32
	cause      error
}

func newPropertyError(cause error, msgKey string, key Key, index int32) *PropertyError {
	return &PropertyError{MessageKey: msgKey, Key: key, Index: index, cause: cause}
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s: %s", describe(e.Key, e.Index), e.cause)
}

func (e *PropertyError) Unwrap() error {
	return e.cause
}

// assertf panics with an assertion failure. It is used for violated caller
// preconditions, which are bugs in the calling layer rather than script
// errors.
func assertf(format string, args ...interface{}) {
	panic(errors.AssertionFailedf(format, args...))
}

// Copyright (c) 2023 The Gring Authors. All rights reserved.
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

package gring

import (
	"github.com/panjf2000/gring/pkg/errors"
	gmath "github.com/panjf2000/gring/pkg/math"
)

// DataProvider translates a sequence number into a slot reference. The ring
// buffer below is the stock implementation; anything backed by a fixed
// power-of-two slot array can stand in for it.
//
// Both read and write access go through Get. The caller must have already
// established, via the sequencing protocol, that the sequence is within the
// published (for reads) or claimed (for writes) range and not concurrently
// aliased by another writer; violating that precondition is a programmer
// error, not a recoverable fault.
type DataProvider[T any] interface {
	// BufferSize returns the fixed number of slots.
	BufferSize() int64
	// Get returns a reference to the slot for the given sequence.
	Get(seq int64) *T
}

// RingBuffer is a fixed array of event slots whose capacity is a power of
// two, so that indexing reduces to seq & (capacity-1). Capacity is immutable
// after creation.
//
// Get hands out a *T from a shared structure on purpose: exclusivity of that
// reference is enforced by sequence gating alone, never by the type system.
// The race tests in this package are what validate the protocol.
type RingBuffer[T any] struct {
	entries []T
	mask    int64
	size    int64
}

// NewRingBuffer instantiates a RingBuffer with the given slot count.
func NewRingBuffer[T any](capacity int64) (*RingBuffer[T], error) {
	if !gmath.IsPowerOfTwo(capacity) {
		return nil, errors.ErrInvalidRingCapacity
	}
	return &RingBuffer[T]{
		entries: make([]T, capacity),
		mask:    capacity - 1,
		size:    capacity,
	}, nil
}

// BufferSize returns the fixed number of slots.
func (rb *RingBuffer[T]) BufferSize() int64 {
	return rb.size
}

// Get returns a reference to the slot for the given sequence.
func (rb *RingBuffer[T]) Get(seq int64) *T {
	return &rb.entries[seq&rb.mask]
}

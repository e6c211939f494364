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
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// InitialSequence is the value a Sequence holds before anything has been
// published or processed through it.
const InitialSequence int64 = -1

// maxSequence is the identity value for minimumSequence.
const maxSequence int64 = 1<<63 - 1

// Sequence is a monotonic counter shared between goroutines. A slot write is
// made visible to other goroutines by the release-store in Set, and observing
// the stored value via the acquire-load in Get establishes the matching
// happens-before edge, so a published slot is always fully written before any
// reader can see its sequence number.
//
// The value sits alone on its cache line to keep hot producer and consumer
// counters from false-sharing.
type Sequence struct {
	_     cpu.CacheLinePad
	value int64
	_     cpu.CacheLinePad
}

// NewSequence instantiates a Sequence holding the given initial value.
func NewSequence(v int64) *Sequence {
	s := new(Sequence)
	s.value = v
	return s
}

// Get returns the current value of the sequence.
func (s *Sequence) Get() int64 {
	return atomic.LoadInt64(&s.value)
}

// Set updates the sequence to the given value.
func (s *Sequence) Set(v int64) {
	atomic.StoreInt64(&s.value, v)
}

// CompareAndSet updates the sequence to the new value if it still holds the
// expected one, reporting whether the swap happened. Multi-producer claims
// race through this method.
func (s *Sequence) CompareAndSet(expected, v int64) bool {
	return atomic.CompareAndSwapInt64(&s.value, expected, v)
}

// minimumSequence returns the smallest value held by seqs, or fallback when
// seqs is empty.
func minimumSequence(seqs []*Sequence, fallback int64) int64 {
	min := fallback
	for _, s := range seqs {
		if v := s.Get(); v < min {
			min = v
		}
	}
	return min
}

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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceBasicOps(t *testing.T) {
	s := NewSequence(InitialSequence)
	assert.EqualValues(t, InitialSequence, s.Get(), "expect a fresh sequence to hold the initial value")

	s.Set(7)
	assert.EqualValues(t, 7, s.Get(), "expect Get to observe the value just set")

	assert.True(t, s.CompareAndSet(7, 8), "expect CAS with the right expectation to succeed")
	assert.False(t, s.CompareAndSet(7, 9), "expect CAS with a stale expectation to fail")
	assert.EqualValues(t, 8, s.Get(), "expect a failed CAS to leave the value untouched")
}

func TestSequenceMonotonicUnderContention(t *testing.T) {
	const (
		goroutines = 8
		increments = 10000
	)
	s := NewSequence(0)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			last := int64(0)
			for i := 0; i < increments; i++ {
				for {
					v := s.Get()
					if v < last {
						panic("sequence went backwards")
					}
					last = v
					if s.CompareAndSet(v, v+1) {
						break
					}
				}
			}
		}()
	}
	wg.Wait()
	assert.EqualValuesf(t, goroutines*increments, s.Get(), "expect %d successful increments", goroutines*increments)
}

func TestMinimumSequence(t *testing.T) {
	assert.EqualValues(t, 42, minimumSequence(nil, 42), "expect the fallback when there are no sequences")

	seqs := []*Sequence{NewSequence(5), NewSequence(3), NewSequence(9)}
	assert.EqualValues(t, 3, minimumSequence(seqs, maxSequence), "expect the smallest member")
	assert.EqualValues(t, 1, minimumSequence(seqs, 1), "expect the fallback to participate in the minimum")
}

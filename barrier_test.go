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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorx "github.com/panjf2000/gring/pkg/errors"
)

// publishedSequencer returns a single-producer sequencer whose cursor already
// points at maxSeq, i.e. maxSeq+1 elements are published.
func publishedSequencer(tb testing.TB, capacity, maxSeq int64) *SingleProducerSequencer {
	tb.Helper()
	seq, err := NewSingleProducerSequencer(capacity, YieldingWaitStrategy{})
	require.NoError(tb, err)
	for s := int64(0); s <= maxSeq; s++ {
		require.EqualValues(tb, s, seq.Next(1))
	}
	seq.Publish(0, maxSeq)
	return seq
}

func TestBarrierBatchesUpToCursor(t *testing.T) {
	seq := publishedSequencer(t, 8, 2)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{})

	avail, err := barrier.WaitFor(1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, avail, "expect WaitFor(1) to hand over the whole published range")

	// With no dependents the barrier degenerates to cursor-only gating.
	avail, err = barrier.WaitFor(0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, avail, "expect an already-available request to return without waiting")
}

func TestBarrierSatisfiedDependentIsIdempotent(t *testing.T) {
	seq := publishedSequencer(t, 8, 2)
	dependent := NewSequence(2)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{}, dependent)

	avail, err := barrier.WaitFor(1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, avail, "expect a dependent already at the cursor not to change the outcome")
}

func TestBarrierLaggingDependentBlocks(t *testing.T) {
	seq := publishedSequencer(t, 8, 2)
	dependent := NewSequence(0)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{}, dependent)

	got := make(chan int64, 1)
	go func() {
		avail, err := barrier.WaitFor(1)
		if err != nil {
			avail = InitialSequence
		}
		got <- avail
	}()

	select {
	case avail := <-got:
		t.Fatalf("expect the consumer to block on the lagging dependent, got %d", avail)
	case <-time.After(100 * time.Millisecond):
	}

	dependent.Set(1)
	barrier.Signal()
	select {
	case avail := <-got:
		assert.EqualValues(t, 1, avail, "expect availability to track the dependent, not the cursor")
	case <-time.After(3 * time.Second):
		t.Fatal("consumer stayed blocked after the dependent advanced")
	}
}

func TestBarrierAlert(t *testing.T) {
	seq := publishedSequencer(t, 8, 0)
	barrier := NewSequenceBarrier(seq, NewBlockingWaitStrategy())

	done := make(chan error, 1)
	go func() {
		_, err := barrier.WaitFor(5)
		done <- err
	}()

	barrier.Alert()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errorx.ErrShutdown, "expect a parked waiter to observe the alert")
	case <-time.After(3 * time.Second):
		t.Fatal("waiter did not wake up on alert")
	}

	_, err := barrier.WaitFor(0)
	assert.ErrorIs(t, err, errorx.ErrShutdown, "expect the barrier to stay terminal until rearmed")

	barrier.ClearAlert()
	avail, err := barrier.WaitFor(0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, avail, "expect ClearAlert to rearm the barrier")
}

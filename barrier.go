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

	"github.com/panjf2000/gring/pkg/errors"
)

// SequenceBarrier gates a consumer on the producer cursor and on any number
// of upstream consumer sequences: its available point is the minimum across
// all of them. With no dependents it degenerates to cursor-only gating.
type SequenceBarrier struct {
	sequencer  Sequencer
	cursor     *Sequence
	dependents []*Sequence
	strategy   WaitStrategy
	alerted    int32
}

// NewSequenceBarrier instantiates a barrier over the given sequencer,
// waiting with the given strategy and additionally gated on dependents.
func NewSequenceBarrier(sequencer Sequencer, strategy WaitStrategy, dependents ...*Sequence) *SequenceBarrier {
	return &SequenceBarrier{
		sequencer:  sequencer,
		cursor:     sequencer.Cursor(),
		dependents: dependents,
		strategy:   strategy,
	}
}

func (b *SequenceBarrier) available() int64 {
	return minimumSequence(b.dependents, b.cursor.Get())
}

// WaitFor blocks until the given sequence is available and returns the
// highest one that is, which may exceed seq: one wake-up can hand the caller
// a whole batch. The caller must consume the entire range [seq, returned]
// before waiting again.
//
// After Alert it returns errors.ErrShutdown; that is the only non-value
// outcome and marks graceful termination, not a fault.
func (b *SequenceBarrier) WaitFor(seq int64) (int64, error) {
	if b.Alerted() {
		return InitialSequence, errors.ErrShutdown
	}

	avail, err := b.strategy.WaitFor(seq, b.available, b.Alerted)
	if err != nil {
		return avail, err
	}

	// With concurrent producers the cursor tracks claims, not completions;
	// cut the batch back to the contiguously published prefix.
	return b.sequencer.HighestPublished(seq, avail), nil
}

// Signal wakes any goroutine parked on this barrier's wait strategy. Spin
// strategies make it a no-op.
func (b *SequenceBarrier) Signal() {
	b.strategy.Signal()
}

// Alert puts the barrier into its terminal state: every present and future
// WaitFor returns errors.ErrShutdown. In-flight batches are unaffected,
// processors finish them before consulting the barrier again.
func (b *SequenceBarrier) Alert() {
	atomic.StoreInt32(&b.alerted, 1)
	b.strategy.Signal()
}

// ClearAlert rearms the barrier after an Alert.
func (b *SequenceBarrier) ClearAlert() {
	atomic.StoreInt32(&b.alerted, 0)
}

// Alerted reports whether Alert has been called.
func (b *SequenceBarrier) Alerted() bool {
	return atomic.LoadInt32(&b.alerted) == 1
}

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
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/panjf2000/gring/pkg/errors"
	gmath "github.com/panjf2000/gring/pkg/math"
)

// Sequencer drives the producer side of the ring: claiming sequences,
// waiting out backpressure and making written slots visible to consumers.
type Sequencer interface {
	// Next claims the next n sequences (n >= 1) and returns the highest one,
	// blocking while the claim would wrap onto slots the gating sequences
	// have not passed yet. Backpressure is a bounded wait, never an error.
	Next(n int64) int64
	// TryNext is the non-blocking variant of Next; it returns
	// errors.ErrRingFull instead of waiting.
	TryNext(n int64) (int64, error)
	// Publish makes the claimed range [lo, hi] visible to consumers and
	// wakes any parked waiters.
	Publish(lo, hi int64)
	// Cursor exposes the sequence consumers gate on. For a single producer it
	// holds the highest published sequence; for multiple producers it holds
	// the highest claimed one and HighestPublished resolves the difference.
	Cursor() *Sequence
	// HighestPublished returns the highest sequence in [lo, hi] such that
	// every sequence up to it has been published, or lo-1 when none has.
	HighestPublished(lo, hi int64) int64
	// Capacity returns the number of slots this sequencer coordinates.
	Capacity() int64
	// AddGating registers consumer sequences the producer must not lap.
	// It must be called before publishing starts.
	AddGating(gates ...*Sequence)
}

// SingleProducerSequencer is the contention-free variant: exactly one
// goroutine claims and publishes, so the claim is a plain local increment and
// publication a single release-store of the cursor.
type SingleProducerSequencer struct {
	cursor   *Sequence
	strategy WaitStrategy
	gating   []*Sequence
	capacity int64

	// The fields below belong to the single publishing goroutine.
	_          cpu.CacheLinePad
	next       int64
	cachedGate int64
	_          cpu.CacheLinePad
}

// NewSingleProducerSequencer instantiates a SingleProducerSequencer over a
// ring of the given power-of-two capacity.
func NewSingleProducerSequencer(capacity int64, strategy WaitStrategy) (*SingleProducerSequencer, error) {
	if !gmath.IsPowerOfTwo(capacity) {
		return nil, errors.ErrInvalidRingCapacity
	}
	return &SingleProducerSequencer{
		cursor:     NewSequence(InitialSequence),
		strategy:   strategy,
		capacity:   capacity,
		next:       InitialSequence,
		cachedGate: InitialSequence,
	}, nil
}

// Next implements Sequencer.
func (s *SingleProducerSequencer) Next(n int64) int64 {
	next := s.next + n
	wrap := next - s.capacity

	// The cached gate avoids a cross-core read of every gating sequence per
	// claim; it is only refreshed once the claim looks like it would lap.
	if wrap > s.cachedGate || s.cachedGate > s.next {
		for spin := int64(0); ; spin++ {
			gate := minimumSequence(s.gating, s.next)
			s.cachedGate = gate
			if wrap <= gate {
				break
			}
			if spin&spinMask == spinMask {
				runtime.Gosched()
			}
		}
	}

	s.next = next
	return next
}

// TryNext implements Sequencer.
func (s *SingleProducerSequencer) TryNext(n int64) (int64, error) {
	next := s.next + n
	wrap := next - s.capacity

	if wrap > s.cachedGate || s.cachedGate > s.next {
		gate := minimumSequence(s.gating, s.next)
		s.cachedGate = gate
		if wrap > gate {
			return InitialSequence, errors.ErrRingFull
		}
	}

	s.next = next
	return next, nil
}

// Publish implements Sequencer. Only hi matters for a single producer, the
// whole range below it is published by definition.
func (s *SingleProducerSequencer) Publish(lo, hi int64) {
	if lo > hi {
		panic(errors.ErrInvalidPublishRange)
	}
	s.cursor.Set(hi)
	s.strategy.Signal()
}

// Cursor implements Sequencer.
func (s *SingleProducerSequencer) Cursor() *Sequence { return s.cursor }

// HighestPublished implements Sequencer. A single producer publishes in
// order, so anything at or below the cursor is contiguous.
func (s *SingleProducerSequencer) HighestPublished(_, hi int64) int64 { return hi }

// Capacity implements Sequencer.
func (s *SingleProducerSequencer) Capacity() int64 { return s.capacity }

// AddGating implements Sequencer.
func (s *SingleProducerSequencer) AddGating(gates ...*Sequence) {
	s.gating = append(s.gating, gates...)
}

// MultiProducerSequencer lets any number of goroutines claim concurrently
// through a CAS loop on the shared cursor. Claims may complete out of order,
// so publication stamps each slot with its lap number and consumers scan for
// the highest contiguously published sequence, never observing a gap.
type MultiProducerSequencer struct {
	cursor      *Sequence // highest claimed
	gatingCache *Sequence
	strategy    WaitStrategy
	gating      []*Sequence
	capacity    int64
	mask        int64
	shift       uint8
	published   []int32
}

// NewMultiProducerSequencer instantiates a MultiProducerSequencer over a ring
// of the given power-of-two capacity.
func NewMultiProducerSequencer(capacity int64, strategy WaitStrategy) (*MultiProducerSequencer, error) {
	if !gmath.IsPowerOfTwo(capacity) {
		return nil, errors.ErrInvalidRingCapacity
	}
	published := make([]int32, capacity)
	for i := range published {
		published[i] = int32(InitialSequence)
	}
	return &MultiProducerSequencer{
		cursor:      NewSequence(InitialSequence),
		gatingCache: NewSequence(InitialSequence),
		strategy:    strategy,
		capacity:    capacity,
		mask:        capacity - 1,
		shift:       gmath.Log2(capacity),
		published:   published,
	}, nil
}

// Next implements Sequencer.
func (s *MultiProducerSequencer) Next(n int64) int64 {
	for spin := int64(0); ; spin++ {
		current := s.cursor.Get()
		next := current + n
		wrap := next - s.capacity

		if cached := s.gatingCache.Get(); wrap > cached || cached > current {
			gate := minimumSequence(s.gating, current)
			s.gatingCache.Set(gate)
			if wrap > gate {
				if spin&spinMask == spinMask {
					runtime.Gosched()
				}
				continue
			}
		}

		if s.cursor.CompareAndSet(current, next) {
			return next
		}
	}
}

// TryNext implements Sequencer.
func (s *MultiProducerSequencer) TryNext(n int64) (int64, error) {
	for {
		current := s.cursor.Get()
		next := current + n
		wrap := next - s.capacity

		if wrap > minimumSequence(s.gating, current) {
			return InitialSequence, errors.ErrRingFull
		}

		if s.cursor.CompareAndSet(current, next) {
			return next, nil
		}
	}
}

// Publish implements Sequencer. Stamping top-down keeps one producer's batch
// together from the reader's point of view: the scan in HighestPublished
// cannot pass lo until hi is already stamped.
func (s *MultiProducerSequencer) Publish(lo, hi int64) {
	if lo > hi {
		panic(errors.ErrInvalidPublishRange)
	}
	for seq := hi; seq >= lo; seq-- {
		atomic.StoreInt32(&s.published[seq&s.mask], int32(seq>>s.shift))
	}
	s.strategy.Signal()
}

// Cursor implements Sequencer.
func (s *MultiProducerSequencer) Cursor() *Sequence { return s.cursor }

// HighestPublished implements Sequencer.
func (s *MultiProducerSequencer) HighestPublished(lo, hi int64) int64 {
	for seq := lo; seq <= hi; seq++ {
		if atomic.LoadInt32(&s.published[seq&s.mask]) != int32(seq>>s.shift) {
			return seq - 1
		}
	}
	return hi
}

// Capacity implements Sequencer.
func (s *MultiProducerSequencer) Capacity() int64 { return s.capacity }

// AddGating implements Sequencer.
func (s *MultiProducerSequencer) AddGating(gates ...*Sequence) {
	s.gating = append(s.gating, gates...)
}

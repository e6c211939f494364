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

// EventHandler is the read-only consumer capability: it receives a copy of
// the event and must not assume any access to the slot itself. Any number of
// read-only processors may fan out over the same published slots
// concurrently.
//
// endOfBatch is true exactly once per barrier wake-up, on the last event of
// the drained batch; use it to defer expensive per-batch work like flushes.
type EventHandler[T any] interface {
	OnEvent(event T, seq int64, endOfBatch bool)
}

// MutatingEventHandler is the exclusive-write consumer capability: it
// receives a reference into the ring and may rewrite the slot in place. At
// most one processor stage may hold this capability for a given slot at a
// time, and every consumer of the mutated result must be sequenced after the
// stage through a barrier dependency on its cursor.
type MutatingEventHandler[T any] interface {
	OnEvent(event *T, seq int64, endOfBatch bool)
}

// EventHandlerFunc adapts a plain function to an EventHandler.
type EventHandlerFunc[T any] func(event T, seq int64, endOfBatch bool)

// OnEvent implements EventHandler.
func (f EventHandlerFunc[T]) OnEvent(event T, seq int64, endOfBatch bool) { f(event, seq, endOfBatch) }

// MutatingEventHandlerFunc adapts a plain function to a MutatingEventHandler.
type MutatingEventHandlerFunc[T any] func(event *T, seq int64, endOfBatch bool)

// OnEvent implements MutatingEventHandler.
func (f MutatingEventHandlerFunc[T]) OnEvent(event *T, seq int64, endOfBatch bool) {
	f(event, seq, endOfBatch)
}

// Runnable is the type-erased handle of a bound processor, letting
// differently-typed processors be spawned uniformly.
type Runnable interface {
	// Run executes the processor loop until its barrier is alerted.
	Run()
}

// Processor is a not-yet-running consumer definition: one private cursor and
// exactly one handler capability, read-only or mutating, never both.
// Bind turns it into a Runnable and consumes the definition.
type Processor[T any] struct {
	cursor  *Sequence
	handler EventHandler[T]
	mutator MutatingEventHandler[T]
	bound   int32
}

// NewProcessor instantiates a Processor around a read-only handler.
func NewProcessor[T any](h EventHandler[T]) *Processor[T] {
	return &Processor[T]{cursor: NewSequence(InitialSequence), handler: h}
}

// NewMutatingProcessor instantiates a Processor around a mutating handler.
func NewMutatingProcessor[T any](h MutatingEventHandler[T]) *Processor[T] {
	return &Processor[T]{cursor: NewSequence(InitialSequence), mutator: h}
}

// Cursor exposes this processor's progress sequence, read-only from the
// outside, for wiring it into downstream barriers or producer gating.
func (p *Processor[T]) Cursor() *Sequence {
	return p.cursor
}

// Bind ties the definition to its barrier and data provider, returning the
// single-use Runnable that executes the consumer loop. The definition is
// consumed: a second Bind returns errors.ErrProcessorBound.
func (p *Processor[T]) Bind(barrier *SequenceBarrier, provider DataProvider[T]) (Runnable, error) {
	if p.handler == nil && p.mutator == nil {
		return nil, errors.ErrMissingEventHandler
	}
	if !atomic.CompareAndSwapInt32(&p.bound, 0, 1) {
		return nil, errors.ErrProcessorBound
	}
	return &eventProcessor[T]{
		cursor:   p.cursor,
		barrier:  barrier,
		provider: provider,
		handler:  p.handler,
		mutator:  p.mutator,
	}, nil
}

type eventProcessor[T any] struct {
	cursor   *Sequence
	barrier  *SequenceBarrier
	provider DataProvider[T]
	handler  EventHandler[T]
	mutator  MutatingEventHandler[T]
}

// Run drains batches until the barrier reports shutdown. Every sequence is
// handed to the handler exactly once, in strictly increasing order, and an
// in-flight batch is always finished before the shutdown check is consulted
// again.
func (ep *eventProcessor[T]) Run() {
	next := ep.cursor.Get() + 1
	for {
		avail, err := ep.barrier.WaitFor(next)
		if err != nil {
			return
		}

		for ; next <= avail; next++ {
			slot := ep.provider.Get(next)
			if ep.mutator != nil {
				ep.mutator.OnEvent(slot, next, next == avail)
			} else {
				ep.handler.OnEvent(*slot, next, next == avail)
			}
		}

		// Republish progress, then wake whoever gates on it: downstream
		// barriers and the producer's backpressure check.
		ep.cursor.Set(avail)
		ep.barrier.Signal()
	}
}

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
	"sync"
	"sync/atomic"

	"github.com/panjf2000/gring/pkg/errors"
	"github.com/panjf2000/gring/pkg/logging"
	gmath "github.com/panjf2000/gring/pkg/math"
	"github.com/panjf2000/gring/pkg/pool/goroutine"
)

const (
	disruptorIdle int32 = iota
	disruptorRunning
	disruptorStopped
)

// Disruptor assembles the ring, the sequencer and a chain of consumer groups
// into a runnable pipeline. Groups are daisy-chained: every group's barrier
// depends on the cursors of the previous group, the first group depends on
// the producer cursor alone and the last group gates the producer's
// backpressure check.
type Disruptor[T any] struct {
	rb        *RingBuffer[T]
	sequencer Sequencer
	strategy  WaitStrategy
	groups    [][]*Processor[T]
	barriers  []*SequenceBarrier
	cursors   []*Sequence
	pool      *goroutine.Pool
	wg        sync.WaitGroup
	state     int32
	logger    logging.Logger
}

// NewDisruptor instantiates a disruptor over a ring of the given capacity,
// rounding it up to the next power of two when necessary.
func NewDisruptor[T any](capacity int64, opts ...Option) (*Disruptor[T], error) {
	options := loadOptions(opts...)

	logger := options.Logger
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	if !gmath.IsPowerOfTwo(capacity) {
		adjusted := gmath.CeilToPowerOfTwo(capacity)
		logger.Warnf("gring: ring capacity %d is not a power of two, rounding up to %d", capacity, adjusted)
		capacity = adjusted
	}

	strategy := options.WaitStrategy
	if strategy == nil {
		strategy = NewBlockingWaitStrategy()
	}

	var (
		sequencer Sequencer
		err       error
	)
	if options.MultiProducer {
		sequencer, err = NewMultiProducerSequencer(capacity, strategy)
	} else {
		sequencer, err = NewSingleProducerSequencer(capacity, strategy)
	}
	if err != nil {
		return nil, err
	}

	rb, err := NewRingBuffer[T](capacity)
	if err != nil {
		return nil, err
	}

	return &Disruptor[T]{
		rb:        rb,
		sequencer: sequencer,
		strategy:  strategy,
		logger:    logger,
	}, nil
}

// Handle appends a group of read-only handlers. Handlers within one group
// fan out: each runs on its own processor over the same published slots.
func (d *Disruptor[T]) Handle(handlers ...EventHandler[T]) *Disruptor[T] {
	group := make([]*Processor[T], 0, len(handlers))
	for _, h := range handlers {
		group = append(group, NewProcessor[T](h))
	}
	d.groups = append(d.groups, group)
	return d
}

// HandleMutating appends a stage holding the exclusive-write capability.
// A mutating stage is always a group of one, multiple in-place writers for
// the same slot would alias each other.
func (d *Disruptor[T]) HandleMutating(h MutatingEventHandler[T]) *Disruptor[T] {
	d.groups = append(d.groups, []*Processor[T]{NewMutatingProcessor[T](h)})
	return d
}

// RingBuffer exposes the backing ring, e.g. for pre-filling slots before the
// pipeline starts.
func (d *Disruptor[T]) RingBuffer() *RingBuffer[T] {
	return d.rb
}

// Sequencer exposes the producer-side claim/publish protocol for callers
// that need more control than Publish offers.
func (d *Disruptor[T]) Sequencer() Sequencer {
	return d.sequencer
}

// Start wires the declared consumer topology and spawns one goroutine per
// processor on the worker pool. It may be called once.
func (d *Disruptor[T]) Start() error {
	if len(d.groups) == 0 {
		return errors.ErrMissingEventHandler
	}
	if !atomic.CompareAndSwapInt32(&d.state, disruptorIdle, disruptorRunning) {
		return errors.ErrDisruptorStarted
	}

	var (
		runnables []Runnable
		deps      []*Sequence
	)
	for _, group := range d.groups {
		barrier := NewSequenceBarrier(d.sequencer, d.strategy, deps...)
		d.barriers = append(d.barriers, barrier)
		deps = nil
		for _, p := range group {
			task, err := p.Bind(barrier, d.rb)
			if err != nil {
				return err
			}
			runnables = append(runnables, task)
			deps = append(deps, p.Cursor())
			d.cursors = append(d.cursors, p.Cursor())
		}
	}
	// The slowest member of the final group is what the producer must not lap.
	d.sequencer.AddGating(deps...)

	d.pool = goroutine.Default()
	for _, task := range runnables {
		task := task
		d.wg.Add(1)
		if err := d.pool.Submit(func() {
			defer d.wg.Done()
			task.Run()
		}); err != nil {
			d.wg.Done()
			return err
		}
	}

	d.logger.Infof("gring: started %d event processors in %d groups over a ring of %d slots",
		len(runnables), len(d.groups), d.rb.BufferSize())
	return nil
}

// Publish claims the next slot, lets fn fill it in and makes it visible to
// consumers. It blocks under backpressure until the slowest gating consumer
// frees a slot; running out of room is an expected bounded wait, not an
// error. Publishing concurrently from several goroutines requires the
// MultiProducer option.
func (d *Disruptor[T]) Publish(fn func(*T)) {
	seq := d.sequencer.Next(1)
	fn(d.rb.Get(seq))
	d.sequencer.Publish(seq, seq)
}

// TryPublish is the non-blocking variant of Publish, returning
// errors.ErrRingFull when the claim would lap the slowest consumer.
func (d *Disruptor[T]) TryPublish(fn func(*T)) error {
	seq, err := d.sequencer.TryNext(1)
	if err != nil {
		return err
	}
	fn(d.rb.Get(seq))
	d.sequencer.Publish(seq, seq)
	return nil
}

// PublishBatch claims n contiguous slots at once, invokes fn for each with
// its sequence, then publishes the whole block with a single cursor advance.
func (d *Disruptor[T]) PublishBatch(n int64, fn func(event *T, seq int64)) {
	hi := d.sequencer.Next(n)
	lo := hi - n + 1
	for seq := lo; seq <= hi; seq++ {
		fn(d.rb.Get(seq), seq)
	}
	d.sequencer.Publish(lo, hi)
}

// Stop drains and terminates the pipeline: it waits for every processor to
// catch up with what has been published, alerts the barriers and joins the
// processor goroutines. Publishers must have quiesced before Stop is called.
func (d *Disruptor[T]) Stop() error {
	if !atomic.CompareAndSwapInt32(&d.state, disruptorRunning, disruptorStopped) {
		return errors.ErrDisruptorStopped
	}

	published := d.sequencer.Cursor().Get()
	for minimumSequence(d.cursors, published) < published {
		runtime.Gosched()
	}

	for _, b := range d.barriers {
		b.Alert()
	}
	d.wg.Wait()
	d.pool.Release()

	d.logger.Infof("gring: stopped, %d sequences published and drained", published+1)
	return nil
}

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

	"github.com/panjf2000/gring/pkg/errors"
)

// spinMask throttles runtime.Gosched() in hot re-poll loops, yielding once
// every spinMask+1 iterations.
const spinMask = 1<<14 - 1

// WaitStrategy is the pluggable policy a goroutine applies while it waits for
// a sequence to become available.
//
// WaitFor blocks until available() >= seq and returns the last observed
// available value, which may exceed seq. When alerted() turns true before
// that happens, it gives up and returns errors.ErrShutdown. The available
// function must be safe to call repeatedly from the waiting goroutine.
//
// Signal wakes up goroutines parked inside WaitFor; it is a no-op for the
// strategies that never park.
type WaitStrategy interface {
	WaitFor(seq int64, available func() int64, alerted func() bool) (int64, error)
	Signal()
}

// BusySpinWaitStrategy re-polls in a tight loop. It delivers the lowest
// wake-up latency at the price of burning a CPU core per waiter, only
// yielding to the scheduler occasionally to stay preemptible.
type BusySpinWaitStrategy struct{}

// WaitFor implements WaitStrategy.
func (BusySpinWaitStrategy) WaitFor(seq int64, available func() int64, alerted func() bool) (int64, error) {
	for spin := int64(0); ; spin++ {
		if avail := available(); avail >= seq {
			return avail, nil
		}
		if alerted() {
			return InitialSequence, errors.ErrShutdown
		}
		if spin&spinMask == spinMask {
			runtime.Gosched()
		}
	}
}

// Signal implements WaitStrategy.
func (BusySpinWaitStrategy) Signal() {}

// yieldSpinTries is how many tight re-polls YieldingWaitStrategy attempts
// before it starts yielding the thread on every miss.
const yieldSpinTries = 100

// YieldingWaitStrategy spins for a bounded number of attempts and then hands
// the processor back to the Go scheduler between re-polls. A reasonable
// middle ground between latency and CPU cost.
type YieldingWaitStrategy struct{}

// WaitFor implements WaitStrategy.
func (YieldingWaitStrategy) WaitFor(seq int64, available func() int64, alerted func() bool) (int64, error) {
	tries := yieldSpinTries
	for {
		if avail := available(); avail >= seq {
			return avail, nil
		}
		if alerted() {
			return InitialSequence, errors.ErrShutdown
		}
		if tries > 0 {
			tries--
		} else {
			runtime.Gosched()
		}
	}
}

// Signal implements WaitStrategy.
func (YieldingWaitStrategy) Signal() {}

// BlockingWaitStrategy parks waiters on a condition variable until progress
// is signalled. Lowest CPU cost, highest wake-up latency; the mutex below is
// the only lock in the pipeline and is never touched by spin-based setups.
type BlockingWaitStrategy struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewBlockingWaitStrategy instantiates a BlockingWaitStrategy.
func NewBlockingWaitStrategy() *BlockingWaitStrategy {
	ws := new(BlockingWaitStrategy)
	ws.cond = sync.NewCond(&ws.mu)
	return ws
}

// WaitFor implements WaitStrategy.
func (ws *BlockingWaitStrategy) WaitFor(seq int64, available func() int64, alerted func() bool) (int64, error) {
	ws.mu.Lock()
	for available() < seq {
		if alerted() {
			ws.mu.Unlock()
			return InitialSequence, errors.ErrShutdown
		}
		// Publishers broadcast while holding the same mutex, so re-checking
		// under the lock before parking cannot miss a wake-up.
		ws.cond.Wait()
	}
	ws.mu.Unlock()
	return available(), nil
}

// Signal implements WaitStrategy, waking every goroutine parked in WaitFor.
func (ws *BlockingWaitStrategy) Signal() {
	ws.mu.Lock()
	ws.cond.Broadcast()
	ws.mu.Unlock()
}

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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorx "github.com/panjf2000/gring/pkg/errors"
)

type invocation struct {
	value      int
	seq        int64
	endOfBatch bool
}

// recordingHandler collects every invocation; the mutex only serializes the
// recording goroutine against the asserting one, never two processors.
type recordingHandler struct {
	mu    sync.Mutex
	calls []invocation
}

func (h *recordingHandler) OnEvent(event int, seq int64, endOfBatch bool) {
	h.mu.Lock()
	h.calls = append(h.calls, invocation{value: event, seq: seq, endOfBatch: endOfBatch})
	h.mu.Unlock()
}

func (h *recordingHandler) snapshot() []invocation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]invocation(nil), h.calls...)
}

func waitForSequence(tb testing.TB, s *Sequence, v int64) {
	tb.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for s.Get() < v {
		if time.Now().After(deadline) {
			tb.Fatalf("sequence stuck at %d, want %d", s.Get(), v)
		}
		time.Sleep(time.Millisecond)
	}
}

// Three published elements, consumer cursor preset to 0: the first wait must
// drain exactly sequences 1 and 2 as one batch.
func TestEventProcessorDrainsBatch(t *testing.T) {
	seq := publishedSequencer(t, 4, 2)
	rb, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	for s := int64(0); s <= 2; s++ {
		*rb.Get(s) = int(10 + s)
	}

	handler := new(recordingHandler)
	p := NewProcessor[int](handler)
	p.Cursor().Set(0)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{})
	task, err := p.Bind(barrier, rb)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		task.Run()
	}()

	waitForSequence(t, p.Cursor(), 2)
	barrier.Alert()
	wg.Wait()

	calls := handler.snapshot()
	require.Len(t, calls, 2, "expect the handler to run exactly twice")
	assert.Equal(t, invocation{value: 11, seq: 1, endOfBatch: false}, calls[0])
	assert.Equal(t, invocation{value: 12, seq: 2, endOfBatch: true}, calls[1])
	assert.EqualValues(t, 2, p.Cursor().Get(), "expect the processor cursor to land on the last drained sequence")
}

func TestEventProcessorSingleEndOfBatch(t *testing.T) {
	seq := publishedSequencer(t, 16, 9)
	rb, err := NewRingBuffer[int](16)
	require.NoError(t, err)

	handler := new(recordingHandler)
	p := NewProcessor[int](handler)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{})
	task, err := p.Bind(barrier, rb)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		task.Run()
	}()

	waitForSequence(t, p.Cursor(), 9)
	barrier.Alert()
	wg.Wait()

	calls := handler.snapshot()
	require.Len(t, calls, 10)
	for i, call := range calls {
		assert.EqualValuesf(t, i, call.seq, "expect in-order delivery, got seq %d at position %d", call.seq, i)
	}
	ends := 0
	for _, call := range calls {
		if call.endOfBatch {
			ends++
			assert.EqualValues(t, 9, call.seq, "expect endOfBatch only on the last sequence of the batch")
		}
	}
	assert.Equal(t, 1, ends, "expect exactly one endOfBatch for a range drained in one wait")
}

func TestEventProcessorIdempotentRestart(t *testing.T) {
	seq := publishedSequencer(t, 4, 2)
	rb, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	for s := int64(0); s <= 2; s++ {
		*rb.Get(s) = int(20 + s)
	}

	handler := new(recordingHandler)
	p := NewProcessor[int](handler)
	p.Cursor().Set(0)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{})
	task, err := p.Bind(barrier, rb)
	require.NoError(t, err)

	runOnce := func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.Run()
		}()
		waitForSequence(t, p.Cursor(), 2)
		barrier.Alert()
		wg.Wait()
	}

	runOnce()
	first := handler.snapshot()

	// Rewind to the committed cursor and replay the same range: a
	// deterministic handler must see the identical invocation stream.
	barrier.ClearAlert()
	p.Cursor().Set(0)
	runOnce()
	second := handler.snapshot()[len(first):]

	assert.Equal(t, first, second, "expect a replay over the same range to be indistinguishable from the first run")
}

func TestProcessorBindOnce(t *testing.T) {
	seq := publishedSequencer(t, 4, 0)
	rb, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{})

	p := NewProcessor[int](new(recordingHandler))
	_, err = p.Bind(barrier, rb)
	require.NoError(t, err)
	_, err = p.Bind(barrier, rb)
	assert.ErrorIs(t, err, errorx.ErrProcessorBound, "expect a processor definition to be consumed by Bind")
}

func TestProcessorWithoutHandler(t *testing.T) {
	seq := publishedSequencer(t, 4, 0)
	rb, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	barrier := NewSequenceBarrier(seq, YieldingWaitStrategy{})

	p := NewProcessor[int](nil)
	_, err = p.Bind(barrier, rb)
	assert.ErrorIs(t, err, errorx.ErrMissingEventHandler)
}

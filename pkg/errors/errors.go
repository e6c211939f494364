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

// Package errors defines common errors for gring.
package errors

import "errors"

var (
	// ErrShutdown occurs when a sequence barrier has been alerted. It is the normal
	// way for an event-processor loop to terminate, not a fault.
	ErrShutdown = errors.New("gring: sequence barrier is shut down")
	// ErrInvalidRingCapacity occurs when creating a ring whose capacity is not a power of two.
	ErrInvalidRingCapacity = errors.New("gring: ring capacity must be a positive power of two")
	// ErrRingFull occurs when a non-blocking claim finds no free slot. The blocking
	// claim never returns this error, it waits for the gating sequences instead.
	ErrRingFull = errors.New("gring: ring is full, claim rejected")
	// ErrProcessorBound occurs when binding an event processor more than once.
	ErrProcessorBound = errors.New("gring: event processor is already bound")
	// ErrMissingEventHandler occurs when wiring up a disruptor without any event handler.
	ErrMissingEventHandler = errors.New("gring: no event handler provided")
	// ErrDisruptorStarted occurs when attempting to start a disruptor more than once.
	ErrDisruptorStarted = errors.New("gring: disruptor already started")
	// ErrDisruptorStopped occurs when attempting to stop a disruptor that is not running.
	ErrDisruptorStopped = errors.New("gring: disruptor is not running")
	// ErrInvalidPublishRange occurs when publishing a sequence range whose lower
	// bound exceeds its upper bound.
	ErrInvalidPublishRange = errors.New("gring: invalid publish range")
)

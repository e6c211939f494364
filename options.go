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

import "github.com/panjf2000/gring/pkg/logging"

// Option is a function that will set up option.
type Option func(opts *Options)

func loadOptions(options ...Option) *Options {
	opts := new(Options)
	for _, option := range options {
		option(opts)
	}
	return opts
}

// Options are configurations of a disruptor.
type Options struct {
	// MultiProducer switches the claim protocol from the contention-free
	// single-writer increment to a CAS loop that any number of publishing
	// goroutines may race through. Leave it off unless more than one
	// goroutine publishes, the single-writer path is considerably cheaper.
	MultiProducer bool

	// WaitStrategy is the policy consumers (and through Signal, producers)
	// apply while waiting for sequences to advance. It defaults to
	// BlockingWaitStrategy, the cheapest on CPU; latency-sensitive setups
	// should hand in YieldingWaitStrategy or BusySpinWaitStrategy.
	WaitStrategy WaitStrategy

	// Logger is the customized logger for lifecycle logs, it overrides the
	// default logger in pkg/logging.
	Logger logging.Logger
}

// WithOptions sets up all options.
func WithOptions(options Options) Option {
	return func(opts *Options) {
		*opts = options
	}
}

// WithMultiProducer indicates whether multiple goroutines publish into the ring.
func WithMultiProducer(multi bool) Option {
	return func(opts *Options) {
		opts.MultiProducer = multi
	}
}

// WithWaitStrategy sets up the wait strategy shared across the pipeline.
func WithWaitStrategy(ws WaitStrategy) Option {
	return func(opts *Options) {
		opts.WaitStrategy = ws
	}
}

// WithLogger sets up a customized logger.
func WithLogger(logger logging.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

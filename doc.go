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

/*
gring is a lock-free, high-throughput event-sequencing ring (the disruptor
pattern) for in-process pipelines. Producers claim slots in a fixed
power-of-two ring, write them and publish by advancing an atomic cursor;
independent consumers drain whole batches in strict order, gated by sequence
barriers on the cursor and on any upstream consumers they depend on. The hot
path carries no mutex, coordination happens entirely through padded atomic
sequences, and backpressure is a bounded wait rather than an error.

A minimal pipeline counting events:

	package main

	import (
		"log"

		"github.com/panjf2000/gring"
	)

	type tick struct{ n int }

	func main() {
		var total int
		d, err := gring.NewDisruptor[tick](1024)
		if err != nil {
			log.Fatal(err)
		}
		d.Handle(gring.EventHandlerFunc[tick](func(ev tick, seq int64, endOfBatch bool) {
			total += ev.n
		}))
		if err = d.Start(); err != nil {
			log.Fatal(err)
		}
		for i := 0; i < 1000; i++ {
			d.Publish(func(ev *tick) { ev.n = 1 })
		}
		if err = d.Stop(); err != nil {
			log.Fatal(err)
		}
		log.Printf("consumed %d events", total)
	}

Consumer groups declared with Handle fan out over the same events; chaining
Handle/HandleMutating calls forms a pipeline in which each group only sees
events the previous group has finished with, and the producer never laps the
slowest member of the final group.
*/
package gring

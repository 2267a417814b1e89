// Package mediasched is an adaptive background job scheduler for deferred
// media-processing work: quality-variant generation, preloading, cache
// optimization, thumbnailing, transcoding, metadata extraction, and
// cleanup. It runs heavy work without blocking interactive use of a device
// and without exceeding its memory budget.
//
// The scheduler drains an in-memory priority queue into a bounded set of
// concurrently running handlers. The concurrency cap and queue capacity
// come from a resource profile derived from a device tier and a network
// tier, and shrink at runtime under memory pressure or when the app goes
// to the background. Failed jobs retry with exponential backoff; low-value
// pending work is sacrificial and gets shed first.
//
// # Example
//
//	package main
//
//	import (
//		"context"
//		"encoding/json"
//
//		"github.com/mediakit/mediasched/job"
//		"github.com/mediakit/mediasched/persistence/sqlite"
//		eventsnoop "github.com/mediakit/mediasched/events/noop"
//		"github.com/mediakit/mediasched/profile"
//		"github.com/mediakit/mediasched/registry"
//		"github.com/mediakit/mediasched/scheduler"
//	)
//
//	func main() {
//		reg := registry.NewRegistry()
//		reg.Register(job.TypeThumbnail, makeThumbnail)
//
//		sched := scheduler.NewScheduler(
//			reg,
//			sqlite.NewBridge("mediasched.db"),
//			eventsnoop.NewSink(),
//			scheduler.WithDeviceTier(profile.DeviceHigh),
//		)
//
//		sched.Enqueue(job.TypeThumbnail,
//			json.RawMessage(`{"media_id":"m1"}`), job.PriorityNormal)
//
//		// Start processing and wait for shutdown signals
//		if err := sched.Run(context.Background()); err != nil {
//			panic(err)
//		}
//	}
//
// Handlers receive a context for cooperative cancellation and a progress
// callback; see the registry package. Durable crash/restart recovery is
// provided by the persistence bridges (sqlite, redis); lifecycle events
// can be published to RabbitMQ via the events/rabbitmq sink.
package mediasched

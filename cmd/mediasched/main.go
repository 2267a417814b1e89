package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/mediakit/mediasched/config"
	"github.com/mediakit/mediasched/events"
	eventsnoop "github.com/mediakit/mediasched/events/noop"
	eventsrmq "github.com/mediakit/mediasched/events/rabbitmq"
	"github.com/mediakit/mediasched/job"
	"github.com/mediakit/mediasched/lifecycle"
	"github.com/mediakit/mediasched/persistence"
	persistencenoop "github.com/mediakit/mediasched/persistence/noop"
	persistenceredis "github.com/mediakit/mediasched/persistence/redis"
	persistencesqlite "github.com/mediakit/mediasched/persistence/sqlite"
	"github.com/mediakit/mediasched/registry"
	"github.com/mediakit/mediasched/scheduler"
)

var demo = flag.Bool("demo", false, "enqueue demo jobs on startup")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error:", err)
	}

	reg := registry.NewRegistry()
	registerDemoHandlers(reg)

	sched := scheduler.NewScheduler(
		reg,
		newBridge(cfg),
		newSink(cfg),
		scheduler.WithDeviceTier(cfg.Scheduler.DeviceTier),
		scheduler.WithNetworkTier(cfg.Scheduler.NetworkTier),
		scheduler.WithShutdownTimeout(cfg.Scheduler.ShutdownTimeout),
		scheduler.WithDefaultRetries(cfg.Scheduler.DefaultRetries),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := lifecycle.NewMonitor(sched, probeFunc(sampleMemory), nil, cfg.Monitor.SampleInterval)
	go func() {
		if err := monitor.Start(ctx); err != nil {
			log.Printf("Monitor error: %v", err)
		}
	}()

	if *demo {
		go enqueueDemoJobs(sched)
	}

	if err := sched.Run(ctx); err != nil {
		log.Fatal("Error:", err)
	}
}

func newBridge(cfg *config.Config) persistence.Bridge {
	switch cfg.Persistence.Type {
	case "sqlite":
		return persistencesqlite.NewBridge(cfg.Persistence.Path)
	case "redis":
		opts := persistenceredis.DefaultOptions()
		opts.URI = cfg.Persistence.URI
		opts.Namespace = cfg.Persistence.Namespace
		return persistenceredis.NewBridge(opts)
	default:
		return persistencenoop.NewBridge()
	}
}

func newSink(cfg *config.Config) events.Sink {
	if cfg.Events.Type == "rabbitmq" {
		opts := eventsrmq.DefaultOptions()
		opts.URI = cfg.Events.URI
		opts.Exchange = cfg.Events.Exchange
		return eventsrmq.NewSink(opts)
	}
	return eventsnoop.NewSink()
}

type probeFunc func() (lifecycle.MemorySample, error)

func (f probeFunc) Sample() (lifecycle.MemorySample, error) { return f() }

// sampleMemory is a stand-in probe; real deployments supply a
// platform-specific one.
func sampleMemory() (lifecycle.MemorySample, error) {
	return lifecycle.MemorySample{
		TotalBytes:     8 << 30,
		AvailableBytes: 4 << 30,
	}, nil
}

func registerDemoHandlers(reg *registry.Registry) {
	simulate := func(name string, d time.Duration) registry.HandlerFunc {
		return func(ctx context.Context, payload json.RawMessage, progress func(int)) error {
			for p := 0; p <= 100; p += 25 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d / 5):
				}
				progress(p)
			}
			fmt.Printf("%s done: %s\n", name, payload)
			return nil
		}
	}

	_ = reg.Register(job.TypeThumbnail, simulate("thumbnail", 500*time.Millisecond))
	_ = reg.Register(job.TypeTranscode, simulate("transcode", 3*time.Second))
	_ = reg.Register(job.TypePreload, simulate("preload", time.Second))
	_ = reg.Register(job.TypeCleanup, simulate("cleanup", 200*time.Millisecond))
}

func enqueueDemoJobs(sched *scheduler.Scheduler) {
	types := []job.Type{job.TypeThumbnail, job.TypeTranscode, job.TypePreload, job.TypeCleanup}
	priorities := []job.Priority{job.PriorityIdle, job.PriorityLow, job.PriorityNormal, job.PriorityHigh}

	for i := 0; i < 20; i++ {
		payload, _ := json.Marshal(map[string]int{"item": i})
		id, err := sched.Enqueue(
			types[rand.Intn(len(types))],
			payload,
			priorities[rand.Intn(len(priorities))],
		)
		if err != nil {
			log.Printf("enqueue failed: %v", err)
			return
		}
		fmt.Printf("enqueued %s\n", id)
		time.Sleep(100 * time.Millisecond)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/streamwindow"
)

// Feeds the pipeline from the embedding program instead of a configured
// producer and reads snapshots back over a channel.
func main() {
	cfg := streamwindow.DefaultConfig()
	cfg.Window = streamwindow.WindowConfig{Mode: "count", MaxPoints: 20}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	device := streamwindow.NewExternalProducer("loopback", func(b byte) error {
		fmt.Printf("device received control %02x\n", b)
		return nil
	})
	renderer, snapshots, closeSnapshots := streamwindow.NewChannelRenderer("fanout")
	defer closeSnapshots()

	flow, err := streamwindow.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	rt, err := flow.StreamIN(streamwindow.StreamInProducer(device)).
		StreamOUT(streamwindow.StreamOutRenderer(renderer))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	go fanoutWorker("plot", snapshots)
	go feed(ctx, device)

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func feed(ctx context.Context, device *streamwindow.ExternalProducer) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := device.Notify([]byte(fmt.Sprintf("COUNT:%d", i))); err != nil {
				return
			}
		}
	}
}

func fanoutWorker(name string, snapshots <-chan streamwindow.Snapshot) {
	for snap := range snapshots {
		fmt.Printf("[%s] %d points at %s values=%v\n", name, snap.Len(), snap.CapturedAt.Format(time.RFC3339), snap.Values())
	}
}

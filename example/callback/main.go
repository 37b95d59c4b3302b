package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/streamwindow/pkg/streamwindow"
)

func main() {
	flow, err := streamwindow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(snap streamwindow.Snapshot) error {
		if snap.Len() == 0 {
			fmt.Printf("%s empty window active=%t\n", snap.CapturedAt.Format(time.TimeOnly), snap.ProducerActive)
			return nil
		}
		last := snap.Points[snap.Len()-1]
		first := snap.Points[0]
		fmt.Printf("%s points=%d last=%d oldest=%.2fs active=%t\n",
			snap.CapturedAt.Format(time.TimeOnly),
			snap.Len(),
			last.Value,
			first.RelativeTime,
			snap.ProducerActive,
		)
		return nil
	}

	if err := flow.Run(ctx, streamwindow.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

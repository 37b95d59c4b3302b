package streamwindow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig()

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	prod := NewExternalProducer("stub", nil)
	rend := NewCallbackRenderer("cb", func(Snapshot) error { return nil })

	rt, err := flow.
		StreamIN(
			StreamInProducer(prod),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutRenderer(rend),
			StreamOutObservability(&stubObservability{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.producer != prod {
		t.Fatalf("expected custom producer to be wired")
	}
}

func TestConfLoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "window:\n  mode: count\n  max_points: 3\npoll:\n  interval: 20ms\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flow, err := Conf(path)
	if err != nil {
		t.Fatalf("Conf returned error: %v", err)
	}
	pol, err := flow.Config().Policy()
	if err != nil {
		t.Fatalf("Policy returned error: %v", err)
	}
	if pol.Mode != ByCount || pol.MaxPoints != 3 {
		t.Fatalf("unexpected policy: %+v", pol)
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	flow, err := ConfFromConfig(testConfig())
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop immediately; the runtime should still shut down cleanly.
	cancel()
	if err := flow.StreamIN(
		StreamInProducer(NewExternalProducer("", nil)),
		StreamInObservability(&stubObservability{}),
	).Run(ctx,
		StreamOutCallback("noop", func(Snapshot) error { return nil }),
	); err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestStreamInClockDrivesSnapshots(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	flow, err := ConfFromConfig(testConfig())
	require.NoError(t, err)

	rt, err := flow.StreamIN(
		StreamInProducer(NewExternalProducer("", nil)),
		StreamInClock(func() time.Time { return fixed }),
		StreamInChannel(nil),
	).StreamOUT(
		StreamOutObservability(&stubObservability{}),
		StreamOutRenderer(nil),
	)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	defer rt.Shutdown(context.Background())

	rt.OnNotification([]byte("9"))
	require.Eventually(t, func() bool {
		snap, ok := rt.Latest()
		return ok && snap.Len() == 1 && snap.CapturedAt.Equal(fixed)
	}, time.Second, 5*time.Millisecond)
}

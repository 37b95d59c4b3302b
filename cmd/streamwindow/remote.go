package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghalamif/streamwindow/internal/adapters/httpapi"
	"github.com/ghalamif/streamwindow/internal/adapters/terminal"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

const (
	defaultWatchInterval = 500 * time.Millisecond
	defaultStatsInterval = 2 * time.Second
)

var errNoSnapshot = errors.New("no snapshot yet")

var httpClient = &http.Client{Timeout: 5 * time.Second}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Poll a running instance and draw its window in the terminal",
	Example: `  streamwindow watch --url http://localhost:8080 --interval 250ms`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, _ := cmd.Flags().GetString("url")
		interval, _ := cmd.Flags().GetDuration("interval")
		label, _ := cmd.Flags().GetString("label")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r := terminal.New(cmd.OutOrStdout(), terminal.WithLabel(label))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				snap, err := fetchSnapshot(ctx, base)
				switch {
				case errors.Is(err, errNoSnapshot):
					snap = domain.Snapshot{CapturedAt: time.Now()}
				case err != nil:
					fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
					continue
				}
				if err := r.Render(ctx, snap); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}
		}
	},
}

var controlCmd = &cobra.Command{
	Use:     "control <hex-byte>",
	Short:   "Send one control byte to the producer of a running instance",
	Example: `  streamwindow control 01`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("url")
		b, err := httpapi.ParseControlByte(args[0])
		if err != nil {
			return err
		}
		if err := postControl(cmd.Context(), base, b); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Sent command: %02x\n", b)
		return err
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Poll the Prometheus metrics endpoint and print live counters",
	Example: `  streamwindow stats --url http://localhost:8080 --interval 1s`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, _ := cmd.Flags().GetString("url")
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Streaming metrics from %s/metrics (Ctrl+C to stop)\n", base)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				values, err := scrapeMetrics(ctx, base+"/metrics", statsTargets)
				if err != nil {
					fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatStats(time.Now(), values))
			}
		}
	},
}

var statsTargets = []string{
	ports.MetricPointsIngested,
	ports.MetricDecodeErrors,
	ports.MetricChannelDropped,
	ports.MetricPointsEvicted,
	ports.GaugeWindowPoints,
	ports.GaugeChannelLength,
	ports.GaugeProducerUp,
}

func fetchSnapshot(ctx context.Context, base string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/api/snapshot", nil)
	if err != nil {
		return snap, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return snap, errNoSnapshot
	default:
		return snap, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func postControl(ctx context.Context, base string, b byte) error {
	body, err := json.Marshal(httpapi.ControlRequest{Command: fmt.Sprintf("%02x", b)})
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(base, "/")+"/api/control", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	var e struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return fmt.Errorf("control rejected (%s): %s", resp.Status, e.Error)
	}
	return fmt.Errorf("control rejected: %s", resp.Status)
}

func scrapeMetrics(ctx context.Context, url string, names []string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := make(map[string]float64, len(names))
	for _, n := range names {
		targets[n] = 0
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

func formatStats(now time.Time, v map[string]float64) string {
	return fmt.Sprintf("[%s] ingested=%.0f decode_errors=%.0f dropped=%.0f evicted=%.0f window=%.0f channel=%.0f producer_active=%.0f",
		now.Format(time.RFC3339),
		v[ports.MetricPointsIngested],
		v[ports.MetricDecodeErrors],
		v[ports.MetricChannelDropped],
		v[ports.MetricPointsEvicted],
		v[ports.GaugeWindowPoints],
		v[ports.GaugeChannelLength],
		v[ports.GaugeProducerUp],
	)
}

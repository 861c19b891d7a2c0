// Package seedevents generates a synthetic gym month, submits it to a
// running service and checks the resulting snapshot.
package seedevents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
	pollInterval        = 250 * time.Millisecond
)

// Run executes the complete seeding run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("seed")

	start, end := cfg.Window()
	log.Info(ctx, "starting gympulse seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("tenant", cfg.TenantID),
		logger.Int("leads", cfg.Leads),
		logger.Int("reps", cfg.Reps),
		logger.Time("start", start),
		logger.Time("end", end))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	events, exp := Generate(cfg)
	stats.EventsGenerated = len(events)

	if cfg.OutputFile != "" {
		if err := saveEventsToFile(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	submitEvents(ctx, cfg, events, stats)
	if stats.EventsFailed > 0 {
		return stats, fmt.Errorf("%d events failed to submit", stats.EventsFailed)
	}

	// Storage is asynchronous; poll until the snapshot agrees or time runs out.
	settleCtx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	defer cancel()
	var lastErr error
	for {
		stats.SnapshotAttempts++
		snap, err := fetchSnapshot(settleCtx, client, cfg)
		if err == nil {
			if lastErr = Verify(snap, exp); lastErr == nil {
				break
			}
		} else {
			lastErr = err
		}
		select {
		case <-settleCtx.Done():
			return finish(stats), lastErr
		case <-time.After(pollInterval):
		}
	}

	finish(stats)
	log.Info(ctx, "snapshot verified",
		logger.Int("leads", exp.Leads),
		logger.Int("bookings", exp.Bookings),
		logger.Int("shows", exp.Shows),
		logger.Int("closes", exp.Closes),
		logger.Int("attempts", stats.SnapshotAttempts),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

func finish(stats *Stats) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	return stats
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// saveEventsToFile writes the generated events as a JSON array.
func saveEventsToFile(filename string, events []app.Envelope) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

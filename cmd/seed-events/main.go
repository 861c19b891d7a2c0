package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/gympulse/internal/seedevents"
	"github.com/okian/gympulse/pkg/logger"
)

// Default configuration constants.
const (
	defaultLeads       = 500
	defaultReps        = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	now := time.Now().UTC()
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		tenant    = flag.String("tenant", "demo-gym", "Tenant to seed")
		leads     = flag.Int("leads", defaultLeads, "Number of leads to generate")
		reps      = flag.Int("reps", defaultReps, "Number of sales representatives")
		month     = flag.String("month", now.Format("2006-01"), "Month to fill, as YYYY-MM")
		seed      = flag.Uint64("seed", uint64(now.UnixNano()), "Generator seed")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", defaultSettle, "How long to wait for the snapshot to match")
		secret    = flag.String("jwt-secret", os.Getenv("GYMPULSE_JWT_SECRET"), "Secret used to sign the snapshot request")
		output    = flag.String("output", "", "Write the generated events to this JSON file")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	start, err := time.Parse("2006-01", *month)
	if err != nil {
		os.Stderr.WriteString("invalid -month: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &seedevents.Config{
		BaseURL:       *baseURL,
		TenantID:      *tenant,
		Leads:         *leads,
		Reps:          *reps,
		Start:         start,
		Seed:          *seed,
		Workers:       *workers,
		Timeout:       *timeout,
		SettleTimeout: *settle,
		JWTSecret:     *secret,
		OutputFile:    *output,
		Verbose:       *verbose,
	}

	if _, err := seedevents.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}

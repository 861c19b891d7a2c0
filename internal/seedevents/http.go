package seedevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/gympulse/internal/adapters/http/api"
	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/types"
	"github.com/okian/gympulse/pkg/logger"
)

// Submission retry settings for 429 responses.
const (
	maxAttempts  = 5
	retryBackoff = 100 * time.Millisecond
)

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return c.client.Do(req)
}

func (c *HTTPClient) post(ctx context.Context, path string, header http.Header, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitEvents posts events concurrently using a pool of workers.
func submitEvents(ctx context.Context, cfg *Config, events []app.Envelope, stats *Stats) {
	log := logger.Get().Named("seed")
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	var accepted, duplicate, failed, retried atomic.Int64

	header, err := ownerHeader(cfg, time.Hour)
	if err != nil {
		log.Error(ctx, "cannot authenticate submissions", logger.Error(err))
		stats.EventsFailed = len(events)
		stats.EventsSubmitted = len(events)
		return
	}

	eventChan := make(chan app.Envelope, cfg.Workers*2)
	var wg sync.WaitGroup
	for range max(cfg.Workers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range eventChan {
				result, retries := submitSingleEvent(ctx, client, header, e)
				retried.Add(int64(retries))
				switch result {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "event submitted", logger.String("event_id", e.EventID), logger.Int("result", int(result)))
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, e := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- e:
			}
		}
	}()
	wg.Wait()

	stats.EventsAccepted = int(accepted.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsFailed = int(failed.Load())
	stats.EventsRetried = int(retried.Load())
	stats.EventsSubmitted = stats.EventsAccepted + stats.EventsDuplicate + stats.EventsFailed

	log.Info(ctx, "event submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("retried", stats.EventsRetried),
		logger.Int("failed", stats.EventsFailed))
}

// submitSingleEvent posts one event, backing off while the service reports
// a full queue.
func submitSingleEvent(ctx context.Context, client *HTTPClient, header http.Header, e app.Envelope) (submitResult, int) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := client.post(ctx, "/events", header, e)
		if err != nil {
			return resultFailed, attempt
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusAccepted:
			return resultAccepted, attempt
		case http.StatusOK:
			return resultDuplicate, attempt
		case http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return resultFailed, attempt
			case <-time.After(retryBackoff << attempt):
			}
		default:
			return resultFailed, attempt
		}
	}
	return resultFailed, maxAttempts
}

// ownerHeader identifies the seeder as the tenant's owner: a bearer token
// valid for ttl when a secret is configured, plain identity headers
// otherwise.
func ownerHeader(cfg *Config, ttl time.Duration) (http.Header, error) {
	header := http.Header{}
	owner := access.Caller{TenantID: cfg.TenantID, Role: "owner"}
	if cfg.JWTSecret == "" {
		header.Set(api.HeaderTenantID, owner.TenantID)
		header.Set(api.HeaderRole, owner.Role)
		return header, nil
	}
	token, err := api.SignToken(cfg.JWTSecret, owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	header.Set("Authorization", "Bearer "+token)
	return header, nil
}

// fetchSnapshot reads the owner's snapshot of the generated window.
func fetchSnapshot(ctx context.Context, client *HTTPClient, cfg *Config) (types.Snapshot, error) {
	start, end := cfg.Window()
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	header, err := ownerHeader(cfg, time.Minute)
	if err != nil {
		return types.Snapshot{}, err
	}

	resp, err := client.get(ctx, "/snapshot?"+q.Encode(), header)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return types.Snapshot{}, fmt.Errorf("snapshot request failed with status: %d", resp.StatusCode)
	}
	var snap types.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

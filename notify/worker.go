package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/pkg/buffer"
	"github.com/c360/linewatch/pkg/retry"
)

// popWait bounds how long the delivery loop sits idle before re-checking
// shutdown.
const popWait = 25 * time.Millisecond

// maxRequeues caps how many failed delivery rounds a payload survives in
// requeue mode before it is dropped.
const maxRequeues = 3

// WorkerDeps holds runtime dependencies for the webhook delivery worker.
type WorkerDeps struct {
	Config config.WebhookConfig

	// Queue is the pending-delivery buffer filled by the adapter.
	Queue buffer.Buffer[Payload]

	Metrics *metric.Metrics
	Logger  *slog.Logger
}

// Worker drains the pending queue and POSTs payloads to the webhook endpoint.
// Transport errors and 5xx responses retry with backoff; 4xx responses mean
// the receiver rejected the payload and are never retried.
type Worker struct {
	cfg     config.WebhookConfig
	queue   buffer.Buffer[Payload]
	client  *http.Client
	metrics *metric.Metrics
	logger  *slog.Logger

	retryConfig retry.Config

	shutdown chan struct{}
	done     chan struct{}
	running  atomic.Bool
	mu       sync.Mutex
	wg       sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
}

// NewWorker creates the delivery worker.
func NewWorker(deps WorkerDeps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout(),
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // operator-controlled toggle for self-signed receivers
		},
	}

	return &Worker{
		cfg:   cfg,
		queue: deps.Queue,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.TotalTimeout(),
		},
		metrics: deps.Metrics,
		logger:  logger.With("component", "notify-worker"),
		retryConfig: retry.Config{
			MaxAttempts:  cfg.Retries,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
		},
	}
}

// Initialize validates the delivery target.
func (w *Worker) Initialize() error {
	if !w.cfg.Enabled() {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"notify-worker", "Initialize", "webhook url check")
	}
	if w.queue == nil {
		return errors.WrapInvalid(fmt.Errorf("nil queue"),
			"notify-worker", "Initialize", "queue check")
	}
	return nil
}

// Start launches the delivery loop. Idempotent.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return nil
	}

	w.shutdown = make(chan struct{})
	w.done = make(chan struct{})
	w.running.Store(true)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.done)
		w.loop(ctx)
	}()
	return nil
}

// Stop stops the delivery loop. Pending payloads stay in the queue; delivery
// is best effort and shutdown does not wait for the webhook.
func (w *Worker) Stop(timeout time.Duration) error {
	if !w.running.Load() {
		return nil
	}
	w.running.Store(false)

	w.mu.Lock()
	if w.shutdown != nil {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
	}
	done := w.done
	w.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"notify-worker", "Stop", "graceful shutdown")
	}
}

// Healthy reports whether the loop is running.
func (w *Worker) Healthy() bool {
	return w.running.Load()
}

// Delivered returns the number of successfully delivered payloads.
func (w *Worker) Delivered() int64 {
	return w.delivered.Load()
}

func (w *Worker) loop(ctx context.Context) {
	w.logger.Info("notification worker started", "url", w.cfg.URL, "requeue", w.cfg.Requeue)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		default:
		}

		p, ok := w.queue.Read()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-w.shutdown:
				return
			case <-time.After(popWait):
			}
			continue
		}

		w.deliver(ctx, p)
	}
}

// deliver runs one payload through the retry policy and settles its fate:
// delivered, requeued, or dropped.
func (w *Worker) deliver(ctx context.Context, p Payload) {
	err := retry.Do(ctx, w.retryConfig, func() error {
		return w.post(ctx, p)
	})
	if err == nil {
		w.delivered.Add(1)
		if w.metrics != nil {
			w.metrics.RecordNotificationDelivered()
		}
		return
	}

	if retry.IsNonRetryable(err) {
		// Receiver rejected the payload; retrying the same body cannot help.
		w.failed.Add(1)
		if w.metrics != nil {
			w.metrics.RecordNotificationFailed()
		}
		w.logger.Error("notification rejected by receiver",
			"alarm", p.Event.Key.String(), "error", err)
		return
	}

	p.Attempts++
	if w.cfg.Requeue && p.Attempts < maxRequeues {
		w.logger.Warn("notification delivery failed, requeued",
			"alarm", p.Event.Key.String(), "attempts", p.Attempts, "error", err)
		if qErr := w.queue.Write(p); qErr != nil {
			w.dropFailed(p, qErr)
		}
		return
	}
	w.dropFailed(p, err)
}

func (w *Worker) dropFailed(p Payload, err error) {
	w.failed.Add(1)
	if w.metrics != nil {
		w.metrics.RecordNotificationFailed()
	}
	w.logger.Error("notification delivery failed, dropped",
		"alarm", p.Event.Key.String(), "attempts", p.Attempts, "error", err)
}

// post performs one webhook POST attempt.
func (w *Worker) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err,
			"notify-worker", "post", "payload encoding"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err,
			"notify-worker", "post", "request construction"))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.BearerToken)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "notify-worker", "post", "webhook request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.NonRetryable(errors.WrapInvalid(
			fmt.Errorf("%w: status %d", errors.ErrRejectedByReceiver, resp.StatusCode),
			"notify-worker", "post", "response check"))
	default:
		return errors.WrapTransient(fmt.Errorf("status %d", resp.StatusCode),
			"notify-worker", "post", "response check")
	}
}

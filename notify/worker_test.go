package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/pkg/buffer"
	"github.com/c360/linewatch/pkg/retry"
)

type receiver struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []Payload
	statuses []int
}

// handler replies with the scripted status codes in order, repeating the last
// one once the script runs out.
func (r *receiver) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()

		var p Payload
		_ = json.NewDecoder(req.Body).Decode(&p)
		r.requests = append(r.requests, req.Clone(context.Background()))
		r.bodies = append(r.bodies, p)

		status := http.StatusOK
		if len(r.statuses) > 0 {
			status = r.statuses[0]
			if len(r.statuses) > 1 {
				r.statuses = r.statuses[1:]
			}
		}
		w.WriteHeader(status)
	}
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newWorkerFixture(t *testing.T, url string, requeue bool) (*Worker, buffer.Buffer[Payload]) {
	t.Helper()
	q, err := buffer.NewCircularBuffer[Payload](16,
		buffer.WithOverflowPolicy[Payload](buffer.DropOldest))
	require.NoError(t, err)

	w := NewWorker(WorkerDeps{
		Config: config.WebhookConfig{
			URL:             url,
			BearerToken:     "secret-token",
			VerifyTLS:       true,
			ConnectTimeoutS: 1,
			TotalTimeoutS:   2,
			Retries:         3,
			Requeue:         requeue,
		},
		Queue: q,
	})
	require.NoError(t, w.Initialize())

	// Fast retry ramp for tests.
	w.retryConfig = retry.Config{MaxAttempts: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2}
	return w, q
}

func startWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop(time.Second) })
}

func TestDeliverySuccess(t *testing.T) {
	rec := &receiver{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, q := newWorkerFixture(t, srv.URL, false)
	startWorker(t, w)

	require.NoError(t, q.Write(samplePayload()))

	require.Eventually(t, func() bool { return w.Delivered() == 1 },
		2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "application/json", rec.requests[0].Header.Get("Content-Type"))
	assert.Equal(t, "Bearer secret-token", rec.requests[0].Header.Get("Authorization"))
	assert.Equal(t, "ev-1", rec.bodies[0].Event.ID)
}

func TestServerErrorRetriesThenSucceeds(t *testing.T) {
	rec := &receiver{statuses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusOK}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, q := newWorkerFixture(t, srv.URL, false)
	startWorker(t, w)

	require.NoError(t, q.Write(samplePayload()))

	require.Eventually(t, func() bool { return w.Delivered() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, rec.count())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	rec := &receiver{statuses: []int{http.StatusBadRequest}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, q := newWorkerFixture(t, srv.URL, false)
	startWorker(t, w)

	require.NoError(t, q.Write(samplePayload()))

	require.Eventually(t, func() bool { return w.failed.Load() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.Zero(t, w.Delivered())
}

func TestExhaustedRetriesRequeueThenDrop(t *testing.T) {
	rec := &receiver{statuses: []int{http.StatusInternalServerError}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, q := newWorkerFixture(t, srv.URL, true)
	startWorker(t, w)

	require.NoError(t, q.Write(samplePayload()))

	// Requeue mode retries whole delivery rounds before giving up.
	require.Eventually(t, func() bool { return w.failed.Load() == 1 },
		5*time.Second, 10*time.Millisecond)
	assert.Equal(t, maxRequeues*3, rec.count())
	assert.Zero(t, q.Size())
}

func TestExhaustedRetriesDropWithoutRequeue(t *testing.T) {
	rec := &receiver{statuses: []int{http.StatusInternalServerError}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, q := newWorkerFixture(t, srv.URL, false)
	startWorker(t, w)

	require.NoError(t, q.Write(samplePayload()))

	require.Eventually(t, func() bool { return w.failed.Load() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, rec.count())
}

func TestInitializeRequiresURL(t *testing.T) {
	w := NewWorker(WorkerDeps{Config: config.WebhookConfig{}})
	assert.Error(t, w.Initialize())
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	w, _ := newWorkerFixture(t, "http://127.0.0.1:1/hook", false)
	assert.NoError(t, w.Stop(time.Second))
}

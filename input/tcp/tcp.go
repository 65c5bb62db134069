package tcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/pkg/buffer"
	"github.com/c360/linewatch/pkg/retry"
)

// pollInterval is the per-read deadline so the read loop observes shutdown
// promptly even on a silent connection.
const pollInterval = 500 * time.Millisecond

// Deps holds runtime dependencies for the feed input component.
type Deps struct {
	Config config.TCPClientConfig

	// SpectralLengths declares the expected bin count per spectral channel
	// for decode-time validation.
	SpectralLengths map[string]int

	// Output is the bounded readings queue the worker consumes from.
	Output buffer.Buffer[domain.Measurement]

	Metrics  *metric.Metrics
	Registry *metric.MetricsRegistry
	Logger   *slog.Logger
}

// Input is the TCP NDJSON feed client. One goroutine owns the dial/read loop;
// decoded measurements go out through the bounded readings queue and never
// block the socket.
type Input struct {
	cfg     config.TCPClientConfig
	decoder *Decoder
	output  buffer.Buffer[domain.Measurement]
	metrics *metric.Metrics
	feed    *Metrics
	logger  *slog.Logger

	// errLog throttles decode-error logging so a corrupt stream cannot flood
	// the log. Counters stay exact.
	errLog *rate.Limiter

	shutdown chan struct{}
	done     chan struct{}
	running  atomic.Bool
	mu       sync.Mutex
	wg       sync.WaitGroup
	conn     net.Conn

	connected atomic.Bool
	frames    atomic.Int64
}

// NewInput creates the feed input component.
func NewInput(deps Deps) *Input {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Input{
		cfg:     deps.Config,
		decoder: NewDecoder(deps.SpectralLengths),
		output:  deps.Output,
		metrics: deps.Metrics,
		feed:    newMetrics(deps.Registry),
		logger:  logger.With("component", "tcp-input", "addr", deps.Config.Addr()),
		errLog:  rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Initialize validates configuration and wiring before the loop starts.
func (i *Input) Initialize() error {
	if err := i.cfg.Validate(); err != nil {
		return err
	}
	if i.output == nil {
		return errors.WrapInvalid(fmt.Errorf("nil output queue"),
			"tcp-input", "Initialize", "output check")
	}
	return nil
}

// Start launches the dial/read loop. Idempotent.
func (i *Input) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.running.Load() {
		return nil
	}

	i.shutdown = make(chan struct{})
	i.done = make(chan struct{})
	i.running.Store(true)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer close(i.done)
		i.run(ctx)
	}()
	return nil
}

// Stop closes the connection to unblock the read loop and waits for it to
// exit.
func (i *Input) Stop(timeout time.Duration) error {
	if !i.running.Load() {
		return nil
	}
	i.running.Store(false)

	i.mu.Lock()
	if i.shutdown != nil {
		select {
		case <-i.shutdown:
		default:
			close(i.shutdown)
		}
	}
	if i.conn != nil {
		_ = i.conn.Close()
	}
	done := i.done
	i.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"tcp-input", "Stop", "graceful shutdown")
	}
}

// Healthy reports whether the loop is running and the feed is connected.
func (i *Input) Healthy() bool {
	return i.running.Load() && i.connected.Load()
}

// Frames returns the number of frames decoded so far.
func (i *Input) Frames() int64 {
	return i.frames.Load()
}

// run is the reconnect loop: dial, read until the connection dies, back off,
// repeat until shutdown. A successful connection resets the backoff ramp.
func (i *Input) run(ctx context.Context) {
	backoff := retry.Backoff{
		Initial:    i.cfg.ReconnectBackoff.Init(),
		Max:        i.cfg.ReconnectBackoff.Cap(),
		Multiplier: 2.0,
		Jitter:     0.2,
	}
	firstConnect := true

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.shutdown:
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", i.cfg.Addr(), i.cfg.Timeout())
		if err != nil {
			i.logger.Warn("feed connect failed", "error", err)
			if !i.sleep(ctx, backoff.Next()) {
				return
			}
			continue
		}

		i.mu.Lock()
		i.conn = conn
		i.mu.Unlock()

		i.connected.Store(true)
		if i.metrics != nil {
			i.metrics.RecordFeedStatus(true)
			if !firstConnect {
				i.metrics.RecordFeedReconnect()
			}
		}
		firstConnect = false
		backoff.Reset()
		i.logger.Info("feed connected")

		err = i.readFrames(ctx, conn)

		i.mu.Lock()
		_ = conn.Close()
		i.conn = nil
		i.mu.Unlock()

		i.connected.Store(false)
		if i.metrics != nil {
			i.metrics.RecordFeedStatus(false)
		}

		select {
		case <-ctx.Done():
			return
		case <-i.shutdown:
			return
		default:
		}

		i.logger.Warn("feed connection lost, reconnecting", "error", err)
		if !i.sleep(ctx, backoff.Next()) {
			return
		}
	}
}

// sleep waits for d, returning false if shutdown arrived first.
func (i *Input) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-i.shutdown:
		return false
	case <-time.After(d):
		return true
	}
}

// readFrames reads lines from one connection until it dies. Any partial line
// accumulated when the connection drops is discarded with it.
func (i *Input) readFrames(ctx context.Context, conn net.Conn) error {
	br := bufio.NewReaderSize(conn, 64*1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-i.shutdown:
			return errors.ErrShuttingDown
		default:
		}

		line, err := i.readLine(conn, br)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			continue
		}
		i.handleLine(line)
	}
}

// readLine accumulates one newline-terminated frame, honoring the max line
// length. Oversized frames switch to discard mode until the next newline so
// the stream re-synchronizes. Short read deadlines keep the loop responsive;
// silence longer than the configured timeout counts as a dead connection.
func (i *Input) readLine(conn net.Conn, br *bufio.Reader) ([]byte, error) {
	var line []byte
	discarding := false
	lastData := time.Now()

	for {
		select {
		case <-i.shutdown:
			return nil, errors.ErrShuttingDown
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(pollInterval))
		chunk, err := br.ReadSlice('\n')

		if len(chunk) > 0 {
			lastData = time.Now()
			if i.feed != nil {
				i.feed.bytesReceived.Add(float64(len(chunk)))
			}
			if !discarding {
				line = append(line, chunk...)
				if len(line) > i.cfg.MaxLineBytes {
					discarding = true
					line = nil
					i.countOversized()
				}
			}
		}

		switch {
		case err == nil:
			// Chunk ended at a newline: the frame is complete. A discarded
			// oversized frame ends here too and the next one starts clean.
			if discarding {
				return nil, nil
			}
			if n := len(line); n > 0 && line[n-1] == '\n' {
				line = line[:n-1]
			}
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			return line, nil

		case stderrors.Is(err, bufio.ErrBufferFull):
			// Frame longer than the reader buffer: keep accumulating.
			continue

		case isTimeout(err):
			if time.Since(lastData) > i.cfg.Timeout() {
				return nil, errors.WrapTransient(errors.ErrConnectionTimeout,
					"tcp-input", "readLine", "feed silence check")
			}
			continue

		default:
			// EOF or a socket error: reconnect.
			return nil, errors.WrapTransient(err, "tcp-input", "readLine", "socket read")
		}
	}
}

// handleLine decodes one frame and queues the measurement.
func (i *Input) handleLine(line []byte) {
	m, err := i.decoder.Decode(line)
	if err != nil {
		if i.feed != nil {
			i.feed.decodeErrors.Inc()
		}
		if i.metrics != nil {
			i.metrics.RecordReadingRejected(rejectReason(err))
		}
		if i.errLog.Allow() {
			i.logger.Warn("frame rejected", "reason", rejectReason(err), "error", err)
		}
		return
	}

	i.frames.Add(1)
	if i.feed != nil {
		i.feed.framesReceived.Inc()
		i.feed.lastActivity.Set(float64(time.Now().Unix()))
	}
	if i.metrics != nil {
		i.metrics.RecordReadingReceived(m.SensorName(), wireType(m))
	}
	if synthesized(m) {
		if i.feed != nil {
			i.feed.synthesizedTimestamps.Inc()
		}
	}

	// DropOldest queue: Write only fails if the buffer is closed, which only
	// happens at shutdown.
	if err := i.output.Write(m); err != nil {
		i.logger.Warn("readings queue rejected measurement", "error", err)
	}
}

func wireType(m domain.Measurement) string {
	if _, ok := m.(domain.Spectrum); ok {
		return domain.WireTypeSpectrum
	}
	return domain.WireTypeReading
}

func synthesized(m domain.Measurement) bool {
	switch v := m.(type) {
	case domain.Reading:
		return v.Synthesized
	case domain.Spectrum:
		return v.Synthesized
	default:
		return false
	}
}

func (i *Input) countOversized() {
	if i.feed != nil {
		i.feed.oversizedFrames.Inc()
	}
	if i.metrics != nil {
		i.metrics.RecordReadingRejected("oversized")
	}
	if i.errLog.Allow() {
		i.logger.Warn("oversized frame discarded", "max_line_bytes", i.cfg.MaxLineBytes)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

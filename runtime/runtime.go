// Package runtime assembles the pipeline from configuration and supervises
// its lifecycle: store, bus, criteria, engine, worker, feed input,
// notification pipeline, NATS bridge and API server, started in dependency
// order and stopped in reverse.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/linewatch/alarm"
	"github.com/c360/linewatch/api"
	"github.com/c360/linewatch/bus"
	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/input/tcp"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/notify"
	"github.com/c360/linewatch/pkg/buffer"
	"github.com/c360/linewatch/state"
)

// stopTimeout bounds each component's graceful stop.
const stopTimeout = 2 * time.Second

// Component is the lifecycle every supervised piece of the pipeline
// implements.
type Component interface {
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// healthReporter is implemented by components that can say whether they are
// currently functioning.
type healthReporter interface {
	Healthy() bool
}

type namedComponent struct {
	name string
	c    Component
}

// Supervisor owns the wired pipeline.
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *metric.MetricsRegistry
	store    *state.Store
	bus      *bus.Bus

	// components in start order; Stop walks them backwards.
	components []namedComponent
	detach     []func()
}

// New validates the configuration and wires the whole pipeline. Nothing is
// started; Run does that.
func New(cfg *config.Config, logger *slog.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	store := state.New(state.Deps{
		SpectralLengths: cfg.Sensors.SpectralLengths(),
		HistoryCapacity: cfg.Alarms.EventHistory,
		Metrics:         metrics,
		Logger:          logger,
	})
	eventBus := bus.New(metrics, logger)

	s := &Supervisor{
		cfg:      cfg,
		logger:   logger.With("component", "supervisor"),
		registry: registry,
		store:    store,
		bus:      eventBus,
	}

	readings, err := buffer.NewCircularBuffer[domain.Measurement](
		cfg.Queues.ReadingsCapacity,
		buffer.WithOverflowPolicy[domain.Measurement](buffer.DropOldest),
		buffer.WithDropCallback[domain.Measurement](func(domain.Measurement) {
			metrics.RecordReadingRejected("queue_overflow")
		}),
	)
	if err != nil {
		return nil, errors.WrapFatal(err, "supervisor", "New", "readings queue")
	}

	criteria, err := alarm.BuildRegistry(cfg.Sensors, cfg.Alarms)
	if err != nil {
		return nil, err
	}

	engine := alarm.NewEngine(alarm.EngineDeps{
		Store:        store,
		ValueEps:     cfg.Alarms.ValueEps,
		StaleTimeout: cfg.Alarms.StaleTimeout(),
		Metrics:      metrics,
		Logger:       logger,
	})

	worker := alarm.NewWorker(alarm.WorkerDeps{
		Store:            store,
		Criteria:         criteria,
		Engine:           engine,
		Bus:              eventBus,
		Readings:         readings,
		DrainLimit:       cfg.Alarms.DrainLimit,
		CaptureReference: captureChannels(cfg.Sensors),
		Metrics:          metrics,
		Logger:           logger,
	})
	s.add("alarm-worker", worker)

	feed := tcp.NewInput(tcp.Deps{
		Config:          cfg.Transport.TCPClient,
		SpectralLengths: cfg.Sensors.SpectralLengths(),
		Output:          readings,
		Metrics:         metrics,
		Registry:        registry,
		Logger:          logger,
	})
	s.add("tcp-input", feed)

	if cfg.Notifications.Webhook.Enabled() {
		queue, err := buffer.NewCircularBuffer[notify.Payload](
			cfg.Queues.NotificationsCapacity,
			buffer.WithOverflowPolicy[notify.Payload](buffer.DropOldest),
			buffer.WithDropCallback[notify.Payload](func(notify.Payload) {
				metrics.RecordNotificationDropped()
			}),
		)
		if err != nil {
			return nil, errors.WrapFatal(err, "supervisor", "New", "notification queue")
		}

		adapter := notify.NewAdapter(notify.AdapterDeps{
			Store:   store,
			Queue:   queue,
			Metrics: metrics,
			Logger:  logger,
		})
		s.detach = append(s.detach, adapter.Attach(eventBus))

		s.add("notify-worker", notify.NewWorker(notify.WorkerDeps{
			Config:  cfg.Notifications.Webhook,
			Queue:   queue,
			Metrics: metrics,
			Logger:  logger,
		}))
	}

	if cfg.Bridge.NATS.Enabled() {
		bridge := notify.NewNATSBridge(notify.NATSBridgeDeps{
			Config: cfg.Bridge.NATS,
			Logger: logger,
		})
		s.detach = append(s.detach, bridge.Attach(eventBus))
		s.add("nats-bridge", bridge)
	}

	if cfg.API.Enabled {
		s.add("api-server", api.NewServer(api.Deps{
			Addr:     cfg.API.Addr,
			Store:    store,
			Bus:      eventBus,
			Registry: registry,
			Health:   s.Health,
			Logger:   logger,
		}))
	}

	return s, nil
}

// captureChannels lists the spectral channels whose reference spectrum must
// be captured from the stream because configuration pins no bin.
func captureChannels(sensors config.SensorsConfig) map[string]bool {
	out := make(map[string]bool)
	for _, sc := range sensors.SpectralConfigs {
		if sc.ReferencePeakIndex == nil {
			out[sc.Name] = true
		}
	}
	return out
}

func (s *Supervisor) add(name string, c Component) {
	s.components = append(s.components, namedComponent{name: name, c: c})
}

// Store exposes the shared store, mainly for tests and embedders.
func (s *Supervisor) Store() *state.Store {
	return s.store
}

// Bus exposes the event bus.
func (s *Supervisor) Bus() *bus.Bus {
	return s.bus
}

// Health reports per-component health.
func (s *Supervisor) Health() map[string]bool {
	out := make(map[string]bool, len(s.components))
	for _, nc := range s.components {
		if hr, ok := nc.c.(healthReporter); ok {
			out[nc.name] = hr.Healthy()
		} else {
			out[nc.name] = true
		}
	}
	return out
}

// Run initializes and starts every component, blocks until the context is
// canceled, then stops everything in reverse order.
func (s *Supervisor) Run(ctx context.Context) error {
	for _, nc := range s.components {
		if err := nc.c.Initialize(); err != nil {
			return errors.Wrap(err, "supervisor", "Run", nc.name+" initialization")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	started := 0
	for _, nc := range s.components {
		if err := nc.c.Start(gctx); err != nil {
			s.logger.Error("component failed to start", "name", nc.name, "error", err)
			s.stopStarted(started)
			return errors.Wrap(err, "supervisor", "Run", nc.name+" startup")
		}
		started++
		s.logger.Info("component started", "name", nc.name)
	}

	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	err := g.Wait()
	s.shutdown()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// shutdown detaches bus subscribers, then stops components in reverse start
// order so producers quiesce before their consumers.
func (s *Supervisor) shutdown() {
	s.logger.Info("shutting down")
	s.stopStarted(len(s.components))
	for _, detach := range s.detach {
		detach()
	}
	s.logger.Info("shutdown complete")
}

func (s *Supervisor) stopStarted(n int) {
	for i := n - 1; i >= 0; i-- {
		nc := s.components[i]
		if err := nc.c.Stop(stopTimeout); err != nil {
			s.logger.Warn("component stop failed", "name", nc.name, "error", err)
		} else {
			s.logger.Info("component stopped", "name", nc.name)
		}
	}
}

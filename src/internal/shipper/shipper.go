// FILE: src/internal/shipper/shipper.go
package shipper

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/config"
	"kinlog/src/internal/core"
	"kinlog/src/internal/filter"
	"kinlog/src/internal/format"
	"kinlog/src/internal/transport"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// State of the shipper lifecycle
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ProducerFactory builds the transport on Start
type ProducerFactory func(cfg *config.TransportConfig, subject string, logger *log.Logger) (transport.Producer, error)

// Option adjusts a Shipper at construction
type Option func(*Shipper)

// WithProducer injects a transport; Start will not build one
func WithProducer(p transport.Producer) Option {
	return func(s *Shipper) { s.producer = p }
}

// WithTransport sets the transport configuration used by the factory
func WithTransport(cfg *config.TransportConfig) Option {
	return func(s *Shipper) { s.transportCfg = cfg }
}

// WithFilters adds description pattern filters behind the events-only gate
func WithFilters(cfgs []filter.Config) Option {
	return func(s *Shipper) { s.filterCfgs = cfgs }
}

// WithProducerFactory replaces NewProducer
func WithProducerFactory(f ProducerFactory) Option {
	return func(s *Shipper) { s.factory = f }
}

// WithPartitionKeys replaces the random partition key generator
func WithPartitionKeys(next func() string) Option {
	return func(s *Shipper) { s.partitionKey = next }
}

// Shipper filters, serializes and submits events to the stream
type Shipper struct {
	cfg          config.ShipperConfig
	transportCfg *config.TransportConfig
	filterCfgs   []filter.Config
	factory      ProducerFactory
	partitionKey func() string
	logger       *log.Logger

	// Held shared by Ship, exclusively by Start and Stop
	mu       sync.RWMutex
	state    atomic.Int32
	producer transport.Producer

	filter    *filter.Filter
	formatter *format.JSONFormatter
	status    *statusList
	inflight  *transport.Pending

	// Statistics
	totalShipped     atomic.Uint64
	totalFiltered    atomic.Uint64
	totalAcked       atomic.Uint64
	totalFailed      atomic.Uint64
	totalUnavailable atomic.Uint64
	startTime        time.Time
	lastAck          atomic.Value // time.Time
}

// New creates an uninitialized shipper. cfg is copied. Events without an
// event type are dropped unless cfg.EventsOnly is explicitly false.
func New(cfg config.ShipperConfig, logger *log.Logger, opts ...Option) *Shipper {
	s := &Shipper{
		cfg:          cfg,
		factory:      NewProducer,
		partitionKey: uuid.NewString,
		logger:       logger,
		formatter:    format.NewJSONFormatter(format.Options{}, logger),
		status:       newStatusList(defaultStatusCapacity),
		inflight:     transport.NewPending(),
	}
	s.lastAck.Store(time.Time{})
	for _, opt := range opts {
		opt(s)
	}

	// The events-only switch must work before Start; patterns are checked there
	s.filter, _ = filter.New(cfg.IsEventsOnly(), nil, logger)
	return s
}

// NewFromConfig wires the shipper, transport and filter sections of cfg
func NewFromConfig(cfg *config.Config, logger *log.Logger, opts ...Option) *Shipper {
	var sc config.ShipperConfig
	if cfg.Shipper != nil {
		sc = *cfg.Shipper
	}
	base := []Option{WithTransport(cfg.Transport), WithFilters(cfg.Filters)}
	return New(sc, logger, append(base, opts...)...)
}

// Start validates the configuration and builds the producer. Every
// violation is recorded; on failure the shipper stays uninitialized.
func (s *Shipper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateUninitialized {
		return fmt.Errorf("shipper cannot start from state %s", st)
	}

	var errs []error
	for _, fe := range config.ValidateShipper(&s.cfg) {
		s.report(SeverityError, "Invalid shipper configuration", fmt.Errorf("%w: %w", ErrConfiguration, fe))
		errs = append(errs, fe)
	}

	f, err := filter.New(s.filter.EventsOnly(), s.filterCfgs, s.logger)
	if err != nil {
		s.report(SeverityError, "Invalid filter configuration", fmt.Errorf("%w: %w", ErrConfiguration, err))
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}

	if s.producer == nil {
		p, err := s.factory(s.transportCfg, s.cfg.AppName, s.logger)
		if err != nil {
			s.report(SeverityError, "Failed to create stream producer", fmt.Errorf("%w: %w", ErrConfiguration, err))
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		s.producer = p
	}

	s.filter = f
	s.startTime = time.Now()
	s.state.Store(int32(StateReady))

	s.logger.Info("msg", "Shipper started",
		"component", "shipper",
		"app_name", s.cfg.AppName,
		"environment", s.cfg.Environment,
		"stream", s.cfg.StreamName,
		"region", s.cfg.Region,
		"events_only", f.EventsOnly())
	return nil
}

// Stop drains every outstanding submission, without a timeout, then
// closes the producer. It is a no-op unless the shipper is ready.
func (s *Shipper) Stop() {
	s.mu.Lock()
	if s.State() != StateReady {
		s.mu.Unlock()
		return
	}
	s.state.Store(int32(StateStopped))
	s.mu.Unlock()

	s.producer.Flush()
	s.inflight.Wait()

	if err := s.producer.Close(); err != nil {
		s.logger.Warn("msg", "Error closing stream producer",
			"component", "shipper",
			"error", err)
	}

	s.logger.Info("msg", "Shipper stopped",
		"component", "shipper",
		"total_shipped", s.totalShipped.Load(),
		"total_acked", s.totalAcked.Load(),
		"total_failed", s.totalFailed.Load())
}

// Flush blocks until every submission made so far has completed
func (s *Shipper) Flush() {
	s.mu.RLock()
	p := s.producer
	ready := s.State() == StateReady
	s.mu.RUnlock()

	if ready {
		p.Flush()
	}
	s.inflight.Wait()
}

// Ship submits evt if it passes the filter. Failures are reported to the
// diagnostic logger and status list; nothing is returned to the caller.
func (s *Shipper) Ship(evt *core.StructuredEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.State() != StateReady {
		s.totalUnavailable.Add(1)
		s.report(SeverityWarn, "Event dropped", ErrNotInitialized)
		return
	}

	if !s.filter.ShouldShip(evt) {
		s.totalFiltered.Add(1)
		return
	}

	payload, err := s.formatter.Format(evt)
	if err != nil {
		s.totalFailed.Add(1)
		s.report(SeverityError, "Event dropped", fmt.Errorf("%w: %w", ErrSerialization, err))
		return
	}

	s.inflight.Add()
	future, err := s.producer.Submit(s.cfg.StreamName, s.partitionKey(), payload)
	if err != nil {
		s.inflight.Done()
		s.totalFailed.Add(1)
		s.report(SeverityError, "Event dropped", fmt.Errorf("%w: %w", ErrSubmission, err))
		return
	}
	s.totalShipped.Add(1)

	eventType := evt.EventType
	future.OnComplete(func(ack transport.Ack, err error) {
		defer s.inflight.Done()
		if err != nil {
			s.totalFailed.Add(1)
			s.report(SeverityError, "Event delivery failed",
				fmt.Errorf("%w: event_type=%q: %w", ErrSubmission, eventType, err))
			return
		}
		s.totalAcked.Add(1)
		s.lastAck.Store(time.Now())
		s.logger.Debug("msg", "Event acknowledged",
			"component", "shipper",
			"event_type", eventType,
			"shard_id", ack.ShardID,
			"sequence_number", ack.SequenceNumber)
	})
}

// SetEventsOnly switches filtering of events without an event type
func (s *Shipper) SetEventsOnly(on bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.filter.SetEventsOnly(on)
}

func (s *Shipper) EventsOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.EventsOnly()
}

func (s *Shipper) State() State {
	return State(s.state.Load())
}

// AppName and Environment are fixed at construction
func (s *Shipper) AppName() string {
	return s.cfg.AppName
}

func (s *Shipper) Environment() string {
	return s.cfg.Environment
}

// LoggerName is the configured default logger name
func (s *Shipper) LoggerName() string {
	return s.cfg.LoggerName
}

// MinLevel is the configured handler threshold. Unset or unknown means trace.
func (s *Shipper) MinLevel() core.Level {
	if s.cfg.MinLevel == "" {
		return core.LevelTrace
	}
	level, err := core.ParseLevel(s.cfg.MinLevel)
	if err != nil {
		return core.LevelTrace
	}
	return level
}

// Status returns the retained diagnostics, oldest first
func (s *Shipper) Status() []Diagnostic {
	return s.status.snapshot()
}

// StatusCount counts retained diagnostics matching target
func (s *Shipper) StatusCount(target error) int {
	return s.status.count(target)
}

func (s *Shipper) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lastAck, _ := s.lastAck.Load().(time.Time)
	stats := map[string]any{
		"state":             s.State().String(),
		"stream":            s.cfg.StreamName,
		"total_shipped":     s.totalShipped.Load(),
		"total_filtered":    s.totalFiltered.Load(),
		"total_acked":       s.totalAcked.Load(),
		"total_failed":      s.totalFailed.Load(),
		"total_unavailable": s.totalUnavailable.Load(),
		"in_flight":         s.inflight.Len(),
		"start_time":        s.startTime,
		"last_ack":          lastAck,
		"filter":            s.filter.GetStats(),
	}
	if s.producer != nil {
		stats["producer"] = s.producer.GetStats()
	}
	return stats
}

// report records a diagnostic and writes it to the local logger. It never
// ships, so delivery failures cannot feed back into the stream.
func (s *Shipper) report(sev Severity, msg string, err error) {
	s.status.add(Diagnostic{Time: time.Now(), Severity: sev, Message: msg, Err: err})

	switch sev {
	case SeverityError:
		s.logger.Error("msg", msg, "component", "shipper", "error", err)
	case SeverityWarn:
		s.logger.Warn("msg", msg, "component", "shipper", "error", err)
	default:
		s.logger.Info("msg", msg, "component", "shipper", "error", err)
	}
}

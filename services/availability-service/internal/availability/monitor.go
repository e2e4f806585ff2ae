package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultSlowThreshold = 100 * time.Millisecond

// SlotsFunc is the shape of the pipeline the monitor wraps.
type SlotsFunc func(ctx context.Context, req Request) ([]TimeSlot, error)

type PerformanceMetrics struct {
	ComputationTimeMS float64
	Slow              bool
}

type Result struct {
	Slots              []TimeSlot
	PerformanceMetrics PerformanceMetrics
}

// Recorder receives one observation per computation.
type Recorder interface {
	ObserveComputation(elapsed time.Duration, slow bool, outcome string)
}

type MonitorConfig struct {
	SlowThreshold time.Duration
	Logger        *slog.Logger
	Recorder      Recorder
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Monitor times a SlotsFunc and tags slow results. It only observes: it never blocks, retries or
// alters the wrapped call's outcome.
type Monitor struct {
	threshold time.Duration
	logger    *slog.Logger
	recorder  Recorder
	now       func() time.Time
	tracer    trace.Tracer
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Monitor{
		threshold: cfg.SlowThreshold,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
		now:       cfg.Now,
		tracer:    otel.Tracer("availability"),
	}
}

func (m *Monitor) Threshold() time.Duration {
	return m.threshold
}

func (m *Monitor) Wrap(next SlotsFunc) func(context.Context, Request) (Result, error) {
	return func(ctx context.Context, req Request) (Result, error) {
		ctx, span := m.tracer.Start(ctx, "availability.compute",
			trace.WithAttributes(
				attribute.String("organizer.id", req.OrganizerID),
				attribute.String("availability.range", req.Range.String()),
				attribute.String("invitee.timezone", req.InviteeTimezone),
			),
		)
		defer span.End()

		start := m.now()
		slots, err := next(ctx, req)
		elapsed := m.now().Sub(start)

		metrics := PerformanceMetrics{
			ComputationTimeMS: float64(elapsed.Microseconds()) / 1000,
			Slow:              elapsed > m.threshold,
		}
		outcome := outcomeOf(slots, err)
		if m.recorder != nil {
			m.recorder.ObserveComputation(elapsed, metrics.Slow, outcome)
		}
		span.SetAttributes(
			attribute.Int("availability.slots", len(slots)),
			attribute.Float64("availability.computation_time_ms", metrics.ComputationTimeMS),
			attribute.Bool("availability.slow", metrics.Slow),
			attribute.String("availability.outcome", outcome),
		)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Result{PerformanceMetrics: metrics}, err
		}
		if metrics.Slow {
			m.logger.Warn("slow availability computation",
				"organizer_id", req.OrganizerID,
				"range", req.Range.String(),
				"slots", len(slots),
				"computation_time_ms", metrics.ComputationTimeMS,
				"threshold_ms", m.threshold.Milliseconds(),
			)
		}
		return Result{Slots: slots, PerformanceMetrics: metrics}, nil
	}
}

func outcomeOf(slots []TimeSlot, err error) string {
	switch {
	case err == nil && len(slots) == 0:
		return "empty"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_error"
	case errors.Is(err, ErrInvalidTimezone), errors.Is(err, ErrInvalidDateRange), errors.Is(err, ErrInvalidEventConfig):
		return "invalid_input"
	}
	return "error"
}

// Service is the public entry point: the engine wrapped by the monitor.
type Service struct {
	compute func(context.Context, Request) (Result, error)
}

func NewService(engine *Engine, monitor *Monitor) *Service {
	return &Service{compute: monitor.Wrap(engine.AvailableSlots)}
}

func (s *Service) GetAvailableSlots(ctx context.Context, req Request) (Result, error) {
	return s.compute(ctx, req)
}

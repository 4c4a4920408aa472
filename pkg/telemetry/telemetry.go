package telemetry

import "context"

// Telemetry bundles the logger, metrics, tracer and event publisher for
// a run.
type Telemetry struct {
	Logger  *Logger
	Metrics *Metrics
	Tracer  *Tracer
	Events  *EventPublisher
}

// New builds a Telemetry bundle from the configuration.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(ctx, cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)
	metrics.StartServer(cfg.Metrics)

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
		Events:  NewEventPublisher(cfg.Events),
	}, nil
}

// Shutdown flushes and stops all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Events.Shutdown()
	return t.Tracer.Shutdown(ctx)
}

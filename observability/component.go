package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component installs the OTLP providers on Start and flushes them on Stop.
type Component struct {
	cfg         Config
	serviceName string
	version     string
	environment string
	log         *logger.Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, serviceName, version, environment string, log *logger.Logger) *Component {
	return &Component{
		cfg:         cfg,
		serviceName: serviceName,
		version:     version,
		environment: environment,
		log:         log.WithComponent("observability"),
	}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Debug("Observability disabled, using no-op providers")
		return nil
	}
	tp, err := InitTracer(ctx, c.serviceName, c.version, c.environment, c.cfg)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	mp, err := InitMeter(ctx, c.serviceName, c.version, c.environment, c.cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("init meter: %w", err)
	}
	c.tp, c.mp = tp, mp
	c.log.Info("Observability exporters started", map[string]interface{}{
		"endpoint":    c.cfg.Endpoint,
		"sample_rate": c.cfg.SampleRate,
	})
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (c *Component) Health(context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	if !c.cfg.Enabled {
		return component.Description{Type: "otel", Details: "disabled"}
	}
	return component.Description{Type: "otel", Details: c.cfg.Endpoint}
}

// Package telemetry sets up logging and the otlp exporters of the tracer and
// meter providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"thermite-middleware/lib/configutil"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

const ConfigFilename = "telemetry.json5"

// ServiceVersion is reported with every exported span and metric.
const ServiceVersion = "4.0"

// Telemetry holds the providers that were installed globally, a provider is
// nil when its signal is not exported and the otel global stays a no-op.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Enabled() bool {
	return t.TracerProvider != nil || t.MeterProvider != nil
}

// Shutdown flushes and stops the providers.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// SetupFromEnv searches up the filesystem from the cwd to find a file called
// telemetry.json5 and uses it as the config to setup telemetry. Without one,
// telemetry stays disabled.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	cfg, err := configutil.ReadRecursively[Config](ConfigFilename)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no telemetry config found, telemetry is disabled")
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, cfg)
}

// Setup installs a global provider for each signal that has an endpoint.
func Setup(ctx context.Context, serviceName string, cfg Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	if !cfg.Otlp.Traces.Enabled() && !cfg.Otlp.Metrics.Enabled() {
		return Telemetry{}, nil
	}

	r, err := newResource(serviceName)
	if err != nil {
		return Telemetry{}, err
	}

	var tel Telemetry
	tel.TracerProvider, err = newTracerProvider(ctx, r, cfg)
	if err != nil {
		return Telemetry{}, fmt.Errorf("setup traces: %w", err)
	}
	tel.MeterProvider, err = newMeterProvider(ctx, r, cfg)
	if err != nil {
		shutdownErr := tel.Shutdown(context.Background())
		return Telemetry{}, errors.Join(fmt.Errorf("setup metrics: %w", err), shutdownErr)
	}

	if tel.TracerProvider != nil {
		otel.SetTracerProvider(tel.TracerProvider)
	}
	if tel.MeterProvider != nil {
		otel.SetMeterProvider(tel.MeterProvider)
	}
	return tel, nil
}

// NewLogger creates the console logger, verbose enables debug logs.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// InitSlog installs the console logger as the default logger.
func InitSlog(verbose bool) {
	slog.SetDefault(NewLogger(os.Stderr, verbose))
}

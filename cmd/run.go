package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/config"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/events"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/ffmpeg"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/logging"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/metrics"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/metrics/collectors"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/metrics/exporters"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/streams"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/streams/store"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/version"
)

// runOptions is filled from flags, environment, and the config file,
// in that precedence.
type runOptions struct {
	Config string

	Streams string `toml:"streams.config_file" env:"STREAMS_CONFIG_FILE"`
	Watch   bool   `toml:"streams.watch" env:"STREAMS_WATCH"`

	Ffmpeg string `toml:"ffmpeg.path" env:"FFMPEG_PATH"`

	MaxReconnectAttempts int    `toml:"supervisor.max_reconnect_attempts" env:"MAX_RECONNECT_ATTEMPTS"`
	ReconnectDelay       string `toml:"supervisor.reconnect_delay" env:"RECONNECT_DELAY"`
	StopTimeout          string `toml:"supervisor.stop_timeout" env:"STOP_TIMEOUT"`

	MetricsAddr string `toml:"metrics.addr" env:"METRICS_ADDR"`

	LogLevel  string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat string `toml:"logging.format" env:"LOG_FORMAT"`

	// Per-module level overrides; empty keeps the global level.
	LogSupervisor string `toml:"logging.supervisor" env:"LOG_SUPERVISOR"`
	LogFfmpeg     string `toml:"logging.ffmpeg" env:"LOG_FFMPEG"`
	LogMetrics    string `toml:"logging.metrics" env:"LOG_METRICS"`
}

// CreateRunCmd creates the run command: start every enabled stream and
// supervise until interrupted.
func CreateRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stream supervisor",
		Long: `Starts every enabled stream from the definitions file and keeps the
push processes alive until the service is stopped. Edits to the
definitions file are applied while running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSupervisor(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "config.toml", "Path to the service configuration file")
	cmd.Flags().StringVar(&opts.Streams, "streams", "streams.toml", "Path to the stream definitions file")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Apply definitions file edits while running")
	cmd.Flags().StringVar(&opts.Ffmpeg, "ffmpeg", "", "Path to the ffmpeg binary (default: resolve from PATH)")
	cmd.Flags().IntVar(&opts.MaxReconnectAttempts, "max-reconnect-attempts", streams.DefaultMaxReconnectAttempts,
		"Consecutive failed attempts before a stream is declared failed")
	cmd.Flags().StringVar(&opts.ReconnectDelay, "reconnect-delay", "5s", "Pause before relaunching a failed push process")
	cmd.Flags().StringVar(&opts.StopTimeout, "stop-timeout", "5s", "Grace period between interrupt and kill on stop")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Listen address for Prometheus metrics (empty disables)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Global logging level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "text", "Logging format (text, json)")
	cmd.Flags().StringVar(&opts.LogSupervisor, "log-supervisor", "", "Supervisor logging level (default: global)")
	cmd.Flags().StringVar(&opts.LogFfmpeg, "log-ffmpeg", "", "ffmpeg output logging level (default: global)")
	cmd.Flags().StringVar(&opts.LogMetrics, "log-metrics", "", "Metrics logging level (default: global)")

	return cmd
}

func runSupervisor(opts *runOptions, cmd *cobra.Command) error {
	if err := config.LoadConfig(opts, cmd); err != nil {
		return err
	}

	logCfg := config.LoadLoggingConfig(opts.Config)
	logCfg.Level = opts.LogLevel
	logCfg.Format = opts.LogFormat
	for module, level := range map[string]string{
		"supervisor": opts.LogSupervisor,
		"ffmpeg":     opts.LogFfmpeg,
		"metrics":    opts.LogMetrics,
	} {
		if level != "" {
			logCfg.Modules[module] = level
		}
	}
	logging.Initialize(logCfg)
	logger := logging.GetLogger("main")

	logger.Info("Starting live stream repeater",
		"version", version.String(),
		"definitions", opts.Streams)

	reconnectDelay, err := time.ParseDuration(opts.ReconnectDelay)
	if err != nil {
		return fmt.Errorf("invalid reconnect delay %q: %w", opts.ReconnectDelay, err)
	}
	stopTimeout, err := time.ParseDuration(opts.StopTimeout)
	if err != nil {
		return fmt.Errorf("invalid stop timeout %q: %w", opts.StopTimeout, err)
	}

	ffmpegVersion, err := ffmpeg.Version(opts.Ffmpeg)
	if err != nil {
		return fmt.Errorf("ffmpeg is not usable, check --ffmpeg or PATH: %w", err)
	}
	logger.Info("Push binary found", "version", ffmpegVersion)

	definitions := store.NewTOML(opts.Streams)
	if err := definitions.Load(); err != nil {
		return err
	}

	bus := events.New()
	supervisor := streams.NewSupervisor(streams.SupervisorOptions{
		FFmpegPath:           opts.Ffmpeg,
		MaxReconnectAttempts: opts.MaxReconnectAttempts,
		ReconnectDelay:       reconnectDelay,
		StopTimeout:          stopTimeout,
		EventBus:             bus,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics are opt-in; without a listen address nothing is recorded
	var recorder *metrics.Recorder
	var collector *collectors.ProcessCollector
	var metricsServer *http.Server
	if opts.MetricsAddr != "" {
		recorder = metrics.NewRecorder(bus)
		recorder.Start()

		collector = collectors.NewProcessCollector(supervisor.Pids)
		if err := collector.Start(ctx); err != nil {
			logger.Warn("Failed to start process collector", "error", err)
			collector = nil
		}

		metricsServer = exporters.NewHTTPServer(opts.MetricsAddr)
		go func() {
			logger.Info("Metrics server listening", "addr", opts.MetricsAddr)
			if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", serveErr)
			}
		}()
	}

	// applied tracks the definitions currently realized by the
	// supervisor. Written at startup, then only from reload callbacks.
	applied := make(map[string]streams.StreamSpec)
	enabled := definitions.GetEnabledStreams()
	if len(enabled) == 0 {
		logger.Warn("No enabled streams defined", "definitions", opts.Streams)
	}
	for id, spec := range enabled {
		if startErr := supervisor.Start(id, spec.Source, spec.Push); startErr != nil {
			logger.Error("Failed to start stream", "stream_id", id, "error", startErr)
			continue
		}
		applied[id] = spec
	}

	var watcher *config.Watcher[map[string]streams.StreamSpec]
	if opts.Watch {
		loader := func(path string) (map[string]streams.StreamSpec, error) {
			fresh := store.NewTOML(path)
			if loadErr := fresh.Load(); loadErr != nil {
				return nil, loadErr
			}
			return fresh.GetEnabledStreams(), nil
		}

		watcher = config.NewConfigWatcher(opts.Streams, loader, logger)
		watcher.OnReload(func(defs map[string]streams.StreamSpec) {
			applyDefinitions(supervisor, logger, applied, defs)
		})

		if watchErr := watcher.Start(); watchErr != nil {
			logger.Warn("Failed to watch definitions file, hot-reload disabled", "error", watchErr)
			watcher = nil
		}
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	if watcher != nil {
		_ = watcher.Stop()
	}
	supervisor.StopAll()
	if collector != nil {
		_ = collector.Stop()
	}
	if recorder != nil {
		recorder.Stop()
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logger.Info("Shutdown complete")
	return nil
}

// applyDefinitions reconciles the supervisor with a fresh snapshot of
// enabled definitions. The file is desired state: enabled entries that
// are not live get started, including finished ones, so re-saving the
// file revives a failed stream.
func applyDefinitions(
	supervisor *streams.Supervisor,
	logger logging.Logger,
	applied map[string]streams.StreamSpec,
	enabled map[string]streams.StreamSpec,
) {
	for id := range applied {
		if _, ok := enabled[id]; !ok {
			logger.Info("Stream removed from definitions, stopping", "stream_id", id)
			supervisor.Stop(id)
			delete(applied, id)
		}
	}

	for id, spec := range enabled {
		prev, known := applied[id]
		switch {
		case !known:
			logger.Info("New stream definition, starting", "stream_id", id)
		case prev != spec:
			// The replacement may briefly overlap the old process on
			// the ingest; its first attempt then fails and the
			// reconnect policy brings it up once the ingest is free.
			logger.Info("Stream definition changed, restarting", "stream_id", id)
			supervisor.Stop(id)
		case !supervisor.IsRunning(id):
			logger.Info("Stream definition re-applied, starting", "stream_id", id)
		default:
			continue
		}

		if err := supervisor.Start(id, spec.Source, spec.Push); err != nil {
			logger.Error("Failed to start stream", "stream_id", id, "error", err)
			delete(applied, id)
			continue
		}
		applied[id] = spec
	}
}

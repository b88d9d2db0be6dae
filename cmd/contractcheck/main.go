package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kipp7/landslide-monitoring-v2/internal/checker"
	"github.com/kipp7/landslide-monitoring-v2/internal/config"
	"github.com/kipp7/landslide-monitoring-v2/internal/logging"
	"github.com/kipp7/landslide-monitoring-v2/internal/metrics"
	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
	"github.com/kipp7/landslide-monitoring-v2/internal/watcher"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// exitUsage is returned for unusable invocations or configuration.
const exitUsage = 2

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("contractcheck", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "contractcheck.yaml", "Path to configuration file (optional)")
	root := flags.String("root", ".", "Repository root the documentation paths are relative to")
	format := flags.String("format", "text", "Report format: text or json")
	watch := flags.Bool("watch", false, "Re-run checks when documentation files change")
	metricsOut := flags.String("metrics-out", "", "Write a Prometheus textfile after each run")
	strictOpenAPI := flags.Bool("strict-openapi", false, "Also validate the OpenAPI document structure")
	sequential := flags.Bool("sequential", false, "Run checks one after another")
	logLevel := flags.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion := flags.Bool("version", false, "Show version information")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintf(stdout, "contractcheck %s (built %s)\n", version, buildTime)
		return 0
	}

	reportFormat, err := problem.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid -format: %v\n", err)
		return exitUsage
	}

	loader := config.NewLoader()
	cfgFile := *configPath
	if cfgFile != "" && !filepath.IsAbs(cfgFile) {
		cfgFile = filepath.Join(*root, cfgFile)
	}
	cfg, err := loader.LoadOptional(cfgFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitUsage
	}

	overrides := config.Overrides{LogLevel: *logLevel, MetricsOut: *metricsOut}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strict-openapi":
			overrides.StrictOpenAPI = strictOpenAPI
		case "sequential":
			parallel := !*sequential
			overrides.Parallel = &parallel
		}
	})
	cfg = overrides.Apply(cfg)
	if err := loader.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return exitUsage
	}

	if st, err := os.Stat(*root); err != nil || !st.IsDir() {
		fmt.Fprintf(stderr, "Repository root is not a directory: %s\n", *root)
		return exitUsage
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSize:    cfg.Logging.Rotation.MaxSize,
		MaxBackups: cfg.Logging.Rotation.MaxBackups,
		MaxAge:     cfg.Logging.Rotation.MaxAge,
		Compress:   cfg.Logging.Rotation.Compress,
		LocalTime:  cfg.Logging.Rotation.LocalTime,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitUsage
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	previous := logging.Global()
	logging.SetGlobal(logger)
	defer logging.SetGlobal(previous)
	defer logging.Sync()

	logging.Debug("Starting contract checks",
		zap.String("version", version),
		zap.String("root", *root),
		zap.String("config", cfgFile),
		zap.Bool("watch", *watch),
	)

	r := &runner{
		engine: checker.New(os.DirFS(*root), cfg, logger),
		format: reportFormat,
		out:    stdout,
		cfg:    cfg,
	}
	if cfg.Metrics.Textfile != "" {
		r.metrics = metrics.NewCollector()
	}

	code, err := r.once(ctx)
	if err != nil {
		logging.Error("Contract checks aborted", zap.Error(err))
		return exitUsage
	}
	if !*watch {
		return code
	}

	w, err := watcher.New(filepath.Join(*root, filepath.FromSlash(cfg.DocsRoot)), func(ctx context.Context) {
		if _, err := r.once(ctx); err != nil && ctx.Err() == nil {
			logging.Error("Contract checks aborted", zap.Error(err))
		}
	})
	if err != nil {
		logging.Error("Failed to watch documentation", zap.Error(err))
		return exitUsage
	}
	logging.Info("Watching documentation for changes", zap.String("docs_root", cfg.DocsRoot))
	if err := w.Run(ctx); err != nil {
		logging.Error("Watcher stopped", zap.Error(err))
		return exitUsage
	}
	return 0
}

// runner performs one check run and publishes its results.
type runner struct {
	engine  *checker.Engine
	format  problem.Format
	out     io.Writer
	cfg     *config.Config
	metrics *metrics.Collector
}

func (r *runner) once(ctx context.Context) (int, error) {
	start := time.Now()
	l, err := r.engine.Run(ctx)
	if err != nil {
		return exitUsage, err
	}
	if err := problem.Render(r.out, l, r.format); err != nil {
		return exitUsage, fmt.Errorf("writing report: %w", err)
	}

	if r.metrics != nil {
		r.metrics.Record(l, time.Since(start), time.Now())
		if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
			// The report is already out; a metrics failure does not change the verdict.
			logging.Warn("Failed to write metrics", zap.Error(err))
		}
	}
	return l.ExitCode(), nil
}

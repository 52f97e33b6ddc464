package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/totalrecall/internal/api"
	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
	"github.com/MikeSquared-Agency/totalrecall/internal/config"
	"github.com/MikeSquared-Agency/totalrecall/internal/driver"
	"github.com/MikeSquared-Agency/totalrecall/internal/hermes"
)

const usage = `usage: totalrecall <command> [flags]

commands:
  process --file F [--strategy size|topic|role] [--max-tokens N] [--output-dir D]
  batch [--strategy S] [--max-tokens N] [--workers N] [--output-dir D] [--resume] FILE...
  serve
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code. Summaries go to
// stdout, logs and errors to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg := config.Load()
	logger := setupLogging(cfg.LogLevel, stderr)

	var err error
	switch args[0] {
	case "process":
		err = runProcess(ctx, cfg, logger, args[1:], stdout, stderr)
	case "batch":
		err = runBatch(ctx, cfg, logger, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// chunkFlags are shared by process and batch.
type chunkFlags struct {
	strategy  string
	maxTokens int
	outputDir string
}

func (f *chunkFlags) register(fs *flag.FlagSet, cfg config.Config) {
	fs.StringVar(&f.strategy, "strategy", cfg.Strategy, "chunking strategy: size, topic or role")
	fs.IntVar(&f.maxTokens, "max-tokens", cfg.MaxTokens, "token budget per chunk")
	fs.StringVar(&f.outputDir, "output-dir", cfg.OutputDir, "directory for processed files")
}

func runProcess(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf chunkFlags
	cf.register(fs, cfg)
	file := fs.String("file", "", "conversation collection to process (JSON, YAML or JSONL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("process: --file is required")
	}

	strategy, err := chunker.ParseStrategy(cf.strategy)
	if err != nil {
		return err
	}

	d, _, closeFn, err := newDriver(ctx, cfg, driver.Config{OutputDir: cf.outputDir}, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	out, result, err := d.ProcessFile(ctx, *file, strategy, cf.maxTokens)
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, driver.FormatSummary(out, result))
	return nil
}

func runBatch(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf chunkFlags
	cf.register(fs, cfg)
	workers := fs.Int("workers", cfg.Workers, "files processed concurrently")
	resume := fs.Bool("resume", false, "skip files unchanged since their last recorded run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errors.New("batch: at least one file is required")
	}

	strategy, err := chunker.ParseStrategy(cf.strategy)
	if err != nil {
		return err
	}

	d, _, closeFn, err := newDriver(ctx, cfg, driver.Config{OutputDir: cf.outputDir, Workers: *workers, Resume: *resume}, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := d.ProcessBatch(ctx, paths, strategy, cf.maxTokens)
	fmt.Fprint(stdout, driver.FormatBatchSummary(report))
	if err != nil {
		return err
	}
	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	strategy, err := chunker.ParseStrategy(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("TOTALRECALL_STRATEGY: %w", err)
	}

	d, hermesClient, closeFn, err := newDriver(ctx, cfg, driver.Config{OutputDir: cfg.OutputDir, Workers: cfg.Workers}, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	srv := api.NewServer(cfg.Port, cfg.APIToken, d, api.Defaults{Strategy: strategy, MaxTokens: cfg.MaxTokens}, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"port":       cfg.Port,
			"strategy":   strategy.String(),
			"max_tokens": cfg.MaxTokens,
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	logger.Info("totalrecall ready", "port", cfg.Port, "strategy", strategy.String(), "max_tokens", cfg.MaxTokens)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("totalrecall stopped")
	return nil
}

// newDriver builds the chunker and driver, connecting to NATS when configured.
// The hermes client is nil without NATS_URL. The returned func flushes and
// closes the connection.
func newDriver(ctx context.Context, cfg config.Config, dcfg driver.Config, logger *slog.Logger) (*driver.Driver, *hermes.Client, func(), error) {
	policy, err := chunker.ParseOverflowPolicy(cfg.Overflow)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("TOTALRECALL_OVERFLOW: %w", err)
	}
	c := chunker.New(chunker.WithOverflowPolicy(policy))

	closeFn := func() {}
	var notifier driver.Notifier
	var client *hermes.Client
	if cfg.NatsURL != "" {
		client, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}
		logger.Info("NATS connected", "url", cfg.NatsURL)
		notifier = client
		closeFn = func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Flush(flushCtx); err != nil {
				logger.Warn("NATS flush failed", "error", err)
			}
			client.Close()
		}
	}

	d := driver.New(dcfg, c, notifier, logger)
	return d, client, closeFn, nil
}

func setupLogging(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"kopilka/internal/amqp"
	"kopilka/internal/cli"
	"kopilka/internal/config"
	"kopilka/internal/core"
	apphttp "kopilka/internal/http"
	"kopilka/internal/log"
	"kopilka/internal/services"
	"kopilka/internal/source/file"
	"kopilka/internal/storage"
	"kopilka/internal/worker"
)

const usage = `usage: kopilka <command> [flags]

commands:
  main-page  -date "YYYY-MM-DD HH:MM:SS"   dashboard for a moment (default: now)
  transfers                               transfers to private persons
  invest     -month YYYY-MM -limit N       round-up savings for a month
  weekday    [-date YYYY-MM-DD]            average spend per weekday over three months
  import     [-from PATH]                  load the bank export into SQLite
  serve                                   run the HTTP API
  enqueue    -kind KIND [report flags]     queue a report for kopilka-worker
             [-wait D]                     and wait for its result on a private reply queue
  results    [-wait D]                     print results of requests enqueued without -wait
`

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(cmd, args, cfg, logger, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("Command failed", log.FieldOperation, cmd, log.FieldError, err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, cfg *config.Config, logger *log.Logger, stdout io.Writer) error {
	switch cmd {
	case "main-page", "transfers", "invest", "weekday":
		return runReport(cmd, args, cfg, logger, stdout)
	case "import":
		return runImport(args, cfg, logger, stdout)
	case "serve":
		return runServe(cfg, logger)
	case "enqueue":
		return runEnqueue(args, cfg, logger, stdout)
	case "results":
		return runResults(args, cfg, logger, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

var commandKinds = map[string]services.Kind{
	"main-page": services.KindMainPage,
	"transfers": services.KindTransfers,
	"invest":    services.KindInvest,
	"weekday":   services.KindWeekday,
}

// reportFlags registers the report parameters shared by the report commands and enqueue.
func reportFlags(fs *flag.FlagSet, req *services.Request) {
	fs.StringVar(&req.Date, "date", "", `"YYYY-MM-DD HH:MM:SS" for main-page, "YYYY-MM-DD" for weekday`)
	fs.StringVar(&req.Month, "month", "", "YYYY-MM for invest")
	fs.IntVar(&req.Limit, "limit", 0, "rounding step in roubles for invest, e.g. 10, 50 or 100")
}

func runReport(cmd string, args []string, cfg *config.Config, logger *log.Logger, stdout io.Writer) error {
	req := services.Request{Kind: commandKinds[cmd]}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	reportFlags(fs, &req)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Kind == services.KindMainPage && req.Date == "" {
		req.Date = time.Now().Format(core.TimestampLayout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app, err := cli.BuildApp(ctx, logger, cfg, cli.AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Reports.Run(ctx, req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

func runImport(args []string, cfg *config.Config, logger *log.Logger, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	from := fs.String("from", cfg.OperationsPath, "bank export to load (.xlsx or .csv)")
	sheet := fs.String("sheet", cfg.OperationsSheet, "worksheet of an .xlsx export (default: first)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	var opts []file.Option
	if *sheet != "" {
		opts = append(opts, file.WithSheet(*sheet))
	}
	n, err := worker.NewImporter(file.New(*from, logger, opts...), repo, *from, logger).Import(context.Background())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "imported %d transactions from %s into %s\n", n, *from, cfg.SQLiteDBPath)
	return err
}

func runServe(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := cli.BuildApp(ctx, logger, cfg, cli.AppOptions{CacheRates: true})
	if err != nil {
		return err
	}
	defer app.Close()

	srv := apphttp.NewServer(":"+cfg.Port, app.Reports, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     30 * time.Second,
		Ready:              app.Ready,
		LastImport:         app.ImportLog(),
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting kopilka server", log.FieldOperation, log.OpStartup, "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}

func newAMQPClient(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, errors.New("AMQP_URL is not set")
	}
	return amqp.NewClient(amqp.Config{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		RequestQueue: cfg.AMQPRequestQueue,
		ResultQueue:  cfg.AMQPResultQueue,
		Prefetch:     cfg.AMQPPrefetch,
		Logger:       logger,
	})
}

func runEnqueue(args []string, cfg *config.Config, logger *log.Logger, stdout io.Writer) error {
	var req services.Request
	var kind string
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.StringVar(&kind, "kind", "", "report kind: main, transfers, invest or weekday")
	reportFlags(fs, &req)
	wait := fs.Duration("wait", 0, "wait this long for the result and print it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !services.Kind(kind).IsValid() {
		return fmt.Errorf("%w: %q", services.ErrUnknownKind, kind)
	}

	client, err := newAMQPClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	msg := amqp.NewReportRequest(kind, req.Date, req.Month, req.Limit)
	if *wait > 0 {
		// the reply queue must exist before the worker can answer
		if msg.ReplyTo, err = client.DeclareReplyQueue(); err != nil {
			return err
		}
	}
	if err := client.PublishRequest(context.Background(), msg); err != nil {
		return err
	}
	if *wait <= 0 {
		_, err := fmt.Fprintln(stdout, msg.ID)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()
	res, err := client.AwaitResult(ctx, msg.ReplyTo, msg.ID)
	if err != nil {
		return fmt.Errorf("no result for %s: %w", msg.ID, err)
	}
	if !res.OK {
		return fmt.Errorf("report %s rejected: %s", msg.ID, res.Error)
	}
	_, err = fmt.Fprintln(stdout, string(res.Body))
	return err
}

// runResults prints results of fire-and-forget requests from the shared
// result queue, one JSON document per line, until the wait ends.
func runResults(args []string, cfg *config.Config, logger *log.Logger, stdout io.Writer) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	wait := fs.Duration("wait", 5*time.Second, "how long to keep reading")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newAMQPClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()
	err = client.ConsumeResults(ctx, func(_ context.Context, res *amqp.ReportResult) error {
		line, err := res.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(line))
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

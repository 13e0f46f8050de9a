package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ApexChef/backlog-chef/app"
	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/internal/observability"
	"github.com/ApexChef/backlog-chef/models"
	"github.com/ApexChef/backlog-chef/routes"
	"github.com/ApexChef/backlog-chef/services/pipeline"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	switch os.Args[1] {
	case "process":
		runProcess(ctx, deps, os.Args[2:])
	case "serve":
		runServe(deps)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  backlog-chef process [-out DIR] [-format md|json|both] TRANSCRIPT
  backlog-chef serve`)
}

func runProcess(ctx context.Context, deps *app.Dependencies, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	outDir := fs.String("out", ".", "output directory")
	format := fs.String("format", "both", "output format: md, json or both")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		deps.Logger.Fatal("failed to open transcript", zap.String("path", path), zap.Error(err))
	}
	transcript, err := models.ParseTranscript(file, filepath.Base(path))
	_ = file.Close()
	if err != nil {
		deps.Logger.Fatal("failed to parse transcript", zap.String("path", path), zap.Error(err))
	}

	run, err := deps.Pipeline.Process(ctx, transcript)
	if err != nil {
		deps.Logger.Fatal("pipeline failed", zap.Error(err))
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if *format == "md" || *format == "both" {
		out := filepath.Join(*outDir, base+".backlog.md")
		if err := os.WriteFile(out, []byte(pipeline.RenderMarkdown(run)), 0o644); err != nil {
			deps.Logger.Fatal("failed to write markdown output", zap.Error(err))
		}
		fmt.Println("wrote", out)
	}
	if *format == "json" || *format == "both" {
		data, err := pipeline.RenderJSON(run)
		if err != nil {
			deps.Logger.Fatal("failed to render JSON output", zap.Error(err))
		}
		out := filepath.Join(*outDir, base+".backlog.json")
		if err := os.WriteFile(out, data, 0o644); err != nil {
			deps.Logger.Fatal("failed to write JSON output", zap.Error(err))
		}
		fmt.Println("wrote", out)
	}

	if deps.Runs != nil {
		if err := deps.Runs.SaveRun(ctx, run); err != nil {
			deps.Logger.Error("failed to persist run", zap.Error(err))
		}
	}

	stats := deps.Router.CostStatistics()
	fmt.Printf("%d items, %d requests, $%.4f total\n", len(run.Items), stats.TotalRequests, stats.TotalCostUSD)
}

func runServe(deps *app.Dependencies) {
	cfg := deps.Config.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		deps.Logger.Info("admin server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			deps.Logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	deps.Logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		deps.Logger.Error("shutdown error", zap.Error(err))
	}
}

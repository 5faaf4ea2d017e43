package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/shadowzap/internal/app"
	"github.com/raysh454/shadowzap/internal/cli"
	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/model"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}
	if args.NoColor {
		cli.DisableColor()
	}

	cfg := app.DefaultConfig()
	if args.ConfigPath != "" {
		if cfg, err = app.LoadConfig(args.ConfigPath); err != nil {
			return err
		}
	}
	cfg.ApplyArgs(args)

	// scan writes progress to stdout, so its logs go to stderr.
	out := os.Stdout
	if args.Command == cli.CommandScan {
		out = os.Stderr
	}
	logger := logging.NewWriterLogger("shadowzap", cfg.LogLevel, out)

	application, err := app.NewApplication(cfg, args, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(ctx); err != nil {
			logger.Warn("shutdown", logging.Err(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args.Command {
	case cli.CommandScan:
		req := model.ScanRequest{
			TargetURL:    args.Target,
			ScanType:     model.ScanType(args.ScanType),
			ReportType:   model.ReportType(args.ReportType),
			ReportFormat: args.ReportFormat,
		}
		_, err := application.Scan(ctx, req, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		return application.Serve(ctx)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"book-trends/config"
	"book-trends/utils"
)

const usage = `Usage: book-trends [command] [flags]

Commands:
  serve      serve the dashboard (default)
  report     print the report for one selection to the terminal
  export     write the filtered records as CSV or Parquet
  snapshot   render the dashboard to PNG with a headless browser

Run "book-trends <command> -h" for the flags of a command.
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var runErr error
	switch cmd {
	case "serve":
		runErr = runServe(ctx, cfg, logger, args)
	case "report":
		runErr = runReport(ctx, cfg, logger, args)
	case "export":
		runErr = runExport(ctx, cfg, logger, args)
	case "snapshot":
		runErr = runSnapshot(ctx, cfg, logger, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		stop()
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	stop()

	if runErr != nil {
		logger.Error("%s failed: %v", cmd, runErr)
		os.Exit(1)
	}
}

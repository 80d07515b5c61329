package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/browser"
	"github.com/spf13/pflag"

	"github.com/menta2k/stereoslide/internal/logging"
	"github.com/menta2k/stereoslide/pkg/viewer"
)

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags]\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}

	defaults := viewer.DefaultConfig()
	loggerLevel := logging.DefaultLevel
	pflag.Var(&loggerLevel, "log-level", "Log level")
	host := pflag.String("host", defaults.Host, "address to bind")
	port := pflag.IntP("port", "p", defaults.Port, "port to listen on")
	dir := pflag.StringP("dir", "d", defaults.Dir, "directory to serve")
	open := pflag.Bool("open", false, "open the listing in the default browser")
	pflag.Parse()

	ctx := logging.WithLogger(context.Background(), loggerLevel)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	defer belt.Flush(ctx)

	cfg := viewer.Config{Host: *host, Port: *port, Dir: *dir}
	if err := cfg.Validate(); err != nil {
		logger.Errorf(ctx, "%v", err)
		return 1
	}

	srv := viewer.New(cfg)
	local, lan := srv.URLs()
	fmt.Printf("Serving %s\n", cfg.Dir)
	fmt.Printf("  local:   %s\n", local)
	if lan != "" {
		fmt.Printf("  network: %s (open this on the headset)\n", lan)
	}
	fmt.Println("Press Ctrl+C to stop")

	if *open {
		if err := browser.OpenURL(local); err != nil {
			logger.Warnf(ctx, "unable to open a browser: %v", err)
		}
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Errorf(ctx, "%v", err)
		return 1
	}
	return 0
}

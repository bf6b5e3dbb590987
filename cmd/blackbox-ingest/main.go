// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// blackbox-ingest is the reference ingest server. It receives crash and
// debug bundles from instrumented applications, stores them on disk, and
// serves a small management API over the stored bundles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wingedpig/blackbox/internal/app"
	"github.com/wingedpig/blackbox/internal/config"
)

var (
	version = "0.9"
)

func main() {
	// Parse flags
	var (
		configPath  string
		host        string
		port        int
		reportsDir  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&reportsDir, "reports-dir", "", "Directory for stored bundles (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("blackbox-ingest %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	var cfg *config.ServerConfig
	if configPath != "" {
		loaded, err := config.NewLoader().LoadServer(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultServer()
	}

	// Apply flag overrides
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if reportsDir != "" {
		cfg.ReportsDir = reportsDir
	}

	a, err := app.New(cfg, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

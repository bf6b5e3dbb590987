// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// blackbox-ctl is a command-line tool for inspecting bundles stored on a
// blackbox ingest server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wingedpig/blackbox/pkg/client"
)

var (
	version    = "0.9"
	apiURL     = "http://localhost:8330"
	jsonOutput = false

	// API client instance
	apiClient *client.Client
)

func main() {
	// Check for BLACKBOX_API environment variable
	if env := os.Getenv("BLACKBOX_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	// Parse global flags and filter them out
	var filteredArgs []string
	for _, arg := range os.Args[1:] {
		if arg == "-json" {
			jsonOutput = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	// Initialize API client
	apiClient = client.New(apiURL)

	if len(filteredArgs) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := filteredArgs[0]
	args := filteredArgs[1:]

	var err error
	switch cmd {
	case "list":
		err = cmdList()
	case "newest":
		err = cmdNewest()
	case "delete":
		err = cmdDelete(args)
	case "clear":
		err = cmdClear()
	case "watch":
		err = cmdWatch()
	case "version", "-v", "--version":
		fmt.Printf("blackbox-ctl %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		// Treat as bundle ID
		err = cmdGet(cmd)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`blackbox-ctl %s - inspect bundles on a blackbox ingest server

Usage:
  blackbox-ctl [flags] <command> [args]

Commands:
  list          List stored bundles (newest first)
  newest        Show the most recent bundle
  <id>          Show a specific bundle
  delete <id>   Delete a bundle
  clear         Delete all bundles
  watch         Stream bundle arrivals
  version       Show version

Flags:
  -json         Output raw JSON

The server URL defaults to %s and can be overridden with the
BLACKBOX_API environment variable.
`, version, apiURL)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func cmdList() error {
	ctx := context.Background()
	summaries, err := apiClient.Bundles.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(summaries)
		return nil
	}

	if len(summaries) == 0 {
		fmt.Println("No bundles stored")
		return nil
	}

	fmt.Printf("%-22s %-14s %-30s %-7s %s\n", "ID", "TYPE", "SESSION", "ENTRIES", "ERRORS")
	fmt.Println(strings.Repeat("-", 90))
	for _, s := range summaries {
		sessionID := s.SessionID
		if len(sessionID) > 28 {
			sessionID = sessionID[:28] + ".."
		}
		fmt.Printf("%-22s %-14s %-30s %-7d %d\n",
			s.ID,
			s.Type,
			sessionID,
			s.EntryCount,
			s.ErrorCount,
		)
	}

	return nil
}

func cmdNewest() error {
	ctx := context.Background()
	rec, err := apiClient.Bundles.Newest(ctx)
	if err != nil {
		return err
	}

	if rec == nil {
		if jsonOutput {
			printJSON(nil)
			return nil
		}
		fmt.Println("No bundles stored")
		return nil
	}

	if jsonOutput {
		printJSON(rec)
		return nil
	}

	printRecordDetail(rec)
	return nil
}

func cmdGet(id string) error {
	ctx := context.Background()
	rec, err := apiClient.Bundles.Get(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(rec)
		return nil
	}

	printRecordDetail(rec)
	return nil
}

func cmdDelete(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: blackbox-ctl delete <id>")
	}

	ctx := context.Background()
	if err := apiClient.Bundles.Delete(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted bundle %s\n", args[0])
	return nil
}

func cmdClear() error {
	ctx := context.Background()
	if err := apiClient.Bundles.Clear(ctx); err != nil {
		return err
	}

	fmt.Println("Cleared all bundles")
	return nil
}

func cmdWatch() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ch, err := apiClient.Bundles.Watch(ctx)
	if err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Println("Watching for bundles (ctrl-c to stop)...")
	}

	for s := range ch {
		if jsonOutput {
			printJSON(s)
			continue
		}
		kind := s.Type
		if s.Crash {
			kind += " (crash)"
		}
		fmt.Printf("%s  %-22s %-30s %d entries, %d errors\n",
			s.ReceivedAt.Format("15:04:05"),
			kind,
			s.SessionID,
			s.EntryCount,
			s.ErrorCount,
		)
	}

	return nil
}

func printRecordDetail(rec *client.Record) {
	b := rec.Bundle

	fmt.Printf("Bundle:      %s\n", rec.ID)
	fmt.Printf("Type:        %s\n", b.Type)
	fmt.Printf("Session:     %s\n", b.SessionID)
	fmt.Printf("Received:    %s\n", rec.ReceivedAt.Format("2006-01-02 15:04:05"))
	if !b.Start.IsZero() {
		fmt.Printf("Started:     %s\n", b.Start.Format("2006-01-02 15:04:05"))
	}
	if !b.End.IsZero() {
		fmt.Printf("Ended:       %s\n", b.End.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Crash:       %v\n", b.Crash)
	if b.AppVersion != "" {
		fmt.Printf("App version: %s\n", b.AppVersion)
	}
	if b.UserAgent != "" {
		fmt.Printf("Host:        %s\n", b.UserAgent)
	}
	if b.Truncated {
		fmt.Println("Truncated:   yes")
	}
	fmt.Printf("Entries:     %d (%d errors)\n", rec.Stats.TotalEntries, rec.Stats.ErrorCount)

	if len(b.Entries) == 0 {
		return
	}

	fmt.Println()
	for _, e := range b.Entries {
		line := fmt.Sprintf("%s  %-15s %s",
			e.Timestamp.Format("15:04:05.000"), e.Type, e.Message)
		if e.Error != "" && e.Error != e.Message {
			line += " | " + e.Error
		}
		if e.URL != "" {
			line += " | " + e.URL
		}
		if e.Status != 0 {
			line += fmt.Sprintf(" [%d]", e.Status)
		}
		fmt.Println(line)
		if e.Stack != "" {
			for _, sl := range strings.Split(strings.TrimRight(e.Stack, "\n"), "\n") {
				fmt.Printf("    %s\n", sl)
			}
		}
	}
}

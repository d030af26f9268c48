// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Command strata runs and validates stack distributions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigPath   string
	ManifestPath string
	JSON         bool
	Help         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		ensureNoArgs(args[1:])
		runServe(ctx, global)
	case "validate":
		ensureNoArgs(args[1:])
		runValidate(global)
	case "version":
		fmt.Println(version)
	case "help":
		printUsage()
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ManifestPath: getenv("STRATA_MANIFEST", "strata.yaml"),
		ConfigPath:   getenv("STRATA_CONFIG", ""),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--manifest":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --manifest")
			}
			flags.ManifestPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--manifest="):
			flags.ManifestPath = strings.TrimPrefix(arg, "--manifest=")
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}

func printUsage() {
	fmt.Println(`Strata stack server

Usage:
  strata [global flags] <command>

Global flags:
  --manifest <path>    Provider manifest (default strata.yaml, env STRATA_MANIFEST)
  --config <path>      Server config YAML (env STRATA_CONFIG)
  --json               JSON output

Commands:
  run          Resolve the manifest and serve the stack over HTTP
  validate     Check config and manifest without serving
  version      Print version
  help         Print this help`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/yelix-cloud/yelix-sdk-go/pkg/config"
	"github.com/yelix-cloud/yelix-sdk-go/pkg/logger"
	"github.com/yelix-cloud/yelix-sdk-go/pkg/telemetry"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "send":
		err = commandSend(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandSend(args []string) error {
	cfg := config.LoadSDKConfig()

	fs := flag.NewFlagSet("send", flag.ExitOnError)
	collectorURL := fs.String("collector", cfg.CollectorURL, "Collector base URL")
	apiKey := fs.String("key", cfg.APIKey, "Account API key")
	environment := fs.String("environment", cfg.Environment, "Deployment environment")
	schemaJSON := fs.String("schema", "{}", "Instance schema as JSON")
	method := fs.String("method", "GET", "Request method")
	path := fs.String("path", "/", "Request path")
	duration := fs.Float64("duration", 0, "Request duration in milliseconds")
	timeout := fs.Duration("timeout", 15*time.Second, "Overall deadline")
	verbose := fs.Bool("verbose", false, "Log state transitions")
	fs.Parse(args)

	if strings.TrimSpace(*apiKey) == "" {
		return errors.New("--key (or YELIX_API_KEY) is required")
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(*schemaJSON), &schema); err != nil {
		return fmt.Errorf("parse --schema: %w", err)
	}

	cfg.CollectorURL = *collectorURL
	cfg.APIKey = *apiKey

	opts := []telemetry.Option{}
	if *verbose {
		opts = append(opts, telemetry.WithLogger(logger.New("yelix-telemetry", slog.LevelInfo)))
	}
	client, err := telemetry.New(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sub := client.Submit(telemetry.Event{
		StartTime: time.Now().UnixMilli(),
		Method:    strings.ToUpper(strings.TrimSpace(*method)),
		Path:      *path,
		Duration:  *duration,
	})
	if sub.Bootstrap == nil {
		return errors.New("client unexpectedly initialized before first submission")
	}
	if err := sub.Bootstrap.Run(ctx, *environment, schema); err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	fmt.Printf("event delivered to %s (%s %s)\n", *collectorURL, *method, *path)
	return nil
}

func printVersion() {
	fmt.Printf("yelix-telemetry %s\n", buildVersion)
}

func printUsage() {
	fmt.Print(`yelix-telemetry - submit request telemetry to a Yelix collector

Usage:
  yelix-telemetry send [--collector URL] [--key KEY] [--environment ENV]
                       [--schema JSON] [--method M] [--path P] [--duration MS]
  yelix-telemetry version

Environment variables (flag defaults):
  YELIX_COLLECTOR_URL, YELIX_API_KEY, YELIX_ENVIRONMENT
`)
}

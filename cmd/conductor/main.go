// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// The conductor server exposes the decision engine, response policy,
// agent router, and memory surfaces over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/apexstack/conductor/services/conductor"
	"github.com/apexstack/conductor/services/conductor/config"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file (defaults apply when empty)")
	flag.Parse()

	if envPath := os.Getenv("CONDUCTOR_CONFIG"); *configPath == "" && envPath != "" {
		*configPath = envPath
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load configuration: %v", err)
	}

	svc, err := conductor.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the conductor: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
	}()

	if err := svc.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

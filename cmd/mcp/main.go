// Package main serves the oracle tools over MCP stdio.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/louisbranch/oracles/internal/cmd/mcp"
	platformcmd "github.com/louisbranch/oracles/internal/platform/cmd"
	"github.com/louisbranch/oracles/internal/platform/config"
)

func main() {
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	// stdout carries the protocol; logs go to stderr.
	log.SetOutput(os.Stderr)
	log.SetPrefix("[MCP] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
		return mcpcmd.Run(ctx, cfg)
	}); err != nil {
		config.Exitf("failed to serve MCP: %v", err)
	}
}

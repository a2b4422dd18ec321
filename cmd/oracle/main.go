// Package main rolls oracles from the command line.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	oraclecmd "github.com/louisbranch/oracles/internal/cmd/oracle"
	platformcmd "github.com/louisbranch/oracles/internal/platform/cmd"
	"github.com/louisbranch/oracles/internal/platform/config"
)

func main() {
	cfg, err := oraclecmd.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[ORACLE] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceOracle, func(ctx context.Context) error {
		return oraclecmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	}); err != nil {
		config.Exitf("Error: %v", err)
	}
}

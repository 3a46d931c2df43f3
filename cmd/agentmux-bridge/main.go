// Command agentmux-bridge is the per-agent sidecar of spec.md §4.J: a
// hosted agent's MCP client talks to this process over stdio, and it
// relays JSON-RPC requests to the real tool server's Unix socket once it
// can find one, serving a static tool catalog in the meantime so the
// agent's harness never sees a broken connection at startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentmux/agentmux/internal/bridge"
	"github.com/agentmux/agentmux/internal/config"
	"github.com/agentmux/agentmux/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentmux-bridge: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(logging.DefaultConfig(cfg.LogDir, cfg.Pid)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b := bridge.New(os.Stdin, os.Stdout, cfg.Socket, cfg.DiscoveryDir, cfg.LegacyDiscover)
	b.OnLog = func(msg string) {
		logging.Info().Str("component", "bridge").Msg(msg)
	}

	return b.Run(ctx)
}

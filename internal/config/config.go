// Package config resolves agentmux's environment-variable-driven
// configuration (spec.md §6). There is no on-disk config file: every
// setting is an env var with a computed default, mirroring the shape of
// the teacher's Config/Load split between raw input and resolved fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	defaultScrollback = 10000
	appName           = "agentmux"
)

// Config holds everything read from the environment at startup, plus the
// paths derived from it (socket path, discovery directory).
type Config struct {
	// Rows is the virtual row count handed to child PTYs. Zero means "use
	// the physical terminal's row count at spawn time".
	Rows int
	// Scrollback is the per-grid scrollback_max.
	Scrollback int
	// Socket is an explicit override for the tool server's socket path.
	Socket string
	// AgentType / AgentID seed the bridge's own identity when this process
	// is itself hosted as an agent (nested agentmux sessions).
	AgentType string
	AgentID   string
	// ForceColor is propagated to every spawned child's environment.
	ForceColor bool

	// Resolved, not read directly from any single env var.
	Pid            int
	SocketPath     string
	DiscoveryDir   string
	LegacyDiscover string
	LogDir         string
}

// Load reads spec.md §6's recognized environment variables and resolves
// the derived filesystem paths.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	pid := os.Getpid()
	cfg := &Config{
		Rows:       envInt("AGENTMUX_ROWS", 0),
		Scrollback: envInt("AGENTMUX_SCROLLBACK", defaultScrollback),
		Socket:     os.Getenv("AGENTMUX_MCP_SOCKET"),
		AgentType:  os.Getenv("AGENTMUX_AGENT_TYPE"),
		AgentID:    os.Getenv("AGENTMUX_AGENT_ID"),
		ForceColor: os.Getenv("FORCE_COLOR") == "1",
		Pid:        pid,
	}

	cfg.SocketPath = cfg.Socket
	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-mcp-%d.sock", appName, pid))
	}
	cfg.DiscoveryDir = filepath.Join(home, "."+appName, "sockets")
	cfg.LegacyDiscover = filepath.Join(home, "."+appName+"-mcp-socket")
	cfg.LogDir = filepath.Join(home, "."+appName, "logs")

	return cfg, nil
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ChildEnv returns the environment to hand to a spawned agent PTY: the
// process's own environment plus FORCE_COLOR when requested.
func (c *Config) ChildEnv() []string {
	env := os.Environ()
	if c.ForceColor {
		env = append(env, "FORCE_COLOR=1")
	}
	return env
}

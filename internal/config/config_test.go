package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AGENTMUX_ROWS", "")
	t.Setenv("AGENTMUX_SCROLLBACK", "")
	t.Setenv("AGENTMUX_MCP_SOCKET", "")
	t.Setenv("FORCE_COLOR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scrollback != defaultScrollback {
		t.Fatalf("Scrollback = %d, want %d", cfg.Scrollback, defaultScrollback)
	}
	if cfg.Rows != 0 {
		t.Fatalf("Rows = %d, want 0", cfg.Rows)
	}
	if cfg.SocketPath == "" {
		t.Fatal("SocketPath is empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AGENTMUX_ROWS", "40")
	t.Setenv("AGENTMUX_SCROLLBACK", "500")
	t.Setenv("AGENTMUX_MCP_SOCKET", "/tmp/custom.sock")
	t.Setenv("FORCE_COLOR", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rows != 40 {
		t.Fatalf("Rows = %d, want 40", cfg.Rows)
	}
	if cfg.Scrollback != 500 {
		t.Fatalf("Scrollback = %d, want 500", cfg.Scrollback)
	}
	if cfg.SocketPath != "/tmp/custom.sock" {
		t.Fatalf("SocketPath = %q, want /tmp/custom.sock", cfg.SocketPath)
	}
	if !cfg.ForceColor {
		t.Fatal("ForceColor = false, want true")
	}
}

func TestEnvIntRejectsNonPositive(t *testing.T) {
	t.Setenv("AGENTMUX_SCROLLBACK", "-5")
	if got := envInt("AGENTMUX_SCROLLBACK", defaultScrollback); got != defaultScrollback {
		t.Fatalf("envInt = %d, want default %d", got, defaultScrollback)
	}
}

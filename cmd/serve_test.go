package cmd

import (
	"testing"
)

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Failed to find serve command: %v", err)
	}

	tests := []struct {
		flag       string
		shorthand  string
		defaultVal string
	}{
		{flag: "port", shorthand: "p", defaultVal: "8080"},
		{flag: "host", defaultVal: "0.0.0.0"},
		{flag: "workers", defaultVal: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := serveCmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("Expected %s flag to be registered", tt.flag)
			}
			if f.Shorthand != tt.shorthand {
				t.Errorf("Expected shorthand %q, got %q", tt.shorthand, f.Shorthand)
			}
			if f.DefValue != tt.defaultVal {
				t.Errorf("Expected default %q, got %q", tt.defaultVal, f.DefValue)
			}
		})
	}
}

func TestBuildApp(t *testing.T) {
	setupCLIEnv(t)
	cmd := NewRootCmd()
	state := &runtimeState{}
	if err := state.load(cmd); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	a, err := buildApp(t.Context(), state.cfg, state.logger)
	if err != nil {
		t.Fatalf("buildApp failed: %v", err)
	}
	defer a.Close()

	if a.transcription == nil || a.jobs == nil || a.usage == nil || a.platform == nil {
		t.Fatal("Expected every service to be wired")
	}
	if err := a.db.HealthCheck(); err != nil {
		t.Errorf("Expected a healthy database: %v", err)
	}

	ledger, err := a.usage.Ledger(t.Context(), "anonymous")
	if err != nil {
		t.Fatalf("Ledger failed: %v", err)
	}
	if ledger.MinutesGranted != state.cfg.Usage.DefaultGrantedMinutes {
		t.Errorf("Expected default grant %d, got %d", state.cfg.Usage.DefaultGrantedMinutes, ledger.MinutesGranted)
	}
}

func TestBuildApp_RedisLedgerUnreachable(t *testing.T) {
	setupCLIEnv(t)
	t.Setenv("READTUBE_USAGE_BACKEND", "redis")
	t.Setenv("READTUBE_USAGE_REDIS_URL", "redis://127.0.0.1:1/0")

	cmd := NewRootCmd()
	state := &runtimeState{}
	if err := state.load(cmd); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if _, err := buildApp(t.Context(), state.cfg, state.logger); err == nil {
		t.Error("Expected an error for an unreachable ledger")
	}
}

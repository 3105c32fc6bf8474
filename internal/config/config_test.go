package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pass-service.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != ":8081" || cfg.Push.Limit != 10 || cfg.Push.Window != 24*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Pass.BarcodeEncoding != "ascii" {
		t.Fatalf("barcode encoding = %q", cfg.Pass.BarcodeEncoding)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
bind: ":9000"
pass:
  pass_type_identifier: pass.com.example.loyalty
  team_identifier: TEAM123456
  barcode_encoding: utf-8
push:
  limit: 5
  window: 1h
wallet:
  rate_window: 30s
`)
	t.Setenv("PUSH_LIMIT", "7")
	t.Setenv("ENABLE_SWAGGER", "true")
	cfg, err := Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != ":9000" || cfg.Pass.TeamIdentifier != "TEAM123456" || cfg.Pass.BarcodeEncoding != "utf-8" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Push.Limit != 7 || cfg.Push.Window != time.Hour {
		t.Fatalf("push = %+v", cfg.Push)
	}
	if cfg.Wallet.RateWindow != 30*time.Second || cfg.Wallet.RateLimit != 60 {
		t.Fatalf("wallet = %+v", cfg.Wallet)
	}
	if !cfg.EnableSwagger {
		t.Fatalf("env must override file")
	}
}

func TestLoadBindFlagWins(t *testing.T) {
	t.Setenv("BIND", ":7000")
	cfg, err := Load([]string{"--bind", ":7001"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != ":7001" {
		t.Fatalf("bind = %q", cfg.Bind)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "unknown key", file: "bnd: x\n", want: "bnd"},
		{name: "bad encoding", env: map[string]string{"BARCODE_ENCODING": "ebcdic"}, want: "ebcdic"},
		{name: "bad duration", env: map[string]string{"PUSH_WINDOW": "soon"}, want: "PUSH_WINDOW"},
		{name: "short secret", env: map[string]string{"TOKEN_SECRET": "short"}, want: "token_secret"},
		{name: "both cert sources", file: "certificates:\n  p12_path: a.p12\n  cert_path: a.pem\n", want: "not both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []string
			if tt.file != "" {
				args = []string{"--config", writeFile(t, tt.file)}
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLogValueHidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.Pass.TokenSecret = "super-secret-token-material"
	cfg.Certificates.P12Password = "hunter2"
	cfg.DatabaseURL = "postgres://u:dbpass@h/db"
	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("config loaded", "config", cfg)
	out := buf.String()
	for _, secret := range []string{"super-secret", "hunter2", "dbpass"} {
		if strings.Contains(out, secret) {
			t.Fatalf("secret %q leaked: %s", secret, out)
		}
	}
}

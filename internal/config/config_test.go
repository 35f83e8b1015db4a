package config

import (
	"strings"
	"testing"
)

func TestLoadProxmoxFromEnv(t *testing.T) {
	t.Setenv("PROXMOX_URL", "https://pve.example.com:8006")
	t.Setenv("PROXMOX_USER", "root@pam")
	t.Setenv("PROXMOX_PASSWORD", "secret")
	t.Setenv("PROXMOX_VERIFY_SSL", "true")
	t.Setenv("MCP_TRANSPORT", "sse")
	t.Setenv("MCP_PORT", "9000")

	cfg, err := LoadProxmox()
	if err != nil {
		t.Fatalf("LoadProxmox: %v", err)
	}
	if cfg.URL != "https://pve.example.com:8006" || cfg.User != "root@pam" || cfg.Password != "secret" {
		t.Errorf("credentials not loaded: %+v", cfg)
	}
	if !cfg.VerifySSL {
		t.Error("verify_ssl not loaded")
	}
	if cfg.Transport != "sse" || cfg.Port != 9000 {
		t.Errorf("shared transport settings not loaded: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestProxmoxDefaults(t *testing.T) {
	cfg, err := LoadProxmox()
	if err != nil {
		t.Fatalf("LoadProxmox: %v", err)
	}
	if cfg.Transport != TransportStdio {
		t.Errorf("default transport = %q", cfg.Transport)
	}
	if cfg.Port != 8000 {
		t.Errorf("default port = %d", cfg.Port)
	}
	if cfg.SSHPort != 22 {
		t.Errorf("default ssh port = %d", cfg.SSHPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level = %q", cfg.LogLevel)
	}
}

func TestValidateNamesVariables(t *testing.T) {
	cfg := &Proxmox{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty credentials")
	}
	for _, name := range []string{"PROXMOX_URL", "PROXMOX_USER", "PROXMOX_PASSWORD"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestLoadDocumentDefaults(t *testing.T) {
	cfg, err := LoadDocument()
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if cfg.TemplatesDir != "/app/templates" || cfg.OutputsDir != "/app/outputs" {
		t.Errorf("default dirs: %+v", cfg)
	}
}

func TestLoadDocumentFromEnv(t *testing.T) {
	t.Setenv("DOCUMENT_TEMPLATES_DIR", "/srv/tpl")
	t.Setenv("DOCUMENT_OUTPUTS_DIR", "/srv/out")

	cfg, err := LoadDocument()
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if cfg.TemplatesDir != "/srv/tpl" || cfg.OutputsDir != "/srv/out" {
		t.Errorf("env dirs not loaded: %+v", cfg)
	}
}

func TestNormalizedTransport(t *testing.T) {
	cases := map[string]string{
		"sse":     TransportSSE,
		"SSE":     TransportSSE,
		"stdio":   TransportStdio,
		"":        TransportStdio,
		"carrier": TransportStdio,
	}
	for in, want := range cases {
		if got := NormalizedTransport(in); got != want {
			t.Errorf("NormalizedTransport(%q) = %q, want %q", in, got, want)
		}
	}
}

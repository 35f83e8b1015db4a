// Package config loads service configuration from environment variables,
// an optional YAML config file, and defaults.
//
// Load functions return an explicit immutable Config value that callers
// pass to constructors. There is no package-level global: credentials are
// wired once at startup and never mutated afterwards.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Transport selects how the MCP server is exposed.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Proxmox holds configuration for the Proxmox relay.
type Proxmox struct {
	// URL is the Proxmox API base URL, e.g. https://pve.example.com:8006.
	URL string `mapstructure:"url"`

	// User is the Proxmox account, e.g. root@pam.
	User string `mapstructure:"user"`

	// Password is the Proxmox account password.
	Password string `mapstructure:"password"`

	// VerifySSL controls TLS certificate verification of the API endpoint.
	VerifySSL bool `mapstructure:"verify_ssl"`

	// SSHUser is the guest account used by the SSH fallback.
	SSHUser string `mapstructure:"ssh_user"`

	// SSHPassword is the guest password for the SSH fallback.
	SSHPassword string `mapstructure:"ssh_password"`

	// SSHKeyFile is a private key file used instead of SSHPassword when set.
	SSHKeyFile string `mapstructure:"ssh_key_file"`

	// SSHPort is the guest SSH port.
	SSHPort int `mapstructure:"ssh_port"`

	// Transport is the MCP transport: stdio or sse.
	Transport string `mapstructure:"transport"`

	// Port is the listen port for the sse transport.
	Port int `mapstructure:"port"`

	// LogLevel is the zerolog level name.
	LogLevel string `mapstructure:"log_level"`
}

// Document holds configuration for the document relay.
type Document struct {
	// TemplatesDir is where document templates are read from.
	TemplatesDir string `mapstructure:"templates_dir"`

	// OutputsDir is where generated documents are written.
	OutputsDir string `mapstructure:"outputs_dir"`

	// Transport is the MCP transport: stdio or sse.
	Transport string `mapstructure:"transport"`

	// Port is the listen port for the sse transport.
	Port int `mapstructure:"port"`

	// LogLevel is the zerolog level name.
	LogLevel string `mapstructure:"log_level"`
}

// LoadProxmox reads Proxmox relay configuration.
//
// Environment variables use the PROXMOX_ prefix (PROXMOX_URL,
// PROXMOX_USER, PROXMOX_PASSWORD, ...) except the shared MCP_TRANSPORT,
// MCP_PORT, and LOG_LEVEL names kept for compatibility with existing
// deployments.
func LoadProxmox() (*Proxmox, error) {
	v := newViper("PROXMOX")

	v.SetDefault("url", "")
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("verify_ssl", false)
	v.SetDefault("ssh_user", "")
	v.SetDefault("ssh_password", "")
	v.SetDefault("ssh_key_file", "")
	v.SetDefault("ssh_port", 22)
	bindShared(v)

	if err := readOptionalConfigFile(v, "proxmox-mcp"); err != nil {
		return nil, err
	}

	cfg := &Proxmox{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse proxmox config: %w", err)
	}
	return cfg, nil
}

// LoadDocument reads document relay configuration.
//
// Environment variables use the DOCUMENT_ prefix plus the shared
// MCP_TRANSPORT, MCP_PORT, and LOG_LEVEL names.
func LoadDocument() (*Document, error) {
	v := newViper("DOCUMENT")

	v.SetDefault("templates_dir", "/app/templates")
	v.SetDefault("outputs_dir", "/app/outputs")
	bindShared(v)

	if err := readOptionalConfigFile(v, "document-mcp"); err != nil {
		return nil, err
	}

	cfg := &Document{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse document config: %w", err)
	}
	return cfg, nil
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// bindShared wires the transport settings that both relays share.
// MCP_TRANSPORT, MCP_PORT, and LOG_LEVEL are bound without the service
// prefix; the defaults match the stdio deployment.
func bindShared(v *viper.Viper) {
	v.SetDefault("transport", TransportStdio)
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.BindEnv("transport", "MCP_TRANSPORT")
	v.BindEnv("port", "MCP_PORT")
	v.BindEnv("log_level", "LOG_LEVEL")
}

// readOptionalConfigFile loads <name>.yaml from the working directory or
// /etc/mcp if present. A missing file is not an error.
func readOptionalConfigFile(v *viper.Viper, name string) error {
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/mcp")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Validate checks that the credentials required for API access are set.
// It is called per tool invocation so that a misconfigured server still
// starts and reports the problem through tool results.
func (c *Proxmox) Validate() error {
	if c.URL == "" || c.User == "" || c.Password == "" {
		return fmt.Errorf("missing Proxmox credentials: set PROXMOX_URL, PROXMOX_USER, and PROXMOX_PASSWORD")
	}
	return nil
}

// NormalizedTransport returns the transport name lowercased, defaulting
// to stdio for unknown values.
func NormalizedTransport(transport string) string {
	if strings.EqualFold(transport, TransportSSE) {
		return TransportSSE
	}
	return TransportStdio
}

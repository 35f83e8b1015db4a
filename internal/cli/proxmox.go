package cli

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rezytijo/mcp-collection/internal/config"
	"github.com/rezytijo/mcp-collection/internal/logging"
	"github.com/rezytijo/mcp-collection/internal/proxmox"
	"github.com/rezytijo/mcp-collection/internal/relay"
	"github.com/rezytijo/mcp-collection/internal/sshexec"
	"github.com/rezytijo/mcp-collection/internal/tools/proxtools"
	"github.com/rezytijo/mcp-collection/internal/version"
)

var proxmoxCmd = &cobra.Command{
	Use:   "proxmox-mcp",
	Short: "MCP server for Proxmox VE administration",
	Long: `proxmox-mcp exposes Proxmox VE administration as MCP tools: node and
guest listing, VM lifecycle, snapshots, backups, firewall rules, and
command execution inside guests via the QEMU guest agent with an
SSH/SFTP fallback.

Credentials come from PROXMOX_URL, PROXMOX_USER, and PROXMOX_PASSWORD;
the optional SSH fallback uses PROXMOX_SSH_USER plus PROXMOX_SSH_PASSWORD
or PROXMOX_SSH_KEY_FILE.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runProxmox,
}

func init() {
	addTransportFlags(proxmoxCmd)
	proxmoxCmd.AddCommand(newVersionCmd("proxmox-mcp"))
}

// ExecuteProxmox runs the proxmox-mcp root command.
func ExecuteProxmox() error {
	return proxmoxCmd.Execute()
}

func runProxmox(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadProxmox()
	if err != nil {
		return err
	}
	applyTransportFlags(cmd, &cfg.Transport, &cfg.Port, &cfg.LogLevel)

	logger := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := proxmox.NewClient(proxmox.Options{
		URL:       cfg.URL,
		User:      cfg.User,
		Password:  cfg.Password,
		VerifySSL: cfg.VerifySSL,
	})
	if err != nil {
		return fmt.Errorf("build Proxmox client: %w", err)
	}

	// The SSH fallback is optional; a missing credential set is carried
	// into the service so tools can report exactly what to configure.
	var runner proxtools.SSHRunner
	sshClient, sshErr := sshexec.NewClient(sshexec.Config{
		User:     cfg.SSHUser,
		Password: cfg.SSHPassword,
		KeyFile:  cfg.SSHKeyFile,
		Port:     cfg.SSHPort,
	})
	if sshErr == nil {
		runner = sshClient
	} else {
		logger.Warn().Err(sshErr).Msg("SSH fallback disabled")
	}

	svc := proxtools.NewService(client, runner, sshErr)

	s := mcpserver.NewMCPServer("proxmox", version.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithToolHandlerMiddleware(relay.LoggingMiddleware(logger)),
	)
	svc.Register(s)

	logger.Info().Str("host", client.Host()).Msg("starting Proxmox MCP server")
	return serveTransport(s, cfg.Transport, cfg.Port, logger)
}

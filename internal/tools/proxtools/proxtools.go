// Package proxtools registers the Proxmox administration tools on an
// MCP server. Handlers validate arguments, call the API client, and
// render one formatted status string per call; guest-agent tools fall
// back to SSH/SFTP when the agent does not answer.
package proxtools

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/proxmox"
)

// SSHRunner is the SSH/SFTP fallback surface. Nil on a Service means no
// credentials were configured.
type SSHRunner interface {
	Run(host, command string) (output string, exitCode int, err error)
	ReadFile(host, path string) (string, error)
	WriteFile(host, path, content string) error
}

// Service holds the shared state behind all Proxmox tools.
type Service struct {
	Client *proxmox.Client

	// SSH is the fallback runner; SSHErr explains its absence when nil.
	SSH    SSHRunner
	SSHErr error

	// ProbeTimeout bounds the pre-flight TCP check in list-nodes.
	ProbeTimeout time.Duration

	// Poll pacing for agent exec. Command execution polls every
	// ExecInterval up to ExecRetries times; software installs get the
	// longer InstallInterval/InstallRetries budget.
	ExecInterval    time.Duration
	ExecRetries     int
	InstallInterval time.Duration
	InstallRetries  int
}

// NewService builds a Service with the production poll pacing.
func NewService(client *proxmox.Client, ssh SSHRunner, sshErr error) *Service {
	return &Service{
		Client:          client,
		SSH:             ssh,
		SSHErr:          sshErr,
		ProbeTimeout:    3 * time.Second,
		ExecInterval:    time.Second,
		ExecRetries:     30,
		InstallInterval: 2 * time.Second,
		InstallRetries:  60,
	}
}

// Register adds every Proxmox tool to the server.
func (s *Service) Register(srv *server.MCPServer) {
	s.registerCluster(srv)
	s.registerLifecycle(srv)
	s.registerSnapshots(srv)
	s.registerBackups(srv)
	s.registerGuest(srv)
	s.registerFirewall(srv)
}

const (
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
	passwordSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// generatePassword returns a 12-character random password guaranteed to
// contain a lowercase letter, an uppercase letter, a digit, and a
// symbol.
func generatePassword() string {
	alphabet := passwordLower + passwordUpper + passwordDigits + passwordSymbols
	for {
		var b strings.Builder
		for i := 0; i < 12; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				panic(err) // crypto/rand failure is unrecoverable
			}
			b.WriteByte(alphabet[n.Int64()])
		}
		pw := b.String()
		if strings.ContainsAny(pw, passwordLower) &&
			strings.ContainsAny(pw, passwordUpper) &&
			strings.ContainsAny(pw, passwordDigits) &&
			strings.ContainsAny(pw, passwordSymbols) {
			return pw
		}
	}
}

// passwordLine reports how the guest credential was chosen.
func passwordLine(password string, generated bool) string {
	if generated {
		return "🔑 **Generated Password**: `" + password + "`"
	}
	return "🔑 **Password**: (Set by user)"
}

func missing(args ...string) bool {
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			return true
		}
	}
	return false
}

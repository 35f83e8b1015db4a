// Package sshexec is the SSH/SFTP fallback used when the QEMU guest
// agent is unavailable: shell command execution with a bounded timeout
// and file read/write over SFTP.
//
// Authentication is password or private key. Host keys are not verified:
// the relay talks to freshly cloned guests whose keys are not known in
// advance, and the connection already rides inside the management
// network.
package sshexec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ErrNoCredentials reports that neither a password nor a key file is
// configured. The message names the variables so the tool result can
// tell the operator exactly what to set.
var ErrNoCredentials = errors.New("sshexec: no SSH credentials configured; set PROXMOX_SSH_USER and PROXMOX_SSH_PASSWORD or PROXMOX_SSH_KEY_FILE")

// Config holds the fallback connection settings.
type Config struct {
	User     string
	Password string
	KeyFile  string
	Port     int

	// ConnectTimeout bounds the TCP/handshake phase (default 10s).
	ConnectTimeout time.Duration

	// CommandTimeout bounds a single command execution (default 60s).
	CommandTimeout time.Duration
}

// Client runs commands and transfers files over SSH.
type Client struct {
	cfg Config
}

// NewClient validates the credential configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.User == "" || (cfg.Password == "" && cfg.KeyFile == "") {
		return nil, ErrNoCredentials
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 60 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// clientConfig builds the ssh.ClientConfig, preferring key auth when a
// key file is configured.
func (c *Client) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if c.cfg.KeyFile != "" {
		key, err := os.ReadFile(c.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sshexec: read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sshexec: parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.cfg.Password != "" {
		auth = append(auth, ssh.Password(c.cfg.Password))
	}

	return &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.ConnectTimeout,
	}, nil
}

func (c *Client) dial(host string) (*ssh.Client, error) {
	cfg, err := c.clientConfig()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", c.cfg.Port))
	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("sshexec: dial %s: %w", addr, err)
	}
	return conn, nil
}

// Run executes a shell command on the host and returns combined output
// and the exit code. The command is killed client-side when
// CommandTimeout elapses; the session close may leave the remote
// process running, mirroring the agent poll-loop semantics.
func (c *Client) Run(host, command string) (output string, exitCode int, err error) {
	conn, err := c.dial(host)
	if err != nil {
		return "", -1, err
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return "", -1, fmt.Errorf("sshexec: open session: %w", err)
	}
	defer session.Close()

	var buf bytes.Buffer
	session.Stdout = &buf
	session.Stderr = &buf

	if err := session.Start(command); err != nil {
		return "", -1, fmt.Errorf("sshexec: start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err = <-done:
	case <-time.After(c.cfg.CommandTimeout):
		session.Close()
		return buf.String(), -1, fmt.Errorf("sshexec: command timed out after %s", c.cfg.CommandTimeout)
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return buf.String(), exitErr.ExitStatus(), nil
		}
		return buf.String(), -1, fmt.Errorf("sshexec: command failed: %w", err)
	}
	return buf.String(), 0, nil
}

// ReadFile reads a remote file over SFTP.
func (c *Client) ReadFile(host, path string) (string, error) {
	conn, err := c.dial(host)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return "", fmt.Errorf("sshexec: open sftp: %w", err)
	}
	defer client.Close()

	f, err := client.Open(path)
	if err != nil {
		return "", fmt.Errorf("sshexec: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("sshexec: read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes a remote file over SFTP, creating parent directories
// as needed.
func (c *Client) WriteFile(host, path, content string) error {
	conn, err := c.dial(host)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("sshexec: open sftp: %w", err)
	}
	defer client.Close()

	if dir := sftpDir(path); dir != "" {
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("sshexec: mkdir %s: %w", dir, err)
		}
	}

	f, err := client.Create(path)
	if err != nil {
		return fmt.Errorf("sshexec: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(content)); err != nil {
		return fmt.Errorf("sshexec: write %s: %w", path, err)
	}
	return nil
}

// sftpDir returns the parent directory of a remote path using forward
// slashes regardless of the local OS.
func sftpDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

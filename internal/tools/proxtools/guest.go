package proxtools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/proxmox"
	"github.com/rezytijo/mcp-collection/internal/relay"
)

// installRecipes maps a software name to the shell command that installs
// it inside the guest.
var installRecipes = map[string]string{
	"docker":           "curl -fsSL https://get.docker.com | sh",
	"nginx":            "apt-get update && apt-get install -y nginx",
	"update":           "apt-get update && apt-get upgrade -y",
	"wordpress_docker": "docker run -d --name wordpress -p 80:80 -e WORDPRESS_DB_HOST=host.docker.internal -e WORDPRESS_DB_USER=root -e WORDPRESS_DB_PASSWORD=root wordpress",
}

func (s *Service) registerGuest(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("proxmox_execute_command",
		mcp.WithDescription("Execute a shell command inside a VM via the QEMU guest agent, with SSH fallback"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("command", mcp.Required(), mcp.Description("Shell command to run")),
		mcp.WithString("ssh_host", mcp.Description("Guest address for the SSH fallback when the agent is down")),
	), s.executeCommand)

	srv.AddTool(mcp.NewTool("proxmox_install_software",
		mcp.WithDescription("Install software inside a VM using the QEMU guest agent"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("software", mcp.Required(), mcp.Description("One of: docker, nginx, update, wordpress_docker")),
	), s.installSoftware)

	srv.AddTool(mcp.NewTool("proxmox_read_file_vm",
		mcp.WithDescription("Read text content from a path inside the VM via the guest agent, with SFTP fallback"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Absolute path inside the guest")),
		mcp.WithString("ssh_host", mcp.Description("Guest address for the SFTP fallback when the agent is down")),
	), s.readFileVM)

	srv.AddTool(mcp.NewTool("proxmox_write_file_vm",
		mcp.WithDescription("Write content to a path inside the VM via the guest agent, with SFTP fallback"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Absolute path inside the guest")),
		mcp.WithString("content", mcp.Description("File content to write")),
		mcp.WithString("ssh_host", mcp.Description("Guest address for the SFTP fallback when the agent is down")),
	), s.writeFileVM)
}

// fallbackBlocked reports why the SSH fallback cannot run after an
// agent-unavailable condition, or nil when it can. The message names
// exactly what is missing.
func (s *Service) fallbackBlocked(vmid, host string) *relay.Error {
	if s.SSH == nil {
		return relay.Validationf("QEMU Guest Agent is not running on VM %s and the SSH fallback is not configured (%v)", vmid, s.SSHErr)
	}
	if strings.TrimSpace(host) == "" {
		return relay.Validationf("QEMU Guest Agent is not running on VM %s. Provide ssh_host to use the SSH fallback", vmid)
	}
	return nil
}

func (s *Service) executeCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	command := req.GetString("command", "")
	sshHost := req.GetString("ssh_host", "")

	if missing(node, vmid, command) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and command are required.")), nil
	}

	// The fallback decision is made here and only here. Later failures
	// (exec errors, poll timeout) never re-route to SSH.
	if err := s.Client.AgentPing(ctx, node, vmid); err != nil {
		if blocked := s.fallbackBlocked(vmid, sshHost); blocked != nil {
			return relay.ErrorResult(blocked), nil
		}
		output, exitCode, err := s.SSH.Run(sshHost, command)
		if err != nil {
			return relay.ErrorResult(relay.Network("SSH fallback failed", err)), nil
		}
		if exitCode != 0 {
			return relay.TextResult(fmt.Sprintf("❌ Command failed (Exit Code %d) [via SSH].\nOutput: %s", exitCode, output)), nil
		}
		return relay.TextResult(fmt.Sprintf("✅ Command executed successfully [via SSH].\nOutput: %s", output)), nil
	}

	pid, err := s.Client.AgentExec(ctx, node, vmid, command)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("executing command", err)), nil
	}

	st, err := s.Client.WaitExec(ctx, node, vmid, pid, s.ExecInterval, s.ExecRetries)
	if err != nil {
		if errors.Is(err, proxmox.ErrExecTimeout) {
			return relay.TextResult(fmt.Sprintf("⏳ Command started (PID %d), but waiting timed out.", pid)), nil
		}
		return relay.ErrorResult(relay.RemoteAPI("executing command", err)), nil
	}

	if st.ExitCode != 0 {
		return relay.TextResult(fmt.Sprintf("❌ Command failed (Exit Code %d).\nError: %s\nOutput: %s",
			st.ExitCode, st.ErrData, st.OutData)), nil
	}
	return relay.TextResult(fmt.Sprintf("✅ Command executed successfully.\nOutput: %s", st.OutData)), nil
}

func (s *Service) installSoftware(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	software := strings.ToLower(req.GetString("software", ""))

	if missing(node, vmid, software) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and software name are required.")), nil
	}

	command, ok := installRecipes[software]
	if !ok {
		return relay.TextResult(fmt.Sprintf("⚠️ Unknown software '%s'. Supported: docker, nginx, update, wordpress_docker.", software)), nil
	}

	if err := s.Client.AgentPing(ctx, node, vmid); err != nil {
		return relay.ErrorResult(relay.Validationf("QEMU Guest Agent is not running on VM %s. Ensure it is installed and the VM is running", vmid)), nil
	}

	pid, err := s.Client.AgentExec(ctx, node, vmid, command)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("executing agent command", err)), nil
	}

	st, err := s.Client.WaitExec(ctx, node, vmid, pid, s.InstallInterval, s.InstallRetries)
	if err != nil {
		if errors.Is(err, proxmox.ErrExecTimeout) {
			return relay.TextResult(fmt.Sprintf("⏳ Installation of '%s' started (PID %d), but timed out waiting for response. Check VM manually.", software, pid)), nil
		}
		return relay.ErrorResult(relay.RemoteAPI("executing agent command", err)), nil
	}

	if st.ExitCode != 0 {
		return relay.TextResult(fmt.Sprintf("❌ Installation failed (Exit Code %d).\nError: %s\nOutput: %s",
			st.ExitCode, st.ErrData, st.OutData)), nil
	}
	return relay.TextResult(fmt.Sprintf("✅ '%s' installed successfully!\nOutput: %s", software, st.OutData)), nil
}

func (s *Service) readFileVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	filePath := req.GetString("file_path", "")
	sshHost := req.GetString("ssh_host", "")

	if missing(node, vmid, filePath) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and File Path are required.")), nil
	}

	if err := s.Client.AgentPing(ctx, node, vmid); err != nil {
		if blocked := s.fallbackBlocked(vmid, sshHost); blocked != nil {
			return relay.ErrorResult(blocked), nil
		}
		content, err := s.SSH.ReadFile(sshHost, filePath)
		if err != nil {
			return relay.ErrorResult(relay.Network("SFTP fallback failed", err)), nil
		}
		return relay.TextResult(fileResult(filePath, content)), nil
	}

	content, err := s.Client.AgentFileRead(ctx, node, vmid, filePath)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("reading file", err)), nil
	}
	return relay.TextResult(fileResult(filePath, content)), nil
}

func (s *Service) writeFileVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	filePath := req.GetString("file_path", "")
	content := req.GetString("content", "")
	sshHost := req.GetString("ssh_host", "")

	if missing(node, vmid, filePath) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and File Path are required.")), nil
	}

	if err := s.Client.AgentPing(ctx, node, vmid); err != nil {
		if blocked := s.fallbackBlocked(vmid, sshHost); blocked != nil {
			return relay.ErrorResult(blocked), nil
		}
		if err := s.SSH.WriteFile(sshHost, filePath, content); err != nil {
			return relay.ErrorResult(relay.Network("SFTP fallback failed", err)), nil
		}
		return relay.TextResult(fmt.Sprintf("✅ File '%s' written successfully.", filePath)), nil
	}

	if err := s.Client.AgentFileWrite(ctx, node, vmid, filePath, content); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("writing file", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("✅ File '%s' written successfully.", filePath)), nil
}

func fileResult(path, content string) string {
	return fmt.Sprintf("📄 **File: %s**\n```\n%s\n```", path, content)
}

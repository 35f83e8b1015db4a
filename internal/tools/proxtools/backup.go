package proxtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/relay"
)

func (s *Service) registerBackups(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("proxmox_create_backup",
		mcp.WithDescription("Trigger a backup (vzdump) for a specific VM or container"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM or container ID")),
		mcp.WithString("storage", mcp.Description("Target storage (default local)")),
		mcp.WithString("mode", mcp.Description("Backup mode (default snapshot)")),
		mcp.WithString("compression", mcp.Description("Compression (default zstd)")),
	), s.createBackup)

	srv.AddTool(mcp.NewTool("proxmox_list_backups",
		mcp.WithDescription("List backup files on a specific node/storage"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("storage", mcp.Required(), mcp.Description("Storage name")),
	), s.listBackups)

	srv.AddTool(mcp.NewTool("proxmox_restore_backup",
		mcp.WithDescription("Restore a VM from a backup file"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Description("Target VMID (auto-selected when omitted)")),
		mcp.WithString("backup_file", mcp.Required(), mcp.Description("Backup volid to restore")),
		mcp.WithString("storage", mcp.Description("Target storage (default local-lvm)")),
	), s.restoreBackup)
}

func (s *Service) createBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	storage := req.GetString("storage", "local")
	mode := req.GetString("mode", "snapshot")
	compression := req.GetString("compression", "zstd")

	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required.")), nil
	}

	upid, err := s.Client.Vzdump(ctx, node, vmid, storage, mode, compression)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("starting backup", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("✅ Backup started for VM %s (Task: %s). Check Proxmox UI for progress.", vmid, upid)), nil
}

func (s *Service) listBackups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	storage := req.GetString("storage", "")
	if missing(node, storage) {
		return relay.ErrorResult(relay.Validationf("Node and Storage are required.")), nil
	}

	items, err := s.Client.StorageContent(ctx, node, storage, "backup")
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing backups", err)), nil
	}

	out := []string{fmt.Sprintf("📦 **Backups on %s**:", storage)}
	for _, item := range items {
		vmid := item.VMID.String()
		if vmid == "" {
			vmid = "unknown"
		}
		out = append(out, fmt.Sprintf("- VM %s: `%s` (%dMB)", vmid, item.VolID, item.Size/1024/1024))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

func (s *Service) restoreBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	backupFile := req.GetString("backup_file", "")
	storage := req.GetString("storage", "local-lvm")

	if missing(node, backupFile) {
		return relay.ErrorResult(relay.Validationf("Node and Backup File (volid) are required.")), nil
	}

	if vmid == "" {
		next, err := s.Client.NextVMID(ctx)
		if err != nil {
			return relay.ErrorResult(relay.RemoteAPI("selecting VMID", err)), nil
		}
		vmid = next
	}

	if err := s.Client.QmRestore(ctx, node, vmid, backupFile, storage); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("restoring backup", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("✅ Restore started for VM %s from %s.", vmid, backupFile)), nil
}

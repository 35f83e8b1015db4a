package proxtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/relay"
)

func (s *Service) registerSnapshots(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("proxmox_create_snapshot",
		mcp.WithDescription("Create a snapshot of a VM"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Snapshot name")),
		mcp.WithString("description", mcp.Description("Snapshot description")),
	), s.createSnapshot)

	srv.AddTool(mcp.NewTool("proxmox_list_snapshots",
		mcp.WithDescription("List all snapshots for a specific VM"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
	), s.listSnapshots)

	srv.AddTool(mcp.NewTool("proxmox_rollback_snapshot",
		mcp.WithDescription("Roll back a VM to a specific snapshot"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("snapshot_name", mcp.Required(), mcp.Description("Snapshot to roll back to")),
	), s.rollbackSnapshot)

	srv.AddTool(mcp.NewTool("proxmox_delete_snapshot",
		mcp.WithDescription("Delete a specific snapshot from a VM"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("snapshot_name", mcp.Required(), mcp.Description("Snapshot to delete")),
	), s.deleteSnapshot)
}

func (s *Service) createSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	name := req.GetString("name", "")
	description := req.GetString("description", "")

	if missing(node, vmid, name) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and snapshot name are required.")), nil
	}

	if err := s.Client.CreateSnapshot(ctx, node, vmid, name, description); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("creating snapshot", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("📸 Snapshot '%s' created for VM %s.", name, vmid)), nil
}

func (s *Service) listSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required.")), nil
	}

	snaps, err := s.Client.ListSnapshots(ctx, node, vmid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing snapshots", err)), nil
	}
	if len(snaps) == 0 {
		return relay.TextResult(fmt.Sprintf("No snapshots found for VM %s.", vmid)), nil
	}

	out := []string{fmt.Sprintf("📸 Snapshots for VM %s:", vmid)}
	for _, snap := range snaps {
		name := snap.Name
		// The API injects a synthetic you-are-here entry.
		if snap.Description == "You are here!" {
			name = "(Current State)"
		}
		desc := snap.Description
		if desc == "" {
			desc = "No description"
		}
		ts := snap.SnapTime.String()
		if ts == "" {
			ts = "Unknown"
		}
		out = append(out, fmt.Sprintf("- %s: %s (Time: %s)", name, desc, ts))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

func (s *Service) rollbackSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	name := req.GetString("snapshot_name", "")
	if missing(node, vmid, name) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and snapshot name are required.")), nil
	}

	if err := s.Client.RollbackSnapshot(ctx, node, vmid, name); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("rolling back snapshot", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("↩️ VM %s rollback to snapshot '%s' initiated.", vmid, name)), nil
}

func (s *Service) deleteSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	name := req.GetString("snapshot_name", "")
	if missing(node, vmid, name) {
		return relay.ErrorResult(relay.Validationf("Node, VMID, and snapshot name are required.")), nil
	}

	if err := s.Client.DeleteSnapshot(ctx, node, vmid, name); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("deleting snapshot", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("🗑️ Snapshot '%s' deleted for VM %s.", name, vmid)), nil
}

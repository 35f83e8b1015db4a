package proxtools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/relay"
)

func (s *Service) registerCluster(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("proxmox_list_nodes",
		mcp.WithDescription("List all nodes in the Proxmox cluster"),
	), s.listNodes)

	srv.AddTool(mcp.NewTool("proxmox_list_vms",
		mcp.WithDescription("List all VMs and LXC containers on a specific node"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
	), s.listVMs)

	srv.AddTool(mcp.NewTool("proxmox_list_storage",
		mcp.WithDescription("List storage usage on a specific node"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
	), s.listStorage)

	srv.AddTool(mcp.NewTool("proxmox_list_content",
		mcp.WithDescription("List ISOs and container templates on a specific storage"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("storage", mcp.Required(), mcp.Description("Storage name")),
	), s.listContent)

	srv.AddTool(mcp.NewTool("proxmox_get_task_status",
		mcp.WithDescription("Get the status and logs of a background task (backup, restore, clone)"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("upid", mcp.Required(), mcp.Description("Task UPID")),
	), s.taskStatus)
}

func (s *Service) listNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Pre-flight reachability check so connection problems surface as a
	// network error instead of an opaque auth failure.
	if err := s.Client.Probe(s.ProbeTimeout); err != nil {
		return relay.ErrorResult(relay.Network(fmt.Sprintf("Could not connect to %s", s.Client.Host()), err)), nil
	}

	nodes, err := s.Client.Nodes(ctx)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing nodes", err)), nil
	}

	out := []string{"📊 Proxmox Nodes:"}
	for _, n := range nodes {
		glyph := "🔴"
		if n.Status == "online" {
			glyph = "🟢"
		}
		out = append(out, fmt.Sprintf("- %s %s (CPU: %.1f%%, RAM: %dMB)",
			glyph, n.Node, n.CPU*100, n.Mem/1024/1024))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

func (s *Service) listVMs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	if missing(node) {
		return relay.ErrorResult(relay.Validationf("Node name is required")), nil
	}

	qemu, err := s.Client.QemuList(ctx, node)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing VMs", err)), nil
	}
	lxc, err := s.Client.LXCList(ctx, node)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing containers", err)), nil
	}

	if len(qemu) == 0 && len(lxc) == 0 {
		return relay.TextResult(fmt.Sprintf("⚠️ No VMs or Containers found on node '%s'.", node)), nil
	}

	out := []string{fmt.Sprintf("📊 VMs on node '%s':", node)}
	for _, vm := range qemu {
		out = append(out, fmt.Sprintf("%s [VM %s] %s - %s", runGlyph(vm.Status), vm.VMID, vm.Name, vm.Status))
	}
	for _, ct := range lxc {
		out = append(out, fmt.Sprintf("%s [LXC %s] %s - %s", runGlyph(ct.Status), ct.VMID, ct.Name, ct.Status))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

func (s *Service) listStorage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	if missing(node) {
		return relay.ErrorResult(relay.Validationf("Node is required")), nil
	}

	storages, err := s.Client.Storages(ctx, node)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing storage", err)), nil
	}

	out := []string{fmt.Sprintf("💾 **Storage on %s**:", node)}
	for _, st := range storages {
		totalGB := st.Total / 1024 / 1024 / 1024
		usedGB := st.Used / 1024 / 1024 / 1024
		percent := 0.0
		if st.Total > 0 {
			percent = float64(st.Used) / float64(st.Total) * 100
		}
		glyph := "🔴"
		if active, _ := st.Active.Int64(); active == 1 {
			glyph = "🟢"
		}
		out = append(out, fmt.Sprintf("- %s **%s**: %dGB / %dGB (%.1f%%) - %s",
			glyph, st.Storage, usedGB, totalGB, percent, st.Type))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

func (s *Service) listContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	storage := req.GetString("storage", "")
	if missing(node, storage) {
		return relay.ErrorResult(relay.Validationf("Node and Storage are required")), nil
	}

	items, err := s.Client.StorageContent(ctx, node, storage, "")
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing content", err)), nil
	}

	var isos, templates []string
	for _, item := range items {
		name := item.VolID
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		switch item.Content {
		case "iso":
			isos = append(isos, name)
		case "vztmpl":
			templates = append(templates, name)
		}
	}

	out := []string{fmt.Sprintf("📦 **Content on %s (Node: %s)**:\n", storage, node)}
	if len(isos) > 0 {
		out = append(out, "💿 **ISOs**:")
		for _, iso := range isos {
			out = append(out, "- "+iso)
		}
	} else {
		out = append(out, "💿 No ISOs found.")
	}
	if len(templates) > 0 {
		out = append(out, "\n📚 **Container Templates (LXC)**:")
		for _, tmpl := range templates {
			out = append(out, "- "+tmpl)
		}
	} else {
		out = append(out, "\n📚 No Container Templates found.")
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

func (s *Service) taskStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	upid := req.GetString("upid", "")
	if missing(node, upid) {
		return relay.ErrorResult(relay.Validationf("Node and UPID are required")), nil
	}

	st, err := s.Client.TaskStatus(ctx, node, upid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("getting task status", err)), nil
	}

	exitStatus := st.ExitStatus
	if exitStatus == "" {
		exitStatus = "Running"
	}

	lines, err := s.Client.TaskLog(ctx, node, upid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("getting task log", err)), nil
	}
	logs := make([]string, 0, len(lines))
	for _, l := range lines {
		logs = append(logs, l.T)
	}

	var glyph string
	switch exitStatus {
	case "OK":
		glyph = "🟢"
	case "Running":
		glyph = "⏳"
	default:
		glyph = "🔴"
	}

	start, _ := st.StartTime.Int64()
	return relay.TextResult(fmt.Sprintf(
		"📋 **Task Status: %s** %s\n**Status**: %s\n**Start Time**: %s\n\n📜 **Log Output**:\n```\n%s\n```",
		upid, glyph, exitStatus, time.Unix(start, 0).Format(time.ANSIC), strings.Join(logs, "\n"))), nil
}

func runGlyph(status string) string {
	if status == "running" {
		return "🟢"
	}
	return "🔴"
}

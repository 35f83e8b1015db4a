package proxtools

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/relay"
)

func (s *Service) registerLifecycle(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("proxmox_start_vm",
		mcp.WithDescription("Start a specific VM or container by ID on a node"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM or container ID")),
	), s.startVM)

	srv.AddTool(mcp.NewTool("proxmox_stop_vm",
		mcp.WithDescription("Stop (shutdown) a specific VM or container by ID on a node"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM or container ID")),
	), s.stopVM)

	srv.AddTool(mcp.NewTool("proxmox_delete_vm",
		mcp.WithDescription("Delete a specific VM or container (must be stopped first)"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM or container ID")),
	), s.deleteVM)

	srv.AddTool(mcp.NewTool("proxmox_create_vm_from_template",
		mcp.WithDescription("Clone a template to create a new VM"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Description("New VMID (auto-selected when omitted)")),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template VMID to clone")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New VM name")),
		mcp.WithString("ip", mcp.Description("Static IP, /24 assumed when no prefix given")),
		mcp.WithNumber("cores", mcp.Description("CPU cores (template default when 0)")),
		mcp.WithNumber("memory", mcp.Description("Memory in MB (template default when 0)")),
		mcp.WithString("disk_size", mcp.Description("Disk size to grow to (default 64G)")),
		mcp.WithString("password", mcp.Description("Cloud-init password (generated when omitted)")),
	), s.createVMFromTemplate)

	srv.AddTool(mcp.NewTool("proxmox_update_vm",
		mcp.WithDescription("Update VM specs (cores, memory) and restart it"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithNumber("cores", mcp.Description("New core count")),
		mcp.WithNumber("memory", mcp.Description("New memory in MB")),
	), s.updateVM)

	srv.AddTool(mcp.NewTool("proxmox_migrate_vm",
		mcp.WithDescription("Migrate a VM or container to another node"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Source node")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM or container ID")),
		mcp.WithString("target_node", mcp.Required(), mcp.Description("Destination node")),
		mcp.WithBoolean("online", mcp.Description("Live migration (default true)")),
	), s.migrateVM)

	srv.AddTool(mcp.NewTool("proxmox_create_lxc",
		mcp.WithDescription("Create a new LXC container"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Description("Container ID (auto-selected when omitted)")),
		mcp.WithString("hostname", mcp.Required(), mcp.Description("Container hostname")),
		mcp.WithString("password", mcp.Description("Root password (generated when omitted)")),
		mcp.WithString("ostemplate", mcp.Required(), mcp.Description("OS template volid")),
		mcp.WithNumber("cores", mcp.Description("CPU cores (default 1)")),
		mcp.WithNumber("memory", mcp.Description("Memory in MB (default 512)")),
		mcp.WithString("storage", mcp.Description("Root storage (default local-lvm)")),
		mcp.WithString("disk_size", mcp.Description("Root disk size (default 8G)")),
		mcp.WithString("net0", mcp.Description("Network config (default name=eth0,bridge=vmbr0,ip=dhcp)")),
	), s.createLXC)

	srv.AddTool(mcp.NewTool("proxmox_get_vm_stats",
		mcp.WithDescription("Get real-time statistics (CPU, RAM, uptime) for a specific VM"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
	), s.vmStats)

	srv.AddTool(mcp.NewTool("proxmox_get_vm_config",
		mcp.WithDescription("Get the full configuration of a specific VM or container"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM or container ID")),
	), s.vmConfig)
}

func (s *Service) startVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required")), nil
	}

	// QEMU first; an unknown VMID on the qemu endpoint may still be a
	// container.
	if err := s.Client.QemuAction(ctx, node, vmid, "start"); err == nil {
		return relay.TextResult(fmt.Sprintf("⚡ Signal sent to start VM %s on %s", vmid, node)), nil
	}
	if err := s.Client.LXCAction(ctx, node, vmid, "start"); err != nil {
		return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("starting %s", vmid), err)), nil
	}
	return relay.TextResult(fmt.Sprintf("⚡ Signal sent to start LXC %s on %s", vmid, node)), nil
}

func (s *Service) stopVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required")), nil
	}

	if err := s.Client.QemuAction(ctx, node, vmid, "shutdown"); err == nil {
		return relay.TextResult(fmt.Sprintf("⚡ Signal sent to shutdown VM %s on %s", vmid, node)), nil
	}
	if err := s.Client.LXCAction(ctx, node, vmid, "shutdown"); err != nil {
		return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("stopping %s", vmid), err)), nil
	}
	return relay.TextResult(fmt.Sprintf("⚡ Signal sent to shutdown LXC %s on %s", vmid, node)), nil
}

func (s *Service) deleteVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required")), nil
	}

	if err := s.Client.DeleteQemu(ctx, node, vmid); err == nil {
		return relay.TextResult(fmt.Sprintf("🗑️ VM %s deleted successfully.", vmid)), nil
	}
	if err := s.Client.DeleteLXC(ctx, node, vmid); err != nil {
		return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("deleting %s", vmid), err)), nil
	}
	return relay.TextResult(fmt.Sprintf("🗑️ LXC %s deleted successfully.", vmid)), nil
}

func (s *Service) createVMFromTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	templateID := req.GetString("template_id", "")
	name := req.GetString("name", "")
	ip := req.GetString("ip", "")
	cores := req.GetInt("cores", 0)
	memory := req.GetInt("memory", 0)
	diskSize := req.GetString("disk_size", "64G")
	password := req.GetString("password", "")

	if missing(node, templateID, name) {
		return relay.ErrorResult(relay.Validationf("Node, template ID, and Name are required")), nil
	}

	generated := password == ""
	if generated {
		password = generatePassword()
	}
	passMsg := passwordLine(password, generated)

	if vmid == "" {
		next, err := s.Client.NextVMID(ctx)
		if err != nil {
			return relay.ErrorResult(relay.RemoteAPI("selecting VMID", err)), nil
		}
		vmid = next
	}

	if err := s.Client.CloneQemu(ctx, node, templateID, vmid, name); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("cloning VM", err)), nil
	}

	// Config and resize failures after a successful clone are reported,
	// not rolled back.
	updates := url.Values{"cipassword": {password}}
	if cores > 0 {
		updates.Set("cores", strconv.Itoa(cores))
	}
	if memory > 0 {
		updates.Set("memory", strconv.Itoa(memory))
	}
	if ip != "" {
		if !strings.Contains(ip, "/") {
			ip += "/24"
		}
		updates.Set("ipconfig0", fmt.Sprintf("ip=%s,gw=%s", ip, gatewayFor(ip)))
	}
	if err := s.Client.SetQemuConfig(ctx, node, vmid, updates); err != nil {
		return relay.TextResult(fmt.Sprintf("⚠️ VM %s created but configuration failed: %v\n%s", vmid, err, passMsg)), nil
	}

	resizeMsg := ""
	if diskSize != "" {
		cfg, err := s.Client.QemuConfig(ctx, node, vmid)
		switch {
		case err != nil:
			resizeMsg = fmt.Sprintf(" (Disk resize failed: %v)", err)
		default:
			disk := firstDisk(cfg)
			if disk == "" {
				resizeMsg = " (Disk resize skipped - no disk found)"
			} else if err := s.Client.ResizeQemuDisk(ctx, node, vmid, disk, diskSize); err != nil {
				resizeMsg = fmt.Sprintf(" (Disk resize failed: %v)", err)
			} else {
				resizeMsg = fmt.Sprintf(", Disk: %s", diskSize)
			}
		}
	}

	return relay.TextResult(fmt.Sprintf(
		"✅ VM %s ('%s') created from template %s on %s.\nSpecs: %s Cores, %sMB RAM%s.\nIP: %s.\n%s",
		vmid, name, templateID, node,
		orDefault(cores), orDefault(memory), resizeMsg,
		orDefaultStr(ip), passMsg)), nil
}

// firstDisk scans the usual bus names for the first attached disk.
func firstDisk(cfg map[string]any) string {
	for _, bus := range []string{"scsi", "virtio", "sata", "ide"} {
		for i := 0; i < 6; i++ {
			d := fmt.Sprintf("%s%d", bus, i)
			if _, ok := cfg[d]; ok {
				return d
			}
		}
	}
	return ""
}

// gatewayFor infers the .1 gateway of the address's /24.
func gatewayFor(ip string) string {
	addr := strings.SplitN(ip, "/", 2)[0]
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return addr
	}
	return strings.Join(parts[:3], ".") + ".1"
}

func orDefault(n int) string {
	if n > 0 {
		return strconv.Itoa(n)
	}
	return "Default"
}

func orDefaultStr(s string) string {
	if s != "" {
		return s
	}
	return "Default"
}

func (s *Service) updateVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	cores := req.GetInt("cores", 0)
	memory := req.GetInt("memory", 0)

	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required")), nil
	}
	if cores <= 0 && memory <= 0 {
		return relay.TextResult("⚠️ No changes requested. Provide 'cores' or 'memory' > 0."), nil
	}

	cfg, err := s.Client.QemuConfig(ctx, node, vmid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("Could not fetch VM %s details", vmid), err)), nil
	}
	status, err := s.Client.QemuStatus(ctx, node, vmid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("Could not fetch VM %s details", vmid), err)), nil
	}

	updates := url.Values{}
	var changes []string
	if cores > 0 {
		updates.Set("cores", strconv.Itoa(cores))
		changes = append(changes, fmt.Sprintf("Cores: %v -> %d", configValue(cfg, "cores"), cores))
	}
	if memory > 0 {
		updates.Set("memory", strconv.Itoa(memory))
		changes = append(changes, fmt.Sprintf("Memory: %vMB -> %dMB", configValue(cfg, "memory"), memory))
	}

	if err := s.Client.SetQemuConfig(ctx, node, vmid, updates); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("updating VM config", err)), nil
	}

	var action string
	if status.Status == "running" {
		if err := s.Client.QemuAction(ctx, node, vmid, "reboot"); err != nil {
			action = fmt.Sprintf("⚠️ Restart failed: %v", err)
		} else {
			action = "Reboot Signal Sent 🔄"
		}
	} else {
		if err := s.Client.QemuAction(ctx, node, vmid, "start"); err != nil {
			action = fmt.Sprintf("⚠️ Restart failed: %v", err)
		} else {
			action = "VM Started 🟢"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ VM %s Updated.\n📊 Changes:\n", vmid)
	for _, c := range changes {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	fmt.Fprintf(&b, "\n⚡ Action: %s", action)
	return relay.TextResult(b.String()), nil
}

func configValue(cfg map[string]any, key string) any {
	if v, ok := cfg[key]; ok {
		return v
	}
	return "unknown"
}

func (s *Service) migrateVM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	target := req.GetString("target_node", "")
	online := req.GetBool("online", true)

	if missing(node, vmid, target) {
		return relay.ErrorResult(relay.Validationf("Source Node, VMID, and Target Node are required")), nil
	}

	if err := s.Client.MigrateQemu(ctx, node, vmid, target, online); err == nil {
		return relay.TextResult(fmt.Sprintf("🚀 Migration started: VM %s -> %s", vmid, target)), nil
	}
	// The LXC endpoint uses a restart flag instead of live migration.
	if err := s.Client.MigrateLXC(ctx, node, vmid, target, online); err != nil {
		return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("migrating %s", vmid), err)), nil
	}
	return relay.TextResult(fmt.Sprintf("🚀 Migration started: LXC %s -> %s", vmid, target)), nil
}

func (s *Service) createLXC(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	hostname := req.GetString("hostname", "")
	password := req.GetString("password", "")
	ostemplate := req.GetString("ostemplate", "")
	cores := req.GetInt("cores", 1)
	memory := req.GetInt("memory", 512)
	storage := req.GetString("storage", "local-lvm")
	diskSize := req.GetString("disk_size", "8G")
	net0 := req.GetString("net0", "name=eth0,bridge=vmbr0,ip=dhcp")

	if missing(node, hostname, ostemplate) {
		return relay.ErrorResult(relay.Validationf("Node, Hostname, and OS Template are required")), nil
	}

	generated := password == ""
	if generated {
		password = generatePassword()
	}
	passMsg := passwordLine(password, generated)

	if vmid == "" {
		next, err := s.Client.NextVMID(ctx)
		if err != nil {
			return relay.ErrorResult(relay.RemoteAPI("selecting VMID", err)), nil
		}
		vmid = next
	}

	form := url.Values{
		"vmid":       {vmid},
		"hostname":   {hostname},
		"password":   {password},
		"ostemplate": {ostemplate},
		"cores":      {strconv.Itoa(cores)},
		"memory":     {strconv.Itoa(memory)},
		"storage":    {storage},
		"rootfs":     {"volume=" + diskSize},
		"net0":       {net0},
	}
	if err := s.Client.CreateLXC(ctx, node, form); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("creating LXC", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("✅ LXC %s ('%s') created.\n%s", vmid, hostname, passMsg)), nil
}

func (s *Service) vmStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required")), nil
	}

	st, err := s.Client.QemuStatus(ctx, node, vmid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("getting stats", err)), nil
	}

	memUsed := st.Mem / 1024 / 1024
	memTotal := st.MaxMem / 1024 / 1024
	memPercent := 0.0
	if memTotal > 0 {
		memPercent = float64(memUsed) / float64(memTotal) * 100
	}
	glyph := "🔴"
	if st.Status == "running" {
		glyph = "🟢"
	}

	return relay.TextResult(fmt.Sprintf(
		"📊 **VM %s Stats** %s\nState: %s\nUptime: %dh %dm\nCPU Load: %.1f%%\nRAM Usage: %dMB / %dMB (%.1f%%)",
		vmid, glyph, strings.ToUpper(st.Status),
		st.Uptime/3600, (st.Uptime%3600)/60,
		st.CPU*100, memUsed, memTotal, memPercent)), nil
}

func (s *Service) vmConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required")), nil
	}

	guestType := "VM"
	cfg, err := s.Client.QemuConfig(ctx, node, vmid)
	if err != nil {
		guestType = "LXC"
		cfg, err = s.Client.LXCConfig(ctx, node, vmid)
		if err != nil {
			return relay.ErrorResult(relay.RemoteAPI(fmt.Sprintf("getting config for %s", vmid), err)), nil
		}
	}

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []string{fmt.Sprintf("⚙️ **Configuration for %s %s**:", guestType, vmid)}
	for _, k := range keys {
		out = append(out, fmt.Sprintf("- **%s**: `%v`", k, cfg[k]))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

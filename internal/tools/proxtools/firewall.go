package proxtools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/relay"
)

func (s *Service) registerFirewall(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("proxmox_add_firewall_rule",
		mcp.WithDescription("Add a firewall rule to a VM (enabled on creation)"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
		mcp.WithString("type", mcp.Description("Rule direction (default in)")),
		mcp.WithString("action", mcp.Description("ACCEPT, DROP, or REJECT (default ACCEPT)")),
		mcp.WithString("proto", mcp.Description("Protocol (default tcp)")),
		mcp.WithString("dport", mcp.Description("Destination port")),
		mcp.WithString("sport", mcp.Description("Source port")),
		mcp.WithString("comment", mcp.Description("Rule comment")),
	), s.addFirewallRule)

	srv.AddTool(mcp.NewTool("proxmox_list_firewall_rules",
		mcp.WithDescription("List firewall rules for a VM"),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("vmid", mcp.Required(), mcp.Description("VM ID")),
	), s.listFirewallRules)
}

func (s *Service) addFirewallRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	ruleType := req.GetString("type", "in")
	action := req.GetString("action", "ACCEPT")
	proto := req.GetString("proto", "tcp")
	dport := req.GetString("dport", "")
	sport := req.GetString("sport", "")
	comment := req.GetString("comment", "")

	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required.")), nil
	}

	rule := url.Values{
		"type":    {ruleType},
		"action":  {action},
		"proto":   {proto},
		"dport":   {dport},
		"sport":   {sport},
		"comment": {comment},
	}
	if err := s.Client.AddFirewallRule(ctx, node, vmid, rule); err != nil {
		return relay.ErrorResult(relay.RemoteAPI("adding firewall rule", err)), nil
	}
	return relay.TextResult(fmt.Sprintf("🛡️ Firewall rule added to VM %s: %s %s %s dport:%s",
		vmid, ruleType, action, proto, dport)), nil
}

func (s *Service) listFirewallRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetString("node", "")
	vmid := req.GetString("vmid", "")
	if missing(node, vmid) {
		return relay.ErrorResult(relay.Validationf("Node and VMID are required.")), nil
	}

	rules, err := s.Client.FirewallRules(ctx, node, vmid)
	if err != nil {
		return relay.ErrorResult(relay.RemoteAPI("listing rules", err)), nil
	}

	out := []string{fmt.Sprintf("🛡️ **Firewall Rules for VM %s**:", vmid)}
	for _, r := range rules {
		proto := r.Proto
		if proto == "" {
			proto = "any"
		}
		dport := r.DPort
		if dport == "" {
			dport = "-"
		}
		glyph := "🚫"
		if enabled, _ := r.Enable.Int64(); enabled == 1 {
			glyph = "✅"
		}
		out = append(out, fmt.Sprintf("%s [%d] %s %s %s port:%s (%s)",
			glyph, r.Pos, r.Type, r.Action, proto, dport, r.Comment))
	}
	return relay.TextResult(strings.Join(out, "\n")), nil
}

package proxmox

import "encoding/json"

// Node is a cluster member as reported by /nodes.
type Node struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Uptime int64   `json:"uptime"`
}

// Guest is a QEMU VM or LXC container listed on a node.
type Guest struct {
	VMID   json.Number `json:"vmid"`
	Name   string      `json:"name"`
	Status string      `json:"status"`
}

// GuestStatus is the live status of a guest from status/current.
type GuestStatus struct {
	Status string  `json:"status"`
	Uptime int64   `json:"uptime"`
	CPU    float64 `json:"cpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
}

// ClusterResource is an entry from /cluster/resources.
type ClusterResource struct {
	VMID json.Number `json:"vmid"`
	Type string      `json:"type"`
	Node string      `json:"node"`
}

// Snapshot is a guest snapshot entry. The synthetic "current" entry has
// no snaptime and carries the "You are here!" description.
type Snapshot struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SnapTime    json.Number `json:"snaptime"`
}

// Storage is a storage pool on a node.
type Storage struct {
	Storage string      `json:"storage"`
	Type    string      `json:"type"`
	Total   int64       `json:"total"`
	Used    int64       `json:"used"`
	Active  json.Number `json:"active"`
}

// ContentItem is a volume on a storage (ISO, container template, backup).
type ContentItem struct {
	VolID   string      `json:"volid"`
	Content string      `json:"content"`
	Size    int64       `json:"size"`
	VMID    json.Number `json:"vmid"`
}

// FirewallRule is a guest firewall rule.
type FirewallRule struct {
	Pos     int         `json:"pos"`
	Type    string      `json:"type"`
	Action  string      `json:"action"`
	Proto   string      `json:"proto"`
	DPort   string      `json:"dport"`
	SPort   string      `json:"sport"`
	Comment string      `json:"comment"`
	Enable  json.Number `json:"enable"`
}

// TaskStatus is the state of a background task (UPID).
type TaskStatus struct {
	Status     string      `json:"status"`
	ExitStatus string      `json:"exitstatus"`
	StartTime  json.Number `json:"starttime"`
}

// TaskLogLine is one line of a task log.
type TaskLogLine struct {
	N int    `json:"n"`
	T string `json:"t"`
}

// ExecStatus is the guest agent's report on a started process.
type ExecStatus struct {
	Exited   int    `json:"exited"`
	ExitCode int    `json:"exitcode"`
	OutData  string `json:"out-data"`
	ErrData  string `json:"err-data"`
}

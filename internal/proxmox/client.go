// Package proxmox is a typed client for the slice of the Proxmox VE REST
// API the relay exposes: node/guest listing, lifecycle, snapshots,
// storage and backups, firewall rules, tasks, and the QEMU guest agent.
//
// Authentication uses the /access/ticket endpoint; the ticket cookie and
// CSRF token are cached on the client and refreshed on demand. All calls
// take a context and use the connection-level timeout of the underlying
// http.Client — there is no application-level cancellation of remote
// operations once issued.
package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const apiPrefix = "/api2/json"

// ErrAgentUnavailable reports that the QEMU guest agent did not answer
// the info ping. This is the only condition that makes callers offer the
// SSH fallback.
var ErrAgentUnavailable = errors.New("proxmox: QEMU guest agent is not running")

// APIError is a non-2xx response from the Proxmox API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("proxmox API %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("proxmox API %s", e.Status)
}

// Client talks to one Proxmox VE cluster.
type Client struct {
	baseURL  string // scheme://host:port, no trailing slash
	user     string
	password string
	httpc    *http.Client

	mu     sync.Mutex
	ticket string
	csrf   string
}

// Options configures a Client.
type Options struct {
	// URL is the API base, e.g. https://pve.example.com:8006. A bare
	// host is accepted and normalized to https on port 8006.
	URL string

	// User is the account, e.g. root@pam.
	User string

	// Password is the account password.
	Password string

	// VerifySSL enables TLS certificate verification.
	VerifySSL bool

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// NewClient builds a client. It does not authenticate; the first request
// acquires the ticket.
func NewClient(opts Options) (*Client, error) {
	base, err := normalizeBaseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.VerifySSL},
	}

	return &Client{
		baseURL:  base,
		user:     opts.User,
		password: opts.Password,
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// normalizeBaseURL strips any path and defaults scheme/port, so both
// "https://pve:8006" and "pve" are accepted.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("proxmox: URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("proxmox: parse URL: %w", err)
	}
	host := u.Host
	if host == "" {
		return "", fmt.Errorf("proxmox: invalid URL %q", raw)
	}
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "8006")
	}
	return u.Scheme + "://" + host, nil
}

// Host returns the host:port the client targets.
func (c *Client) Host() string {
	u, _ := url.Parse(c.baseURL)
	return u.Host
}

// Probe checks raw TCP reachability of the API endpoint. It is used as a
// pre-flight before the first listing call so connection problems get a
// network error instead of an opaque auth failure.
func (c *Client) Probe(timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", c.Host(), timeout)
	if err != nil {
		return fmt.Errorf("proxmox: connect to %s: %w", c.Host(), err)
	}
	conn.Close()
	return nil
}

// login acquires a ticket and CSRF token.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{
		"username": {c.user},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiPrefix+"/access/ticket", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("proxmox: authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	var env struct {
		Data struct {
			Ticket string `json:"ticket"`
			CSRF   string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("proxmox: decode ticket: %w", err)
	}

	c.mu.Lock()
	c.ticket = env.Data.Ticket
	c.csrf = env.Data.CSRF
	c.mu.Unlock()
	return nil
}

// do performs an authenticated API call. For GET/DELETE the params go in
// the query string; otherwise they are form-encoded in the body. The
// "data" envelope is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	c.mu.Lock()
	haveTicket := c.ticket != ""
	c.mu.Unlock()
	if !haveTicket {
		if err := c.login(ctx); err != nil {
			return err
		}
	}

	err := c.doOnce(ctx, method, path, params, out)

	// A 401 after a cached ticket means it expired; retry once with a
	// fresh login.
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		if err := c.login(ctx); err != nil {
			return err
		}
		return c.doOnce(ctx, method, path, params, out)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := c.baseURL + apiPrefix + path
	var body io.Reader

	switch method {
	case http.MethodGet, http.MethodDelete:
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
	default:
		if params == nil {
			params = url.Values{}
		}
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: c.ticket})
	if method != http.MethodGet {
		req.Header.Set("CSRFPreventionToken", c.csrf)
	}
	c.mu.Unlock()
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("proxmox: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("proxmox: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("proxmox: decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("proxmox: decode data: %w", err)
	}
	return nil
}

// --- Cluster and nodes ---

// Nodes lists cluster nodes.
func (c *Client) Nodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	err := c.do(ctx, http.MethodGet, "/nodes", nil, &nodes)
	return nodes, err
}

// ClusterVMResources lists every VM/CT resource in the cluster.
func (c *Client) ClusterVMResources(ctx context.Context) ([]ClusterResource, error) {
	var res []ClusterResource
	err := c.do(ctx, http.MethodGet, "/cluster/resources", url.Values{"type": {"vm"}}, &res)
	return res, err
}

// NextVMID scans cluster resources for the lowest free VMID from 100 up.
func (c *Client) NextVMID(ctx context.Context) (string, error) {
	resources, err := c.ClusterVMResources(ctx)
	if err != nil {
		return "", err
	}
	existing := make(map[int64]bool, len(resources))
	for _, r := range resources {
		if id, err := r.VMID.Int64(); err == nil {
			existing[id] = true
		}
	}
	candidate := int64(100)
	for existing[candidate] {
		candidate++
	}
	return fmt.Sprintf("%d", candidate), nil
}

// --- Guest listing and status ---

// QemuList lists QEMU VMs on a node.
func (c *Client) QemuList(ctx context.Context, node string) ([]Guest, error) {
	var guests []Guest
	err := c.do(ctx, http.MethodGet, "/nodes/"+node+"/qemu", nil, &guests)
	return guests, err
}

// LXCList lists LXC containers on a node.
func (c *Client) LXCList(ctx context.Context, node string) ([]Guest, error) {
	var guests []Guest
	err := c.do(ctx, http.MethodGet, "/nodes/"+node+"/lxc", nil, &guests)
	return guests, err
}

// QemuStatus fetches the current status of a QEMU VM.
func (c *Client) QemuStatus(ctx context.Context, node, vmid string) (*GuestStatus, error) {
	var st GuestStatus
	err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/status/current", nil, &st)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// --- Lifecycle ---

// QemuAction posts a lifecycle action (start, shutdown, reboot, stop)
// for a QEMU VM.
func (c *Client) QemuAction(ctx context.Context, node, vmid, action string) error {
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/status/"+action, nil, nil)
}

// LXCAction posts a lifecycle action for an LXC container.
func (c *Client) LXCAction(ctx context.Context, node, vmid, action string) error {
	return c.do(ctx, http.MethodPost, lxcPath(node, vmid)+"/status/"+action, nil, nil)
}

// DeleteQemu deletes a QEMU VM.
func (c *Client) DeleteQemu(ctx context.Context, node, vmid string) error {
	return c.do(ctx, http.MethodDelete, qemuPath(node, vmid), nil, nil)
}

// DeleteLXC deletes an LXC container.
func (c *Client) DeleteLXC(ctx context.Context, node, vmid string) error {
	return c.do(ctx, http.MethodDelete, lxcPath(node, vmid), nil, nil)
}

// CloneQemu clones a template VM into a new full clone.
func (c *Client) CloneQemu(ctx context.Context, node, templateID, newID, name string) error {
	form := url.Values{
		"newid": {newID},
		"name":  {name},
		"full":  {"1"},
	}
	return c.do(ctx, http.MethodPost, qemuPath(node, templateID)+"/clone", form, nil)
}

// QemuConfig fetches the full VM configuration.
func (c *Client) QemuConfig(ctx context.Context, node, vmid string) (map[string]any, error) {
	cfg := map[string]any{}
	err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/config", nil, &cfg)
	return cfg, err
}

// LXCConfig fetches the full container configuration.
func (c *Client) LXCConfig(ctx context.Context, node, vmid string) (map[string]any, error) {
	cfg := map[string]any{}
	err := c.do(ctx, http.MethodGet, lxcPath(node, vmid)+"/config", nil, &cfg)
	return cfg, err
}

// SetQemuConfig applies configuration updates to a VM.
func (c *Client) SetQemuConfig(ctx context.Context, node, vmid string, updates url.Values) error {
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/config", updates, nil)
}

// ResizeQemuDisk grows a VM disk to the given size (e.g. "64G").
func (c *Client) ResizeQemuDisk(ctx context.Context, node, vmid, disk, size string) error {
	form := url.Values{"disk": {disk}, "size": {size}}
	return c.do(ctx, http.MethodPut, qemuPath(node, vmid)+"/resize", form, nil)
}

// MigrateQemu migrates a VM to another node.
func (c *Client) MigrateQemu(ctx context.Context, node, vmid, target string, online bool) error {
	form := url.Values{"target": {target}, "online": {boolFlag(online)}}
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/migrate", form, nil)
}

// MigrateLXC migrates a container to another node.
func (c *Client) MigrateLXC(ctx context.Context, node, vmid, target string, restart bool) error {
	form := url.Values{"target": {target}, "restart": {boolFlag(restart)}}
	return c.do(ctx, http.MethodPost, lxcPath(node, vmid)+"/migrate", form, nil)
}

// CreateLXC creates a container from the given creation form.
func (c *Client) CreateLXC(ctx context.Context, node string, form url.Values) error {
	return c.do(ctx, http.MethodPost, "/nodes/"+node+"/lxc", form, nil)
}

// --- Snapshots ---

// CreateSnapshot creates a named snapshot of a VM.
func (c *Client) CreateSnapshot(ctx context.Context, node, vmid, name, description string) error {
	form := url.Values{"snapname": {name}}
	if description != "" {
		form.Set("description", description)
	}
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/snapshot", form, nil)
}

// ListSnapshots lists snapshots of a VM, including the synthetic
// current-state entry.
func (c *Client) ListSnapshots(ctx context.Context, node, vmid string) ([]Snapshot, error) {
	var snaps []Snapshot
	err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/snapshot", nil, &snaps)
	return snaps, err
}

// RollbackSnapshot rolls a VM back to a snapshot.
func (c *Client) RollbackSnapshot(ctx context.Context, node, vmid, name string) error {
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/snapshot/"+url.PathEscape(name)+"/rollback", nil, nil)
}

// DeleteSnapshot removes a snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, node, vmid, name string) error {
	return c.do(ctx, http.MethodDelete, qemuPath(node, vmid)+"/snapshot/"+url.PathEscape(name), nil, nil)
}

// --- Storage, content, backups ---

// Storages lists storage pools on a node.
func (c *Client) Storages(ctx context.Context, node string) ([]Storage, error) {
	var storages []Storage
	err := c.do(ctx, http.MethodGet, "/nodes/"+node+"/storage", nil, &storages)
	return storages, err
}

// StorageContent lists volumes on a storage. contentFilter may be empty
// or a content type such as "backup".
func (c *Client) StorageContent(ctx context.Context, node, storage, contentFilter string) ([]ContentItem, error) {
	var params url.Values
	if contentFilter != "" {
		params = url.Values{"content": {contentFilter}}
	}
	var items []ContentItem
	err := c.do(ctx, http.MethodGet, "/nodes/"+node+"/storage/"+storage+"/content", params, &items)
	return items, err
}

// Vzdump starts a backup task and returns its UPID.
func (c *Client) Vzdump(ctx context.Context, node, vmid, storage, mode, compression string) (string, error) {
	form := url.Values{
		"vmid":     {vmid},
		"storage":  {storage},
		"mode":     {mode},
		"compress": {compression},
	}
	var upid string
	err := c.do(ctx, http.MethodPost, "/nodes/"+node+"/vzdump", form, &upid)
	return upid, err
}

// QmRestore restores a VM from a backup archive.
func (c *Client) QmRestore(ctx context.Context, node, vmid, archive, storage string) error {
	form := url.Values{
		"vmid":    {vmid},
		"archive": {archive},
		"storage": {storage},
	}
	return c.do(ctx, http.MethodPost, "/nodes/"+node+"/qmrestore", form, nil)
}

// --- Firewall ---

// FirewallRules lists firewall rules of a VM.
func (c *Client) FirewallRules(ctx context.Context, node, vmid string) ([]FirewallRule, error) {
	var rules []FirewallRule
	err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/firewall/rules", nil, &rules)
	return rules, err
}

// AddFirewallRule appends an enabled firewall rule to a VM.
func (c *Client) AddFirewallRule(ctx context.Context, node, vmid string, rule url.Values) error {
	rule.Set("enable", "1")
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/firewall/rules", rule, nil)
}

// --- Tasks ---

// TaskStatus fetches the status of a background task.
func (c *Client) TaskStatus(ctx context.Context, node, upid string) (*TaskStatus, error) {
	var st TaskStatus
	err := c.do(ctx, http.MethodGet, taskPath(node, upid)+"/status", nil, &st)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// TaskLog fetches the log lines of a background task.
func (c *Client) TaskLog(ctx context.Context, node, upid string) ([]TaskLogLine, error) {
	var lines []TaskLogLine
	err := c.do(ctx, http.MethodGet, taskPath(node, upid)+"/log", nil, &lines)
	return lines, err
}

func qemuPath(node, vmid string) string {
	return "/nodes/" + node + "/qemu/" + vmid
}

func lxcPath(node, vmid string) string {
	return "/nodes/" + node + "/lxc/" + vmid
}

func taskPath(node, upid string) string {
	return "/nodes/" + node + "/tasks/" + url.PathEscape(upid)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

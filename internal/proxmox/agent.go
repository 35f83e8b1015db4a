package proxmox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrExecTimeout reports that an agent command did not finish within the
// poll budget. The process keeps running in the guest.
var ErrExecTimeout = errors.New("proxmox: timed out waiting for command to finish")

// AgentPing checks that the QEMU guest agent answers. Any failure maps
// to ErrAgentUnavailable: the API does not let us distinguish "agent not
// installed" from "agent not responding", and callers only need to know
// whether the agent path is usable.
func (c *Client) AgentPing(ctx context.Context, node, vmid string) error {
	err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/agent/info", nil, nil)
	if err != nil {
		return fmt.Errorf("%w on VM %s: %v", ErrAgentUnavailable, vmid, err)
	}
	return nil
}

// AgentExec starts a command in the guest and returns its PID. The
// command is run through /bin/bash -c, matching the shell semantics the
// SSH fallback provides.
func (c *Client) AgentExec(ctx context.Context, node, vmid, command string) (int, error) {
	form := url.Values{"command": {"/bin/bash", "-c", command}}
	var res struct {
		PID int `json:"pid"`
	}
	if err := c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/agent/exec", form, &res); err != nil {
		return 0, err
	}
	if res.PID == 0 {
		return 0, errors.New("proxmox: agent exec returned no PID")
	}
	return res.PID, nil
}

// AgentExecStatus fetches the status of a previously started command.
func (c *Client) AgentExecStatus(ctx context.Context, node, vmid string, pid int) (*ExecStatus, error) {
	params := url.Values{"pid": {strconv.Itoa(pid)}}
	var st ExecStatus
	if err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/agent/exec-status", params, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// WaitExec polls exec-status every interval until the process exits or
// maxRetries polls have been made. On exhaustion it returns
// ErrExecTimeout; the remote process is left running.
func (c *Client) WaitExec(ctx context.Context, node, vmid string, pid int, interval time.Duration, maxRetries int) (*ExecStatus, error) {
	for retries := 0; retries < maxRetries; retries++ {
		st, err := c.AgentExecStatus(ctx, node, vmid, pid)
		if err != nil {
			return nil, err
		}
		if st.Exited == 1 {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("%w (pid %d)", ErrExecTimeout, pid)
}

// AgentFileRead reads a file from the guest and returns its decoded
// content. Undecodable bytes surface as an error rather than mangled
// text.
func (c *Client) AgentFileRead(ctx context.Context, node, vmid, path string) (string, error) {
	params := url.Values{"file": {path}}
	var res struct {
		Content string `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, qemuPath(node, vmid)+"/agent/file-read", params, &res); err != nil {
		return "", err
	}
	decoded, err := base64.StdEncoding.DecodeString(res.Content)
	if err != nil {
		// Older agents return plain text for small files.
		return res.Content, nil
	}
	return string(decoded), nil
}

// AgentFileWrite writes content to a file in the guest. The payload is
// base64-encoded with the encode flag set, as the agent expects.
func (c *Client) AgentFileWrite(ctx context.Context, node, vmid, path, content string) error {
	form := url.Values{
		"file":    {path},
		"content": {base64.StdEncoding.EncodeToString([]byte(content))},
		"encode":  {"1"},
	}
	return c.do(ctx, http.MethodPost, qemuPath(node, vmid)+"/agent/file-write", form, nil)
}

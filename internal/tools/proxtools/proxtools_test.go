package proxtools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rezytijo/mcp-collection/internal/proxmox"
	"github.com/rezytijo/mcp-collection/internal/sshexec"
)

// countingServer is a fake PVE API that answers the ticket endpoint and
// counts every other request it receives.
type countingServer struct {
	calls   int
	handler http.HandlerFunc
}

func newService(t *testing.T, handler http.HandlerFunc, ssh SSHRunner, sshErr error) (*Service, *countingServer) {
	t.Helper()
	cs := &countingServer{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api2/json/access/ticket" {
			fmt.Fprint(w, `{"data":{"ticket":"PVE:t","CSRFPreventionToken":"c"}}`)
			return
		}
		cs.calls++
		if cs.handler != nil {
			cs.handler(w, r)
			return
		}
		fmt.Fprint(w, `{"data":null}`)
	}))
	t.Cleanup(srv.Close)

	client, err := proxmox.NewClient(proxmox.Options{URL: srv.URL, User: "root@pam", Password: "x"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	svc := NewService(client, ssh, sshErr)
	svc.ExecInterval = time.Millisecond
	svc.InstallInterval = time.Millisecond
	return svc, cs
}

type fakeSSH struct {
	runCalls  int
	host      string
	command   string
	runOutput string
	runExit   int

	readCalls  int
	readResult string
	writeCalls int
}

func (f *fakeSSH) Run(host, command string) (string, int, error) {
	f.runCalls++
	f.host = host
	f.command = command
	return f.runOutput, f.runExit, nil
}

func (f *fakeSSH) ReadFile(host, path string) (string, error) {
	f.readCalls++
	f.host = host
	return f.readResult, nil
}

func (f *fakeSSH) WriteFile(host, path, content string) error {
	f.writeCalls++
	f.host = host
	return nil
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = "test"
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("result has no text content")
	return ""
}

func TestListVMsRequiresNode(t *testing.T) {
	svc, cs := newService(t, nil, nil, nil)

	res, err := svc.listVMs(context.Background(), callReq(map[string]any{"node": "  "}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.HasPrefix(text, "❌") || !strings.Contains(text, "Node name is required") {
		t.Fatalf("unexpected result: %q", text)
	}
	if cs.calls != 0 {
		t.Fatalf("validation failure must not reach the API, saw %d calls", cs.calls)
	}
}

func TestListVMsCombinesQemuAndLXC(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api2/json/nodes/pve1/qemu":
			fmt.Fprint(w, `{"data":[{"vmid":100,"name":"web","status":"running"}]}`)
		case "/api2/json/nodes/pve1/lxc":
			fmt.Fprint(w, `{"data":[{"vmid":200,"name":"db","status":"stopped"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, nil, nil)

	res, err := svc.listVMs(context.Background(), callReq(map[string]any{"node": "pve1"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	for _, want := range []string{"🟢 [VM 100] web - running", "🔴 [LXC 200] db - stopped"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestExecuteCommandAgentPath(t *testing.T) {
	ssh := &fakeSSH{}
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/agent/info"):
			fmt.Fprint(w, `{"data":{"version":"7.2"}}`)
		case strings.HasSuffix(r.URL.Path, "/agent/exec"):
			fmt.Fprint(w, `{"data":{"pid":4321}}`)
		case strings.HasSuffix(r.URL.Path, "/agent/exec-status"):
			fmt.Fprint(w, `{"data":{"exited":1,"exitcode":0,"out-data":"hi\n"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, ssh, nil)

	res, err := svc.executeCommand(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "command": "echo hi", "ssh_host": "10.0.0.9",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "✅ Command executed successfully.") || !strings.Contains(text, "hi") {
		t.Fatalf("unexpected result: %q", text)
	}
	if ssh.runCalls != 0 {
		t.Fatal("SSH must not be used when the agent answers")
	}
}

func TestExecuteCommandFallsBackWhenAgentDown(t *testing.T) {
	ssh := &fakeSSH{runOutput: "fallback ok\n"}
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/agent/info") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
	}, ssh, nil)

	res, err := svc.executeCommand(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "command": "uptime", "ssh_host": "10.0.0.9",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "[via SSH]") || !strings.Contains(text, "fallback ok") {
		t.Fatalf("unexpected result: %q", text)
	}
	if ssh.runCalls != 1 || ssh.host != "10.0.0.9" || ssh.command != "uptime" {
		t.Fatalf("fallback not invoked as expected: %+v", ssh)
	}
}

func TestExecuteCommandTimeoutDoesNotFallBack(t *testing.T) {
	ssh := &fakeSSH{}
	polls := 0
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/agent/info"):
			fmt.Fprint(w, `{"data":{}}`)
		case strings.HasSuffix(r.URL.Path, "/agent/exec"):
			fmt.Fprint(w, `{"data":{"pid":777}}`)
		case strings.HasSuffix(r.URL.Path, "/agent/exec-status"):
			polls++
			fmt.Fprint(w, `{"data":{"exited":0}}`)
		}
	}, ssh, nil)
	svc.ExecRetries = 3

	res, err := svc.executeCommand(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "command": "sleep 1000", "ssh_host": "10.0.0.9",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "⏳") || !strings.Contains(text, "PID 777") {
		t.Fatalf("expected timeout message with PID, got %q", text)
	}
	if polls != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", polls)
	}
	if ssh.runCalls != 0 {
		t.Fatal("poll timeout must not trigger the SSH fallback")
	}
}

func TestExecuteCommandFallbackNeedsHost(t *testing.T) {
	ssh := &fakeSSH{}
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, ssh, nil)

	res, err := svc.executeCommand(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "command": "uptime",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.HasPrefix(text, "❌") || !strings.Contains(text, "ssh_host") {
		t.Fatalf("expected ssh_host guidance, got %q", text)
	}
	if ssh.runCalls != 0 {
		t.Fatal("fallback must not run without a host")
	}
}

func TestExecuteCommandReportsMissingCredentials(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil, sshexec.ErrNoCredentials)

	res, err := svc.executeCommand(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "command": "uptime", "ssh_host": "10.0.0.9",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "PROXMOX_SSH_USER") {
		t.Fatalf("expected the missing credential names, got %q", text)
	}
}

func TestInstallSoftwareUnknownRecipe(t *testing.T) {
	svc, cs := newService(t, nil, nil, nil)

	res, err := svc.installSoftware(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "software": "emacs",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.HasPrefix(text, "⚠️") || !strings.Contains(text, "docker, nginx, update, wordpress_docker") {
		t.Fatalf("unexpected result: %q", text)
	}
	if cs.calls != 0 {
		t.Fatal("unknown software must not reach the API")
	}
}

func TestReadFileFallsBackToSFTP(t *testing.T) {
	ssh := &fakeSSH{readResult: "contents"}
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, ssh, nil)

	res, err := svc.readFileVM(context.Background(), callReq(map[string]any{
		"node": "pve1", "vmid": "100", "file_path": "/etc/hosts", "ssh_host": "10.0.0.9",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "📄 **File: /etc/hosts**") || !strings.Contains(text, "contents") {
		t.Fatalf("unexpected result: %q", text)
	}
	if ssh.readCalls != 1 {
		t.Fatal("SFTP fallback not invoked")
	}
}

func TestCreateVMFromTemplate(t *testing.T) {
	var clonedTo, resizedDisk string
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api2/json/cluster/resources":
			fmt.Fprint(w, `{"data":[{"vmid":100,"type":"qemu"}]}`)
		case strings.HasSuffix(r.URL.Path, "/clone"):
			r.ParseForm()
			clonedTo = r.PostForm.Get("newid")
			fmt.Fprint(w, `{"data":"UPID:pve1:clone"}`)
		case strings.HasSuffix(r.URL.Path, "/config") && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"data":null}`)
		case strings.HasSuffix(r.URL.Path, "/config") && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"data":{"scsi0":"local-lvm:vm-101-disk-0","cores":2}}`)
		case strings.HasSuffix(r.URL.Path, "/resize"):
			r.ParseForm()
			resizedDisk = r.PostForm.Get("disk")
			fmt.Fprint(w, `{"data":null}`)
		default:
			t.Errorf("unexpected path %s %s", r.Method, r.URL.Path)
		}
	}, nil, nil)

	res, err := svc.createVMFromTemplate(context.Background(), callReq(map[string]any{
		"node": "pve1", "template_id": "9000", "name": "web01", "ip": "192.168.1.50",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "✅ VM 101 ('web01') created from template 9000") {
		t.Fatalf("unexpected result: %q", text)
	}
	if !strings.Contains(text, "Disk: 64G") {
		t.Errorf("resize not reported: %q", text)
	}
	if !strings.Contains(text, "Generated Password") {
		t.Errorf("generated password not reported: %q", text)
	}
	if clonedTo != "101" {
		t.Errorf("expected auto VMID 101, cloned to %q", clonedTo)
	}
	if resizedDisk != "scsi0" {
		t.Errorf("expected scsi0 resize, got %q", resizedDisk)
	}
}

func TestGeneratePassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw := generatePassword()
		if len(pw) != 12 {
			t.Fatalf("password length %d, want 12", len(pw))
		}
		if !strings.ContainsAny(pw, passwordLower) ||
			!strings.ContainsAny(pw, passwordUpper) ||
			!strings.ContainsAny(pw, passwordDigits) ||
			!strings.ContainsAny(pw, passwordSymbols) {
			t.Fatalf("password %q missing a character class", pw)
		}
	}
}

func TestGatewayFor(t *testing.T) {
	if gw := gatewayFor("192.168.1.50/24"); gw != "192.168.1.1" {
		t.Errorf("gatewayFor = %q, want 192.168.1.1", gw)
	}
	if gw := gatewayFor("10.0.0.7"); gw != "10.0.0.1" {
		t.Errorf("gatewayFor = %q, want 10.0.0.1", gw)
	}
}

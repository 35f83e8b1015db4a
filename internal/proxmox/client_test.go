package proxmox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient starts a fake PVE API that answers the ticket endpoint
// itself and delegates everything else to handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api2/json/access/ticket" {
			fmt.Fprint(w, `{"data":{"ticket":"PVE:ticket","CSRFPreventionToken":"csrf"}}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{URL: srv.URL, User: "root@pam", Password: "x"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNodesAuthenticates(t *testing.T) {
	var sawCookie bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api2/json/nodes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if cookie, err := r.Cookie("PVEAuthCookie"); err == nil && cookie.Value == "PVE:ticket" {
			sawCookie = true
		}
		fmt.Fprint(w, `{"data":[{"node":"pve1","status":"online","cpu":0.25,"mem":1073741824}]}`)
	})

	nodes, err := c.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Node != "pve1" || nodes[0].Status != "online" {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
	if !sawCookie {
		t.Error("request went out without the ticket cookie")
	}
}

func TestExpiredTicketRetriesOnce(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})

	if _, err := c.Nodes(context.Background()); err != nil {
		t.Fatalf("expected retry after 401, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestNextVMIDSkipsTaken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"vmid":100,"type":"qemu"},{"vmid":101,"type":"lxc"},{"vmid":103,"type":"qemu"}]}`)
	})

	vmid, err := c.NextVMID(context.Background())
	if err != nil {
		t.Fatalf("NextVMID: %v", err)
	}
	if vmid != "102" {
		t.Fatalf("expected 102, got %s", vmid)
	}
}

func TestAPIErrorSurfacesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "storage does not exist")
	})

	_, err := c.Storages(context.Background(), "pve1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Body != "storage does not exist" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestAgentPingMapsToUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.AgentPing(context.Background(), "pve1", "100")
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
}

func TestWaitExecReturnsAfterExit(t *testing.T) {
	polls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 3 {
			fmt.Fprint(w, `{"data":{"exited":0}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"exited":1,"exitcode":0,"out-data":"done"}}`)
	})

	st, err := c.WaitExec(context.Background(), "pve1", "100", 4321, time.Millisecond, 10)
	if err != nil {
		t.Fatalf("WaitExec: %v", err)
	}
	if st.OutData != "done" || st.ExitCode != 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if polls != 3 {
		t.Fatalf("expected 3 polls, got %d", polls)
	}
}

func TestWaitExecTimesOutAtCap(t *testing.T) {
	polls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		polls++
		fmt.Fprint(w, `{"data":{"exited":0}}`)
	})

	_, err := c.WaitExec(context.Background(), "pve1", "100", 4321, time.Millisecond, 5)
	if !errors.Is(err, ErrExecTimeout) {
		t.Fatalf("expected ErrExecTimeout, got %v", err)
	}
	if polls != 5 {
		t.Fatalf("expected exactly 5 polls, got %d", polls)
	}
}

func TestAgentExecRequiresPID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	})

	if _, err := c.AgentExec(context.Background(), "pve1", "100", "true"); err == nil {
		t.Fatal("expected error when no PID is returned")
	}
}

func TestAgentFileReadDecodesBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hello\nworld"))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"content":"%s"}}`, encoded)
	})

	content, err := c.AgentFileRead(context.Background(), "pve1", "100", "/etc/hostname")
	if err != nil {
		t.Fatalf("AgentFileRead: %v", err)
	}
	if content != "hello\nworld" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pve.example.com", "https://pve.example.com:8006"},
		{"https://pve.example.com:8006", "https://pve.example.com:8006"},
		{"http://10.0.0.5:8006", "http://10.0.0.5:8006"},
		{"https://pve.example.com", "https://pve.example.com:8006"},
	}
	for _, tc := range cases {
		got, err := normalizeBaseURL(tc.in)
		if err != nil {
			t.Errorf("normalizeBaseURL(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := normalizeBaseURL(""); err == nil {
		t.Error("empty URL should error")
	}
}

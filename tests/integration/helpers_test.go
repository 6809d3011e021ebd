package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"
)

// consolePort returns the port the admin console listens on. Override with
// ADMIN_HTTP_PORT to match a non-default compose setup.
func consolePort() int {
	if v := os.Getenv("ADMIN_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	return 8080
}

func baseURL() string {
	return fmt.Sprintf("http://localhost:%d", consolePort())
}

// skipIfNotRunning performs a quick health check against the console.
// If it is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("admin console on port %d not reachable (Docker not running?): %v", consolePort(), err)
	}
	resp.Body.Close()
}

// httpGet performs a GET with the console session header and returns the
// status code and decoded JSON body.
func httpGet(t *testing.T, path, sessionID string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL()+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	return doJSON(t, req)
}

// httpPost performs a JSON POST and returns the status code and decoded body.
func httpPost(t *testing.T, path, sessionID string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL()+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	return doJSON(t, req)
}

func doJSON(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	var decoded map[string]interface{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", string(body), err)
		}
	}
	return resp.StatusCode, decoded
}

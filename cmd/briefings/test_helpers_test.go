package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	logDir     string
}

func setupCLITestEnv(t *testing.T, withKeys bool) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"DATA_DIR", "ANTHROPIC_API_KEY", "ELEVEN_LABS_API_KEY", "ELEVENLABS_API_KEY",
		"CRON_SECRET", "BASE_URL", "PORT", "BRIEFINGS_API_TOKEN"} {
		t.Setenv(key, "")
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		logDir:     filepath.Join(base, "logs"),
	}

	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = \"127.0.0.1:1\"\ncron_secret = \"cron-secret\"\n\n[intel]\nurl = \"\"\n",
		env.dataDir, env.logDir)
	if withKeys {
		content += "\n[generation]\napi_key = \"test-generation\"\n\n[speech]\napi_key = \"test-speech\"\n"
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

type stubRoute struct {
	status int
	body   string
}

type stubDaemon struct {
	*httptest.Server
	requests []string
}

// newStubDaemon serves canned replies keyed by "METHOD /path".
func newStubDaemon(t *testing.T, routes map[string]stubRoute) *stubDaemon {
	t.Helper()
	stub := &stubDaemon{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		stub.requests = append(stub.requests, key+"?"+r.URL.RawQuery)
		_, _ = io.Copy(io.Discard, r.Body)
		route, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"error":"no stub for `+key+`"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(route.status)
		_, _ = io.WriteString(w, route.body)
	}))
	t.Cleanup(stub.Close)
	return stub
}

func runCLI(t *testing.T, args []string, addr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if addr != "" {
		flags = append(flags, "--addr", addr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func closedAddress(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	return addr
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/ckan-portal/internal/config"
	"github.com/morezero/ckan-portal/internal/server"
)

const mainTestPrefix = "cmd/ckan:main_test"

var cliEnv = []string{
	"CKAN_URL", "CKAN_API_TOKEN", "CKAN_API_VERSION", "CKAN_REQUEST_TIMEOUT", "CKAN_TLS_VERIFY",
	"CKAN_USER_AGENT", "CKAN_MAX_RETRIES", "CKAN_RETRY_DELAY", "CKAN_RATE_LIMIT", "CKAN_RATE_BURST",
	"COMMS_URL", "GATEWAY_SUBJECT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "TOKEN_KEY",
	"DATABASE_URL", "PROFILES_FILE", "LOG_LEVEL",
}

// isolateEnv unsets every variable the CLI reads and sets the given ones.
func isolateEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range cliEnv {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
	t.Setenv("CKAN_MAX_RETRIES", "0")
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// fakeSite answers every action with reply and records requests.
type fakeSite struct {
	mu          sync.Mutex
	paths       []string
	auth        []string
	contentType []string
	bodies      [][]byte
	status      int
	reply       func(action string) string
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.contentType = append(f.contentType, r.Header.Get("Content-Type"))
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, f.reply(filepath.Base(r.URL.Path)))
}

func (f *fakeSite) last(t *testing.T) (path, auth, contentType string, body []byte) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.paths) == 0 {
		t.Fatalf("%s - site received no requests", mainTestPrefix)
	}
	i := len(f.paths) - 1
	return f.paths[i], f.auth[i], f.contentType[i], f.bodies[i]
}

func fixedReply(s string) func(string) string {
	return func(string) string { return s }
}

func startSite(t *testing.T, site *fakeSite) string {
	t.Helper()
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRootCmd_HasCommands(t *testing.T) {
	cmd := newRootCmd()
	want := []string{"call", "docs", "status", "token", "serve", "migrate", "ensure-db", "clear", "audit"}
	for _, name := range want {
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("%s - missing command %q", mainTestPrefix, name)
		}
	}
}

func TestCall_JSON(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": {"count": 1, "results": [{"name": "water"}]}}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site), "CKAN_API_TOKEN": "env-token"})

	out, _, err := run(t, "", "call", "package_search", `{"q": "water"}`)
	if err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%s - output is not JSON: %q", mainTestPrefix, out)
	}
	if got["count"] != float64(1) {
		t.Errorf("%s - output = %v", mainTestPrefix, got)
	}

	path, auth, _, body := site.last(t)
	if path != "/api/3/action/package_search" {
		t.Errorf("%s - path = %q", mainTestPrefix, path)
	}
	if auth != "env-token" {
		t.Errorf("%s - auth = %q", mainTestPrefix, auth)
	}
	if string(body) != `{"q":"water"}` {
		t.Errorf("%s - body = %q", mainTestPrefix, body)
	}
}

func TestCall_VersionAndYAML(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": {"name": "d1", "tags": ["a"]}}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site), "CKAN_API_VERSION": "2"})

	out, _, err := run(t, "", "call", "package_show", "-o", "yaml")
	if err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	if !strings.Contains(out, "name: d1") || !strings.Contains(out, "- a") {
		t.Errorf("%s - yaml output = %q", mainTestPrefix, out)
	}
	if path, _, _, _ := site.last(t); path != "/api/2/action/package_show" {
		t.Errorf("%s - path = %q, want configured version 2", mainTestPrefix, path)
	}

	if _, _, err := run(t, "", "call", "package_show@1"); err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	if path, _, _, _ := site.last(t); path != "/api/1/action/package_show" {
		t.Errorf("%s - path = %q, want explicit version 1", mainTestPrefix, path)
	}
}

func TestCall_Stdin(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": null}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site)})

	out, _, err := run(t, `{"id": "d1"}`+"\n", "call", "package_show", "-")
	if err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Errorf("%s - output = %q", mainTestPrefix, out)
	}
	if _, _, _, body := site.last(t); string(body) != `{"id":"d1"}` {
		t.Errorf("%s - body = %q", mainTestPrefix, body)
	}
}

func TestCall_Multipart(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": {"id": "r1"}}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site)})

	file := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(file, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("%s - write: %v", mainTestPrefix, err)
	}

	_, _, err := run(t, "", "call", "resource_create", `{"name": "data"}`,
		"--form", "package_id=d1", "--file", "upload="+file)
	if err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}

	_, _, contentType, body := site.last(t)
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("%s - content type = %q", mainTestPrefix, contentType)
	}
	form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("%s - parse form: %v", mainTestPrefix, err)
	}
	if form.Value["name"][0] != "data" || form.Value["package_id"][0] != "d1" {
		t.Errorf("%s - values = %v", mainTestPrefix, form.Value)
	}
	if fh := form.File["upload"]; len(fh) != 1 || fh[0].Filename != "data.csv" {
		t.Errorf("%s - files = %v", mainTestPrefix, form.File)
	}
}

func TestCall_ProtocolError(t *testing.T) {
	site := &fakeSite{
		status: http.StatusForbidden,
		reply:  fixedReply(`{"success": false, "error": {"__type": "Authorization Error", "message": "Access denied"}}`),
	}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site)})

	out, errOut, err := run(t, "", "call", "package_create", `{"name": "x"}`)
	if err == nil {
		t.Fatalf("%s - expected error", mainTestPrefix)
	}
	if out != "" {
		t.Errorf("%s - stdout should be empty, got %q", mainTestPrefix, out)
	}
	if !strings.Contains(errOut, "Access denied") {
		t.Errorf("%s - stderr should carry the server error: %q", mainTestPrefix, errOut)
	}
	if !strings.Contains(err.Error(), "Authorization Error") {
		t.Errorf("%s - err = %v", mainTestPrefix, err)
	}
}

func TestCall_Profile(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": 1}`)}
	url := startSite(t, site)

	profilesFile := filepath.Join(t.TempDir(), "profiles.json")
	content := `{"profiles": {"local": {"url": "` + url + `/portal", "tokenEnv": "LOCAL_CKAN_TOKEN", "version": 2}}}`
	if err := os.WriteFile(profilesFile, []byte(content), 0o644); err != nil {
		t.Fatalf("%s - write: %v", mainTestPrefix, err)
	}
	isolateEnv(t, map[string]string{"PROFILES_FILE": profilesFile, "LOCAL_CKAN_TOKEN": "profile-token"})

	if _, _, err := run(t, "", "--profile", "local", "call", "site_read"); err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	path, auth, _, _ := site.last(t)
	if path != "/portal/api/2/action/site_read" {
		t.Errorf("%s - path = %q", mainTestPrefix, path)
	}
	if auth != "profile-token" {
		t.Errorf("%s - auth = %q", mainTestPrefix, auth)
	}

	if _, _, err := run(t, "", "--profile", "missing", "call", "site_read"); err == nil {
		t.Errorf("%s - expected unknown profile error", mainTestPrefix)
	}
}

func TestCall_TokenFlagWins(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": 1}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site), "CKAN_API_TOKEN": "env-token"})

	if _, _, err := run(t, "", "call", "site_read", "--token", "flag-token"); err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	if _, auth, _, _ := site.last(t); auth != "flag-token" {
		t.Errorf("%s - auth = %q", mainTestPrefix, auth)
	}
}

func TestDocs(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": "Return the metadata of a dataset.\n"}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site)})

	out, _, err := run(t, "", "docs", "package_show")
	if err != nil {
		t.Fatalf("%s - docs: %v", mainTestPrefix, err)
	}
	if out != "Return the metadata of a dataset.\n" {
		t.Errorf("%s - output = %q", mainTestPrefix, out)
	}
	path, _, _, body := site.last(t)
	if path != "/api/3/action/help_show" || string(body) != `{"name":"package_show"}` {
		t.Errorf("%s - request = %s %s", mainTestPrefix, path, body)
	}
}

func TestStatus_Require(t *testing.T) {
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": {"site_title": "Demo", "ckan_version": "2.10.4", "extensions": ["datastore"]}}`)}
	isolateEnv(t, map[string]string{"CKAN_URL": startSite(t, site)})

	out, _, err := run(t, "", "status", "--require", ">=2.9")
	if err != nil {
		t.Fatalf("%s - status: %v", mainTestPrefix, err)
	}
	if !strings.Contains(out, `"ckan_version": "2.10.4"`) {
		t.Errorf("%s - output = %q", mainTestPrefix, out)
	}

	if _, _, err := run(t, "", "status", "--require", ">=2.11"); err == nil {
		t.Errorf("%s - expected version requirement to fail", mainTestPrefix)
	}
}

func TestToken_SetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	isolateEnv(t, map[string]string{"REDIS_ADDR": mr.Addr(), "TOKEN_KEY": "site"})

	if _, _, err := run(t, "", "token", "set", "secret", "--ttl", "1h"); err != nil {
		t.Fatalf("%s - token set: %v", mainTestPrefix, err)
	}
	out, _, err := run(t, "", "token", "get")
	if err != nil || strings.TrimSpace(out) != "secret" {
		t.Fatalf("%s - token get = %q, %v", mainTestPrefix, out, err)
	}
	if ttl := mr.TTL("ckan:token:site"); ttl != time.Hour {
		t.Errorf("%s - ttl = %v", mainTestPrefix, ttl)
	}

	if _, _, err := run(t, "", "token", "delete"); err != nil {
		t.Fatalf("%s - token delete: %v", mainTestPrefix, err)
	}
	if _, _, err := run(t, "", "token", "get"); err == nil {
		t.Errorf("%s - expected error after delete", mainTestPrefix)
	}
}

func TestCall_UsesStoredToken(t *testing.T) {
	mr := miniredis.RunT(t)
	site := &fakeSite{reply: fixedReply(`{"success": true, "result": 1}`)}
	isolateEnv(t, map[string]string{
		"CKAN_URL":       startSite(t, site),
		"CKAN_API_TOKEN": "env-token",
		"REDIS_ADDR":     mr.Addr(),
		"TOKEN_KEY":      "site",
	})
	if err := mr.Set("ckan:token:site", "stored-token"); err != nil {
		t.Fatalf("%s - miniredis set: %v", mainTestPrefix, err)
	}

	if _, _, err := run(t, "", "call", "site_read"); err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	if _, auth, _, _ := site.last(t); auth != "stored-token" {
		t.Errorf("%s - auth = %q", mainTestPrefix, auth)
	}
}

func TestToken_RequiresRedis(t *testing.T) {
	isolateEnv(t, nil)
	if _, _, err := run(t, "", "token", "get"); err == nil || !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Errorf("%s - err = %v", mainTestPrefix, err)
	}
}

func TestCall_ViaNATS(t *testing.T) {
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: 14270, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - nats server: %v", mainTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - nats server failed to start", mainTestPrefix)
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	nc, err := comms.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("%s - connect: %v", mainTestPrefix, err)
	}
	t.Cleanup(nc.Close)

	site := &fakeSite{reply: fixedReply(`{"success": true, "result": {"via": "gateway"}}`)}
	upstream, err := server.NewPortal(&config.Config{
		CKANURL:        startSite(t, site),
		RequestTimeout: 5 * time.Second,
		TLSVerify:      true,
	}, server.PortalOptions{})
	if err != nil {
		t.Fatalf("%s - NewPortal: %v", mainTestPrefix, err)
	}
	gw := server.NewGateway(nc, upstream, server.GatewayOpts{Subject: "cli.test.portal"})
	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("%s - gateway: %v", mainTestPrefix, err)
	}
	t.Cleanup(func() { _ = gw.Stop() })
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", mainTestPrefix, err)
	}

	isolateEnv(t, map[string]string{
		"CKAN_URL":        "https://edge.invalid",
		"COMMS_URL":       ns.ClientURL(),
		"GATEWAY_SUBJECT": "cli.test.portal",
	})

	out, _, err := run(t, "", "call", "package_show", `{"id": "d1"}`, "--via-nats", "--token", "edge-token")
	if err != nil {
		t.Fatalf("%s - call: %v", mainTestPrefix, err)
	}
	if !strings.Contains(out, `"via": "gateway"`) {
		t.Errorf("%s - output = %q", mainTestPrefix, out)
	}
	if _, auth, _, body := site.last(t); auth != "edge-token" || string(body) != `{"id":"d1"}` {
		t.Errorf("%s - upstream saw auth=%q body=%q", mainTestPrefix, auth, body)
	}
}

func TestBuildBody(t *testing.T) {
	tests := []struct {
		name      string
		jsonArg   string
		forms     []string
		wantNil   bool
		wantMulti bool
		wantErr   bool
	}{
		{name: "empty", wantNil: true},
		{name: "json", jsonArg: `{"a": 1}`},
		{name: "json scalar", jsonArg: `"text"`},
		{name: "invalid json", jsonArg: `{a`, wantErr: true},
		{name: "form only", forms: []string{"a=1"}, wantMulti: true},
		{name: "form with object", jsonArg: `{"b": 2}`, forms: []string{"a=1"}, wantMulti: true},
		{name: "form with array", jsonArg: `[1]`, forms: []string{"a=1"}, wantErr: true},
		{name: "bad form", forms: []string{"novalue"}, wantErr: true},
		{name: "empty form name", forms: []string{"=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := buildBody(tt.jsonArg, tt.forms, nil, strings.NewReader(""))
			if (err != nil) != tt.wantErr {
				t.Fatalf("%s - err = %v, wantErr %v", mainTestPrefix, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (p == nil) != tt.wantNil {
				t.Fatalf("%s - payload = %v, wantNil %v", mainTestPrefix, p, tt.wantNil)
			}
			if p != nil && p.IsMultipart() != tt.wantMulti {
				t.Errorf("%s - multipart = %v, want %v", mainTestPrefix, p.IsMultipart(), tt.wantMulti)
			}
		})
	}
}

func TestBuildBody_MissingFile(t *testing.T) {
	_, err := buildBody("", nil, []string{"upload=" + filepath.Join(t.TempDir(), "nope")}, nil)
	if err == nil {
		t.Errorf("%s - expected error for missing file", mainTestPrefix)
	}
}

func TestPrintValue(t *testing.T) {
	raw := json.RawMessage(`{"b": [1, 2], "a": "<x>"}`)

	var buf bytes.Buffer
	if err := printValue(&buf, "json", raw); err != nil {
		t.Fatalf("%s - json: %v", mainTestPrefix, err)
	}
	if buf.String() != "{\n  \"a\": \"<x>\",\n  \"b\": [\n    1,\n    2\n  ]\n}\n" {
		t.Errorf("%s - json output = %q", mainTestPrefix, buf.String())
	}

	buf.Reset()
	if err := printValue(&buf, "yaml", raw); err != nil {
		t.Fatalf("%s - yaml: %v", mainTestPrefix, err)
	}
	if out := buf.String(); !strings.HasPrefix(out, "a: <x>\nb:\n") || !strings.Contains(out, "- 1\n") || !strings.Contains(out, "- 2\n") {
		t.Errorf("%s - yaml output = %q", mainTestPrefix, buf.String())
	}

	if err := printValue(&buf, "xml", raw); err == nil {
		t.Errorf("%s - expected error for unknown format", mainTestPrefix)
	}
}

func TestWithDatabaseName(t *testing.T) {
	got, err := withDatabaseName("postgres://u:p@db:5432/ckan?sslmode=disable", "ckan_test")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", mainTestPrefix, err)
	}
	if got != "postgres://u:p@db:5432/ckan_test?sslmode=disable" {
		t.Errorf("%s - got %q", mainTestPrefix, got)
	}
	if _, err := withDatabaseName("postgres://db/ckan", "a/b"); err == nil {
		t.Errorf("%s - expected error for invalid name", mainTestPrefix)
	}
}

func TestParseAction(t *testing.T) {
	a, err := parseAction("package_show", 2)
	if err != nil || a.Version() != 2 {
		t.Errorf("%s - default version: %v %v", mainTestPrefix, a, err)
	}
	a, err = parseAction("package_show@1", 2)
	if err != nil || a.Version() != 1 {
		t.Errorf("%s - explicit version: %v %v", mainTestPrefix, a, err)
	}
	a, err = parseAction("foo@bar", 2)
	if err != nil || a.Name() != "foo@bar" || a.Version() != 2 {
		t.Errorf("%s - name containing @: %v %v", mainTestPrefix, a, err)
	}
}

func TestDBCommands_RequireDatabaseURL(t *testing.T) {
	isolateEnv(t, nil)
	for _, args := range [][]string{{"migrate", "up"}, {"migrate", "status"}, {"clear"}, {"audit", "list"}, {"ensure-db"}} {
		if _, _, err := run(t, "", args...); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
			t.Errorf("%s - %v: err = %v", mainTestPrefix, args, err)
		}
	}
}

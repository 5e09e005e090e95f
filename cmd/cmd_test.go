package cmd

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/mozilla/mozci-go/internal/buildjson"
	"github.com/mozilla/mozci-go/internal/status"
)

const shardDoc = `{"builds": [
	{"builder_id": 42, "starttime": 1424960497, "endtime": 1424961882, "result": 0, "slave_id": 7,
	 "request_ids": [62949190],
	 "properties": {"buildername": "Platform repo test", "revision": "4f2decfeb9c5", "request_ids": [62949190]}}
]}`

// setupEnv serves shardDoc as the 2015-02-26 day file and writes a config
// pointing at it. It returns the config path.
func setupEnv(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(shardDoc))
	zw.Close()
	blob := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/builds-2015-02-26.js.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(blob)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "base_url: " + srv.URL + "\ncache_dir: " + filepath.Join(dir, "cache") + "\nrequests_per_second: 0\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile = ""
		queryJSON = false
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestQueryCommandJSON(t *testing.T) {
	cfgPath := setupEnv(t)

	out, err := runCommand(t, "query", "--config", cfgPath,
		"--complete-at", "1424961882", "--request-id", "62949190", "--json")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var job buildjson.JobRecord
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("output is not a job record: %v\n%s", err, out)
	}
	if job.BuilderID != 42 || job.Properties.BuilderName != "Platform repo test" {
		t.Errorf("job = %+v", job)
	}
}

func TestQueryCommandNotFound(t *testing.T) {
	cfgPath := setupEnv(t)

	_, err := runCommand(t, "query", "--config", cfgPath,
		"--complete-at", "1424961882", "--request-id", "99999999")

	var nf *buildjson.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "builds-2015-02-26.js") {
		t.Errorf("error should name the shard: %v", err)
	}
}

func TestShardCommand(t *testing.T) {
	cfgPath := setupEnv(t)

	out, err := runCommand(t, "shard", "--config", cfgPath, "--complete-at", "1424961882")
	if err != nil {
		t.Fatalf("shard failed: %v", err)
	}
	if strings.TrimSpace(out) != "builds-2015-02-26.js" {
		t.Errorf("shard output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "mozci version "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestReadJobs(t *testing.T) {
	jobs, err := readJobs("-", strings.NewReader(`[{"build_id": 1, "requests": []}, {"build_id": 2}]`))
	if err != nil {
		t.Fatalf("readJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[1].BuildID != 2 {
		t.Errorf("jobs = %+v", jobs)
	}

	if _, err := readJobs("-", strings.NewReader(`{"not": "a list"}`)); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := readJobs(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printSummary(&out, status.Summary{Successful: 3, Pending: 1, Coalesced: 2})

	got := out.String()
	for _, want := range []string{"6 jobs", "Successful:  3", "Pending:", "Coalesced:", "Unknown:"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinIDs(t *testing.T) {
	if got := joinIDs([]int64{1, 22, 333}); got != "1, 22, 333" {
		t.Errorf("joinIDs() = %q", got)
	}
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/render"
)

func TestResolveFormat(t *testing.T) {
	saved := globalFlags.Format
	defer func() { globalFlags.Format = saved }()

	globalFlags.Format = ""
	if got := resolveFormat(""); got != render.FormatTable {
		t.Errorf("no sources: expected table, got %q", got)
	}
	if got := resolveFormat("json"); got != "json" {
		t.Errorf("config format: expected json, got %q", got)
	}

	globalFlags.Format = "csv"
	if got := resolveFormat("json"); got != "csv" {
		t.Errorf("flag should beat config: expected csv, got %q", got)
	}
}

func TestDatasetNameFromPath(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"traffic.csv", "traffic"},
		{"/data/My Site Traffic.csv", "my-site-traffic"},
		{"clicks", "clicks"},
		{"-", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := datasetNameFromPath(c.path); got != c.want {
			t.Errorf("datasetNameFromPath(%q): expected %q, got %q", c.path, c.want, got)
		}
	}
}

func TestOutputWriterDefault(t *testing.T) {
	saved := globalFlags.Out
	defer func() { globalFlags.Out = saved }()
	globalFlags.Out = ""

	var buf bytes.Buffer
	w, closeFn, err := outputWriter(&buf)
	if err != nil {
		t.Fatalf("outputWriter: %v", err)
	}
	defer closeFn()
	if w != &buf {
		t.Error("expected default writer when --out is unset")
	}
}

func TestOutputWriterToFile(t *testing.T) {
	saved := globalFlags.Out
	defer func() { globalFlags.Out = saved }()
	globalFlags.Out = filepath.Join(t.TempDir(), "out.csv")

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter: %v", err)
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	closeFn()

	data, err := os.ReadFile(globalFlags.Out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("unexpected file contents: %q", data)
	}
}

func TestPrintKVTableAlignment(t *testing.T) {
	var buf bytes.Buffer
	printKVTableTo(&buf, [][]string{
		{"short", "1"},
		{"a longer key", "2"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	// Values line up in the same column.
	if strings.Index(lines[0], "1") != strings.Index(lines[1], "2") {
		t.Errorf("values should align:\n%s", buf.String())
	}
}

func TestBuildResult(t *testing.T) {
	start := time.Now().Add(-10 * time.Millisecond)
	r := buildResult(model.KindSummary, "analyze summary mysite", "payload", []string{"w"}, start, 7)
	if r.Kind != model.KindSummary || r.Command != "analyze summary mysite" {
		t.Errorf("unexpected envelope: %+v", r)
	}
	if r.Stats.Items != 7 {
		t.Errorf("Items: expected 7, got %d", r.Stats.Items)
	}
	if r.Stats.DurationMs < 0 {
		t.Errorf("DurationMs should be non-negative, got %d", r.Stats.DurationMs)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", r.Warnings)
	}
}

package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BurtHarris/dupescan/internal/detector"
	"github.com/BurtHarris/dupescan/internal/engine"
	"github.com/BurtHarris/dupescan/internal/fuzzy"
	"github.com/BurtHarris/dupescan/internal/scanner"
)

func sampleResult() *engine.ScanResult {
	return &engine.ScanResult{
		Metadata: engine.Metadata{
			Roots:        []string{"/data"},
			Recursive:    true,
			StartTime:    time.Now().Add(-time.Second),
			EndTime:      time.Now(),
			Duration:     time.Second,
			FilesFound:   4,
			BytesScanned: 2248,
			Errors: []*scanner.ScanError{
				{Path: "/data/locked.txt", Kind: scanner.KindAccess, Err: errors.New("permission denied")},
			},
		},
		DuplicateGroups: []*detector.DuplicateGroup{
			{
				Hash: "deadbeef01234567",
				Files: []*scanner.FileRecord{
					{Path: "/data/a.txt", Size: 1024},
					{Path: "/data/b.txt", Size: 1024},
				},
			},
		},
		PotentialMatches: []*fuzzy.PotentialMatchGroup{
			{
				BaseName:  "report",
				Threshold: 0.8,
				Files: []*scanner.FileRecord{
					{Path: "/data/report.doc", Size: 100},
					{Path: "/data/report.pdf", Size: 100},
				},
				Scores: map[string]float64{
					"/data/report.doc": 1.0,
					"/data/report.pdf": 1.0,
				},
			},
		},
		UniqueFiles: []*scanner.FileRecord{
			{Path: "/data/only.txt", Size: 100},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"summary", "text", "json", "yaml"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestReportSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatSummary).Report(sampleResult()); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"4 files",
		"Duplicate groups: 1",
		"1.0 KiB wasted",
		"Errors: 1",
		"/data/locked.txt",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestReportText(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatText).Report(sampleResult()); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"/data/a.txt",
		"/data/b.txt",
		"deadbeef01234567",
		"report.doc",
		"similarity 1.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatJSON).Report(sampleResult()); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	var env struct {
		Version string `json:"version"`
		Result  struct {
			DuplicateGroups []struct {
				Hash  string `json:"hash"`
				Files []struct {
					Path string `json:"path"`
					Size int64  `json:"size"`
				} `json:"files"`
			} `json:"duplicate_groups"`
		} `json:"result"`
		Errors []struct {
			Path   string `json:"path"`
			Reason string `json:"reason"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if env.Version != ExportVersion {
		t.Errorf("version = %q, want %q", env.Version, ExportVersion)
	}
	if len(env.Result.DuplicateGroups) != 1 {
		t.Fatalf("got %d groups in export", len(env.Result.DuplicateGroups))
	}
	if env.Result.DuplicateGroups[0].Hash != "deadbeef01234567" {
		t.Errorf("hash = %q", env.Result.DuplicateGroups[0].Hash)
	}
	if len(env.Errors) != 1 || env.Errors[0].Reason != "access denied" {
		t.Errorf("errors = %+v, want the access error with its reason", env.Errors)
	}
}

func TestReportYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatYAML).Report(sampleResult()); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	var env map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if env["version"] != ExportVersion {
		t.Errorf("version = %v, want %q", env["version"], ExportVersion)
	}
}

func TestReportEmptyResult(t *testing.T) {
	empty := &engine.ScanResult{}

	for _, format := range []OutputFormat{FormatSummary, FormatText, FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		if err := New(&buf, format).Report(empty); err != nil {
			t.Errorf("Report(%s) failed on empty result: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Report(%s) wrote nothing", format)
		}
	}
}

func TestReportUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, OutputFormat("bogus")).Report(sampleResult()); err == nil {
		t.Error("expected error for unknown format")
	}
}

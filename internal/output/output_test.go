package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/veilcrawl/veil/pkg/models"
)

func sampleResult(url string) *models.FetchResult {
	return &models.FetchResult{
		URL:          url,
		Strategy:     models.StrategyImpersonate,
		StatusCode:   200,
		Title:        "Example",
		HTML:         "<html></html>",
		FetchedAt:    time.Now().UTC(),
		ResponseTime: 120,
	}
}

func TestWriter_Save(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	path, err := w.Save(sampleResult("https://shop.example.com/catalog?page=2"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "shop_example_com_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("filename = %q, want host-derived json name", base)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file failed: %v", err)
	}
	var decoded models.FetchResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if decoded.URL != "https://shop.example.com/catalog?page=2" {
		t.Errorf("decoded URL = %q", decoded.URL)
	}
	if decoded.Strategy != models.StrategyImpersonate {
		t.Errorf("decoded Strategy = %q, want impersonate", decoded.Strategy)
	}
}

func TestWriter_SaveBatchSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	batch := &models.BatchResult{Outcomes: []models.Outcome{
		{URL: "https://a.example.com", Result: sampleResult("https://a.example.com")},
		{URL: "https://b.example.com", Err: os.ErrDeadlineExceeded},
	}}
	paths, err := w.SaveBatch(batch)
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("SaveBatch wrote %d files, want 1", len(paths))
	}
}

func TestWriter_SaveSummaryCSV(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	batch := &models.BatchResult{Outcomes: []models.Outcome{
		{URL: "https://a.example.com", Result: sampleResult("https://a.example.com")},
		{URL: "https://b.example.com", Err: os.ErrNotExist},
	}}
	path, err := w.SaveSummaryCSV(batch, "summary.csv")
	if err != nil {
		t.Fatalf("SaveSummaryCSV failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading summary failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("summary has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.Contains(lines[1], "impersonate") {
		t.Errorf("success row missing strategy: %q", lines[1])
	}
}

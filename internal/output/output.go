// Package output persists fetch results to disk.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/veilcrawl/veil/pkg/models"
)

// Writer saves results under a base directory, one JSON file per successful
// fetch. Filenames are derived from the target host plus a timestamp so
// repeated runs never clobber each other.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Save writes one result as indented JSON and returns the path written.
func (w *Writer) Save(result *models.FetchResult) (string, error) {
	name := fmt.Sprintf("%s_%s.json", sanitizeHost(result.URL), time.Now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// SaveBatch writes every successful outcome and returns the paths written.
// A single failed write aborts the batch save; already-written files stay.
func (w *Writer) SaveBatch(batch *models.BatchResult) ([]string, error) {
	var paths []string
	for _, o := range batch.Outcomes {
		if !o.Success() {
			continue
		}
		path, err := w.Save(o.Result)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveSummaryCSV writes a per-target summary of the batch: URL, terminal
// strategy, status, and timing for successes, the failure text otherwise.
func (w *Writer) SaveSummaryCSV(batch *models.BatchResult, name string) (string, error) {
	path := filepath.Join(w.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	defer cw.Flush()

	if err := cw.Write([]string{"url", "ok", "strategy", "status", "response_ms", "error"}); err != nil {
		return "", err
	}
	for _, o := range batch.Outcomes {
		row := []string{o.URL, strconv.FormatBool(o.Success()), "", "", "", ""}
		if o.Success() {
			row[2] = string(o.Result.Strategy)
			row[3] = strconv.Itoa(o.Result.StatusCode)
			row[4] = strconv.FormatInt(o.Result.ResponseTime, 10)
		} else if o.Err != nil {
			row[5] = o.Err.Error()
		}
		if err := cw.Write(row); err != nil {
			return "", err
		}
	}
	cw.Flush()
	return path, cw.Error()
}

// sanitizeHost turns a URL into a filename-safe host token.
func sanitizeHost(rawURL string) string {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	replacer := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_", ".", "_")
	return replacer.Replace(host)
}

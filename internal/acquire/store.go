// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// Record is the YAML sidecar written next to saved content.
type Record struct {
	ID         string            `yaml:"id"`
	Identifier string            `yaml:"identifier"`
	RequestID  string            `yaml:"request_id,omitempty"`
	Kind       types.ContentKind `yaml:"kind"`
	Source     string            `yaml:"source"`
	Tier       string            `yaml:"tier,omitempty"`
	URL        string            `yaml:"url,omitempty"`
	Path       string            `yaml:"path"`
	Bytes      int               `yaml:"bytes"`
	Title      string            `yaml:"title,omitempty"`
	Authors    []string          `yaml:"authors,omitempty"`
	Attempts   []AttemptRecord   `yaml:"attempts,omitempty"`
	AcquiredAt time.Time         `yaml:"acquired_at"`
}

// AttemptRecord is the diagnostic line kept for every strategy tried.
type AttemptRecord struct {
	Tier     string `yaml:"tier"`
	Strategy string `yaml:"strategy"`
	Status   string `yaml:"status"`
	Reason   string `yaml:"reason,omitempty"`
}

// Paths returns where content and metadata for slug live under dir.
func Paths(dir, slug string, kind types.ContentKind) (content, meta string) {
	ext := ".pdf"
	if kind == types.KindHTML {
		ext = ".html"
	}
	return filepath.Join(dir, rawDir, slug+ext), filepath.Join(dir, metadataDir, slug+".yaml")
}

// Existing returns the saved record for slug, if both its content and
// metadata files are present.
func Existing(dir, slug string) (*Record, bool) {
	_, metaPath := Paths(dir, slug, types.KindPDF)
	rec, err := readRecord(metaPath)
	if err != nil {
		return nil, false
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return nil, false
	}
	return rec, true
}

// Save writes the acquired content and its YAML record under dir. Content
// goes through a temporary file and is renamed into place.
func Save(dir, identifier string, res Result) (*Record, error) {
	idType, normalized := Classify(identifier)
	slug := Slug(idType, normalized)
	contentPath, metaPath := Paths(dir, slug, res.Content.Kind)

	for _, d := range []string{filepath.Dir(contentPath), filepath.Dir(metaPath)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if err := writeAtomic(contentPath, res.Content.Data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", slug, err)
	}

	rec := &Record{
		ID:         slug,
		Identifier: identifier,
		Kind:       res.Content.Kind,
		Source:     res.Source,
		Tier:       res.Tier,
		URL:        res.Content.URL,
		Path:       contentPath,
		Bytes:      res.Content.Len(),
		AcquiredAt: time.Now().UTC(),
	}
	if res.RequestID != uuid.Nil {
		rec.RequestID = res.RequestID.String()
	}
	if res.Expected != nil {
		rec.Title = res.Expected.Title
		rec.Authors = res.Expected.Authors
	}
	for _, a := range res.Attempts {
		rec.Attempts = append(rec.Attempts, AttemptRecord{
			Tier:     a.Tier,
			Strategy: a.Strategy,
			Status:   string(a.Status),
			Reason:   a.Reason(),
		})
	}
	if err := writeRecord(rec, metaPath); err != nil {
		return nil, fmt.Errorf("writing metadata for %s: %w", slug, err)
	}
	return rec, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func writeRecord(rec *Record, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

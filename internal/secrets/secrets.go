// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials from a directory holding one plain-text
// file per key, such as .secrets/core-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Key file names understood by Apply.
const (
	KeyCore            = "core-api-key"
	KeyRenderToken     = "render-api-token"
	KeySemanticScholar = "semantic-scholar-api-key"
	KeyUnpaywallEmail  = "unpaywall-email"
)

// Load maps each regular, non-hidden file name in dir to its trimmed
// contents. A missing dir yields an empty map. Blank files are ignored and
// unreadable ones are logged and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return map[string]string{}, nil
	case err != nil:
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	log = logging.OrNop(log)
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if v, ok := readKey(filepath.Join(dir, e.Name()), log); ok {
			out[e.Name()] = v
		}
	}
	return out, nil
}

func readKey(path string, log *zap.Logger) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("could not read secret", zap.String("key", filepath.Base(path)), zap.Error(err))
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

// Apply copies known secrets into cfg fields that are still empty, so
// explicit configuration and environment variables take precedence. It
// returns the keys it applied.
func Apply(cfg *types.Config, secrets map[string]string) []string {
	targets := []struct {
		key   string
		field *string
	}{
		{KeyCore, &cfg.Acquisition.CoreAPIKey},
		{KeyRenderToken, &cfg.Render.CloudToken},
		{KeySemanticScholar, &cfg.Acquisition.SemanticScholarAPIKey},
		{KeyUnpaywallEmail, &cfg.Acquisition.Email},
	}
	var applied []string
	for _, t := range targets {
		if v, ok := secrets[t.key]; ok && *t.field == "" {
			*t.field = v
			applied = append(applied, t.key)
		}
	}
	return applied
}

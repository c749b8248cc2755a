// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// SourceUpload names content supplied by the user instead of a strategy.
const SourceUpload = "upload"

// ErrUnsupportedUpload is returned for uploads that are neither PDF nor HTML.
var ErrUnsupportedUpload = errors.New("upload is neither PDF nor HTML")

// FromUpload wraps user-supplied bytes as an acquisition result, so a manual
// upload after pipeline exhaustion flows through the same downstream path as
// a strategy winner.
func FromUpload(name string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("upload %q is empty", name)
	}
	var kind types.ContentKind
	switch {
	case IsPDF(data):
		kind = types.KindPDF
	case looksHTML(name, data):
		kind = types.KindHTML
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedUpload, name)
	}
	return Result{
		RequestID: uuid.New(),
		Content:   types.Content{Kind: kind, Data: data, Source: SourceUpload, URL: name},
		Source:    SourceUpload,
		Tier:      SourceUpload,
		Attempts: []cascade.Attempt{
			{Tier: SourceUpload, Strategy: SourceUpload, Status: cascade.StatusWon},
		},
	}, nil
}

func looksHTML(name string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html"))
}

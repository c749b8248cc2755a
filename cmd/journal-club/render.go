// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render <url|file>",
	Short: "Run the rendering escalation on a page",
	Long: `Render materializes a script-rendered page: DOM emulation first, then the
cloud rendering API, then a local headless browser. It prints the rendered
markup, or the original when every backend falls short.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringP("out", "o", "", "write the markup to this file instead of stdout")
	renderCmd.Flags().Bool("text", false, "print the extracted article text instead of markup")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	page, err := loadPage(cmd, args[0])
	if err != nil {
		return err
	}

	res := newRenderer().Render(cmd.Context(), page)
	logger.Info("render finished",
		zap.Bool("rendered", res.Rendered),
		zap.String("backend", res.Backend),
		zap.Int("attempts", len(res.Attempts)))
	for _, a := range res.Attempts {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %-8s %-9s %s\n", a.Strategy, a.Status, a.Reason())
	}

	out := res.Markup
	if asText, _ := cmd.Flags().GetBool("text"); asText {
		out = []byte(newExtractor().Extract(res.Markup).Text + "\n")
	}
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		return os.WriteFile(path, out, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// loadPage reads a local file, or fetches the URL once so the DOM backend
// has markup to work on.
func loadPage(cmd *cobra.Command, target string) (render.Page, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		data, err := os.ReadFile(target)
		if err != nil {
			return render.Page{}, err
		}
		return render.Page{Markup: data}, nil
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
	if err != nil {
		return render.Page{}, err
	}
	req.Header.Set("User-Agent", cfg.Acquisition.UserAgent)
	resp, err := httpClient().Do(req)
	if err != nil {
		return render.Page{}, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return render.Page{}, fmt.Errorf("fetching %s: HTTP %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, cfg.Acquisition.MaxPDFBytes))
	if err != nil {
		return render.Page{}, err
	}
	return render.Page{URL: target, Markup: data}, nil
}

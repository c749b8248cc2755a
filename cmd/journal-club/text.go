// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/nayanlc19/journal-club-standalone/internal/fulltext"
)

var textCmd = &cobra.Command{
	Use:   "text <doi|arxiv|url>",
	Short: "Resolve an identifier into the full text handed to appraisal",
	Long: `Text acquires the paper, converts a PDF or extracts article text from HTML,
renders script-shell pages, and prints the resulting text. --meta writes
the handoff record (source, stage, publisher, figures) as YAML.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runText,
}

func init() {
	textCmd.Flags().String("upload", "", "use this PDF or HTML file instead of acquiring")
	textCmd.Flags().String("doi", "", "DOI recorded for an --upload")
	textCmd.Flags().Bool("figures", false, "also extract tables and figures from PDFs")
	textCmd.Flags().String("meta", "", "write the handoff record as YAML to this file")

	rootCmd.AddCommand(textCmd)
}

func runText(cmd *cobra.Command, args []string) error {
	upload, _ := cmd.Flags().GetString("upload")
	withFigures, _ := cmd.Flags().GetBool("figures")
	svc := newService(cmd.Context(), withFigures)

	var (
		h   fulltext.Handoff
		err error
	)
	switch {
	case upload != "":
		data, rerr := os.ReadFile(upload)
		if rerr != nil {
			return rerr
		}
		doi, _ := cmd.Flags().GetString("doi")
		h, err = svc.ResolveUpload(cmd.Context(), upload, data, doi)
	case len(args) == 1:
		h, err = svc.Resolve(cmd.Context(), args[0])
	default:
		return errors.New("provide a DOI, arXiv ID or URL, or --upload a file")
	}
	if err != nil {
		return err
	}

	if meta, _ := cmd.Flags().GetString("meta"); meta != "" {
		record := h
		record.Text = ""
		data, err := yaml.Marshal(record)
		if err != nil {
			return err
		}
		if err := os.WriteFile(meta, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", meta, err)
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), h.Text)
	return err
}

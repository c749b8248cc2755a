// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/nayanlc19/journal-club-standalone/internal/acquire"
	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [identifiers...]",
	Short: "Fetch the PDF or HTML for DOIs, arXiv IDs or URLs",
	Long: `Acquire runs the tiered acquisition pipeline for one identifier and reports
the winning source. On exhaustion it lists every attempted source with the
reason it failed, and --upload can supply the PDF or HTML by hand.

With --dir, every identifier is saved under dir/raw with a YAML record in
dir/metadata; identifiers already saved are skipped.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().StringP("out", "o", "", "write the acquired content to this file")
	acquireCmd.Flags().String("format", "text", "report format: text or yaml")
	acquireCmd.Flags().String("upload", "", "use this PDF or HTML file instead of acquiring")
	acquireCmd.Flags().String("dir", "", "batch mode: save every identifier under this directory")
	acquireCmd.Flags().Int("concurrency", 4, "identifiers acquired at once in batch mode")

	rootCmd.AddCommand(acquireCmd)
}

// acquireReport is the printed summary of one acquisition.
type acquireReport struct {
	Identifier string                  `yaml:"identifier"`
	RequestID  string                  `yaml:"request_id,omitempty"`
	Source     string                  `yaml:"source,omitempty"`
	Tier       string                  `yaml:"tier,omitempty"`
	Kind       string                  `yaml:"kind,omitempty"`
	Bytes      int                     `yaml:"bytes"`
	URL        string                  `yaml:"url,omitempty"`
	Title      string                  `yaml:"title,omitempty"`
	Attempts   []acquire.AttemptRecord `yaml:"attempts,omitempty"`
	Error      string                  `yaml:"error,omitempty"`
}

func runAcquire(cmd *cobra.Command, args []string) error {
	upload, _ := cmd.Flags().GetString("upload")
	dir, _ := cmd.Flags().GetString("dir")
	if len(args) == 0 && upload == "" {
		return errors.New("provide a DOI, arXiv ID or URL, or --upload a file")
	}

	if dir != "" {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		result := newPipeline().AcquireBatch(cmd.Context(), args, dir, concurrency, cmd.OutOrStdout())
		if result.HasFailures() {
			return fmt.Errorf("%d identifier(s) failed acquisition", result.Failed)
		}
		return nil
	}
	if len(args) > 1 {
		return errors.New("more than one identifier needs --dir")
	}

	identifier := upload
	var (
		res acquire.Result
		err error
	)
	if upload != "" {
		data, rerr := os.ReadFile(upload)
		if rerr != nil {
			return rerr
		}
		res, err = acquire.FromUpload(upload, data)
	} else {
		identifier = args[0]
		res, err = newPipeline().Acquire(cmd.Context(), identifier, nil)
	}

	report := newAcquireReport(identifier, res, err)
	format, _ := cmd.Flags().GetString("format")
	if perr := printReport(cmd.OutOrStdout(), format, report); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := os.WriteFile(out, res.Content.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
	}
	return nil
}

func newAcquireReport(identifier string, res acquire.Result, err error) acquireReport {
	r := acquireReport{
		Identifier: identifier,
		Source:     res.Source,
		Tier:       res.Tier,
		Kind:       string(res.Content.Kind),
		Bytes:      res.Content.Len(),
		URL:        res.Content.URL,
		Attempts:   attemptRecords(res.Attempts),
	}
	if res.RequestID != uuid.Nil {
		r.RequestID = res.RequestID.String()
	}
	if res.Expected != nil {
		r.Title = res.Expected.Title
	}
	if err != nil {
		r.Error = err.Error()
		var ex *cascade.ExhaustedError
		if errors.As(err, &ex) {
			r.Attempts = attemptRecords(ex.Attempts)
		}
	}
	return r
}

func attemptRecords(attempts []cascade.Attempt) []acquire.AttemptRecord {
	out := make([]acquire.AttemptRecord, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, acquire.AttemptRecord{Tier: a.Tier, Strategy: a.Strategy, Status: string(a.Status), Reason: a.Reason()})
	}
	return out
}

func printReport(w io.Writer, format string, r acquireReport) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(r)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q (want text or yaml)", format)
	}

	if r.Error == "" {
		fmt.Fprintf(w, "acquired: %s\n", r.Identifier)
		fmt.Fprintf(w, "  source: %s (%s)\n", r.Source, r.Tier)
		fmt.Fprintf(w, "  kind:   %s, %d bytes\n", r.Kind, r.Bytes)
		if r.URL != "" {
			fmt.Fprintf(w, "  url:    %s\n", r.URL)
		}
		return nil
	}
	fmt.Fprintf(w, "failed: %s\n  %s\n", r.Identifier, r.Error)
	for _, a := range r.Attempts {
		fmt.Fprintf(w, "  %-20s %-22s %-9s %s\n", a.Tier, a.Strategy, a.Status, a.Reason)
	}
	if len(r.Attempts) > 0 {
		fmt.Fprintln(w, "\nRetry with --upload <file> once you have the PDF or HTML.")
	}
	return nil
}

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alwanrahmanas/kbli2020-matcher/common/logger"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

func newBatchCmd() *cobra.Command {
	var (
		inPath      string
		outPath     string
		textColumn  string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify a CSV of business-activity descriptions",
		Long: `Reads a CSV with a header row, classifies the text column of every row,
and writes one output row per (input row, classification) pair. Progress is
reported on stderr after each micro-batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, _, err := buildPipeline()
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				go func() {
					http.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(metricsAddr, nil); err != nil {
						logger.Errorf("metrics server: %v", err)
					}
				}()
			}

			rows, header, err := readRows(inPath, textColumn)
			if err != nil {
				return err
			}
			logger.Infof("batch: %d rows from %s (text column %q)", len(rows), inPath, header)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job := orch.Submit(ctx, rows)
			for ev := range job.Progress() {
				fmt.Fprintf(os.Stderr, "progress: %d/%d processed, %d failed (last: %s)\n",
					ev.Processed, ev.Total, ev.Failed, truncate(ev.LastRow, 60))
			}
			results := job.Wait()

			if err := writeResults(outPath, results); err != nil {
				return err
			}
			logger.Infof("batch: wrote %d rows to %s", len(results), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input CSV path (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV path (required)")
	cmd.Flags().StringVar(&textColumn, "column", "", "name of the description column (default: first column)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// readRows loads the input CSV and returns one Row per data line. The row ID
// is the zero-based data-line position, which the scheduler uses to restore
// input order in its output.
func readRows(path, column string) ([]schema.Row, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, "", fmt.Errorf("%s has no data rows", path)
	}

	header := records[0]
	col := 0
	if column != "" {
		col = -1
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), column) {
				col = i
				break
			}
		}
		if col < 0 {
			return nil, "", fmt.Errorf("column %q not found in header %v", column, header)
		}
	}

	rows := make([]schema.Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		text := ""
		if col < len(rec) {
			text = rec[col]
		}
		rows = append(rows, schema.Row{ID: i, Text: text})
	}
	return rows, header[col], nil
}

// writeResults emits one CSV line per classification, repeating the row
// text for multi-label rows. Unmapped and failed rows get a single line
// with an empty code.
func writeResults(path string, results []schema.RowResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"row", "text", "status", "code", "title", "confidence", "reasoning"}); err != nil {
		return err
	}
	for _, res := range results {
		base := []string{strconv.Itoa(res.Row.ID), res.Row.Text, string(res.Status)}
		if len(res.Classifications) == 0 {
			if err := w.Write(append(base, "", "", "", res.Reason)); err != nil {
				return err
			}
			continue
		}
		for _, c := range res.Classifications {
			reason := c.Reasoning
			if c.Unmapped && reason == "" {
				reason = res.Reason
			}
			line := append(base, c.Code, c.Title,
				strconv.FormatFloat(c.Confidence, 'f', 2, 64), reason)
			if err := w.Write(line); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/trafficast/trafficast/internal/app"
	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/pipeline"
	"github.com/trafficast/trafficast/internal/preprocess"
	"github.com/trafficast/trafficast/internal/render"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns the destination for command output, honouring --out.
// The returned closeFn is a no-op when writing to the default writer.
func outputWriter(def io.Writer) (io.Writer, func(), error) {
	if globalFlags.Out == "" {
		return def, func() {}, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// loadSeries reads a dataset by name from the store and canonicalizes it.
// Name "-" reads JSONL records from stdin instead, which lets analysis and
// forecast commands sit at the end of a pipe.
func loadSeries(deps *app.Deps, name string) (*model.Series, []string, error) {
	opts := preprocess.Options{OutlierZ: deps.Config.OutlierZ}

	if name == "-" {
		if !pipeline.StdinIsPipe() {
			return nil, nil, fmt.Errorf(`dataset "-" reads JSONL from stdin, but nothing is piped in`)
		}
		dataset, recs, err := pipeline.ReadRecords(os.Stdin)
		if err != nil {
			return nil, nil, err
		}
		if dataset == "" {
			dataset = "stdin"
		}
		return preprocess.Canonicalize(dataset, recs, opts)
	}

	if err := deps.RequireStore(); err != nil {
		return nil, nil, err
	}
	recs, meta, ok, err := deps.Store.GetDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("reading store: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("no dataset %q in local database\n\n  Use: trafficast ingest <file.csv> --name %s", name, name)
	}
	s, warnings, err := preprocess.Canonicalize(name, recs, opts)
	if err != nil {
		return nil, nil, err
	}
	s.SourcePath = meta.SourcePath
	s.IngestedAt = meta.IngestedAt
	return s, warnings, nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTableTo renders a two-column key/value listing with aligned columns.
func printKVTableTo(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

// buildResult wraps a payload in the standard Result envelope.
func buildResult(kind, command string, data interface{}, warnings []string, start time.Time, items int) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Warnings:    warnings,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

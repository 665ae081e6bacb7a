// Package reporter serializes scan results for human and machine consumers.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/BurtHarris/dupescan/internal/engine"
)

// ExportVersion identifies the structured export schema
const ExportVersion = "1.0.0"

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatSummary OutputFormat = "summary"
	FormatText    OutputFormat = "text"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
)

// ParseFormat validates a format name from the CLI.
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case FormatSummary, FormatText, FormatJSON, FormatYAML:
		return OutputFormat(name), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// Reporter writes scan results in a chosen format
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{writer: writer, format: format}
}

// Report writes the result in the reporter's format
func (r *Reporter) Report(result *engine.ScanResult) error {
	switch r.format {
	case FormatSummary:
		return r.reportSummary(result)
	case FormatText:
		return r.reportText(result)
	case FormatJSON:
		return r.reportJSON(result)
	case FormatYAML:
		return r.reportYAML(result)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary prints counts and totals only
func (r *Reporter) reportSummary(result *engine.ScanResult) error {
	meta := result.Metadata

	fmt.Fprintf(r.writer, "=== Scan Summary ===\n")
	fmt.Fprintf(r.writer, "Scanned:          %d files (%s) in %s\n",
		meta.FilesFound,
		humanize.IBytes(uint64(meta.BytesScanned)),
		meta.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.writer, "Duplicate groups: %d (%d files, %s wasted)\n",
		len(result.DuplicateGroups),
		result.TotalDuplicateFiles(),
		humanize.IBytes(uint64(result.TotalWastedSpace())))
	fmt.Fprintf(r.writer, "Potential matches: %d groups\n", len(result.PotentialMatches))
	fmt.Fprintf(r.writer, "Unique files:     %d\n", len(result.UniqueFiles))

	if len(meta.Errors) > 0 {
		fmt.Fprintf(r.writer, "\nErrors: %d\n", len(meta.Errors))
		for _, se := range meta.Errors {
			fmt.Fprintf(r.writer, "  %s: %s\n", se.Path, se.Kind)
		}
	}

	return nil
}

// reportText prints the summary followed by every group
func (r *Reporter) reportText(result *engine.ScanResult) error {
	if err := r.reportSummary(result); err != nil {
		return err
	}

	if len(result.DuplicateGroups) > 0 {
		fmt.Fprintf(r.writer, "\n=== Duplicate Groups ===\n")
		for i, g := range result.DuplicateGroups {
			fmt.Fprintf(r.writer, "\nGroup %d: %d files, %s wasted (hash %s)\n",
				i+1, len(g.Files), humanize.IBytes(uint64(g.WastedSpace())), g.Hash)
			for _, f := range g.Files {
				fmt.Fprintf(r.writer, "  %s (%s)\n", f.Path, humanize.IBytes(uint64(f.Size)))
			}
		}
	}

	if len(result.PotentialMatches) > 0 {
		fmt.Fprintf(r.writer, "\n=== Potential Matches (similar names, different content) ===\n")
		for i, g := range result.PotentialMatches {
			fmt.Fprintf(r.writer, "\nGroup %d: %q\n", i+1, g.BaseName)
			for _, f := range g.Files {
				fmt.Fprintf(r.writer, "  %s (similarity %.2f)\n", f.Path, g.Scores[f.Path])
			}
		}
	}

	return nil
}

// exportEnvelope is the stable schema for structured exports.
type exportEnvelope struct {
	Version   string             `json:"version" yaml:"version"`
	Timestamp string             `json:"timestamp" yaml:"timestamp"`
	Result    *engine.ScanResult `json:"result" yaml:"result"`
	Errors    []exportError      `json:"errors" yaml:"errors"`
}

type exportError struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

func envelope(result *engine.ScanResult) *exportEnvelope {
	env := &exportEnvelope{
		Version:   ExportVersion,
		Timestamp: time.Now().Format(time.RFC3339),
		Result:    result,
		Errors:    []exportError{},
	}
	for _, se := range result.Metadata.Errors {
		env.Errors = append(env.Errors, exportError{Path: se.Path, Reason: se.Kind.String()})
	}
	return env
}

// reportJSON writes the structured export as JSON
func (r *Reporter) reportJSON(result *engine.ScanResult) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(envelope(result)); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// reportYAML writes the structured export as YAML
func (r *Reporter) reportYAML(result *engine.ScanResult) error {
	encoder := yaml.NewEncoder(r.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(envelope(result)); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return encoder.Close()
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ExtensionStat aggregates processed files sharing one extension.
type ExtensionStat struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"total_size"`
}

// RunStats carries the terminal statistics into the serialized report.
type RunStats struct {
	Processed       int     `json:"processed"`
	Total           int     `json:"total"`
	Skipped         int     `json:"skipped"`
	BytesWritten    int64   `json:"bytes_written"`
	Tokens          int     `json:"tokens,omitempty"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	FilesPerSecond  float64 `json:"files_per_second"`
	MaxQueueDepth   int     `json:"max_queue_depth"`
	DroppedMessages int     `json:"dropped_messages"`
}

// RunReport is the serializable aggregate of one finished run. The engine
// never builds or writes it; the service assembles it from the terminal
// result and the per-file records.
type RunReport struct {
	RunID            string                   `json:"run_id"`
	GeneratedAt      time.Time                `json:"generated_at"`
	Folder           string                   `json:"folder"`
	Mode             Mode                     `json:"mode"`
	OutputFile       string                   `json:"output_file"`
	Result           Outcome                  `json:"result"`
	Stats            RunStats                 `json:"stats"`
	TotalFiles       int                      `json:"total_files"`
	TotalSize        int64                    `json:"total_size"`
	ExtensionSummary map[string]ExtensionStat `json:"extension_summary"`
	FileDetails      map[string]FileRecord    `json:"file_details"`
	Errors           []FileError              `json:"errors,omitempty"`

	// Files keeps processing order for renderers; the JSON carries the
	// path-keyed FileDetails map instead.
	Files []FileRecord `json:"-"`
}

// buildRunReport aggregates per-file records under a terminal result.
func buildRunReport(req ExtractionRequest, result TerminalResult, records []FileRecord) RunReport {
	report := RunReport{
		RunID:       result.RunID,
		GeneratedAt: time.Now(),
		Folder:      req.FolderPath,
		Mode:        req.Mode,
		OutputFile:  req.OutputPath,
		Result:      result.Outcome,
		Stats: RunStats{
			Processed:       result.Processed,
			Total:           result.Total,
			Skipped:         result.Skipped,
			BytesWritten:    result.BytesWritten,
			Tokens:          result.Tokens,
			ElapsedSeconds:  result.ElapsedSeconds,
			FilesPerSecond:  result.FilesPerSecond,
			MaxQueueDepth:   result.MaxQueueDepth,
			DroppedMessages: result.DroppedMessages,
		},
		ExtensionSummary: make(map[string]ExtensionStat),
		FileDetails:      make(map[string]FileRecord, len(records)),
		Errors:           append([]FileError(nil), result.Errors...),
		Files:            append([]FileRecord(nil), records...),
	}

	for _, rec := range records {
		stat := report.ExtensionSummary[rec.Extension]
		stat.Count++
		stat.TotalSize += rec.Size
		report.ExtensionSummary[rec.Extension] = stat
		report.FileDetails[rec.Path] = rec

		report.TotalFiles++
		report.TotalSize += rec.Size
	}

	return report
}

// WriteJSONReport serializes the report to path, indented for reading.
func WriteJSONReport(report RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report to %s: %w", path, err)
	}
	return nil
}

// buildSummaryText renders the human-readable run summary shown on the
// console and copied to the clipboard. The catalog labels extensions with
// language names when it knows them; a nil catalog is fine.
func buildSummaryText(report RunReport, catalog *LanguageCatalog) string {
	var b strings.Builder

	b.WriteString("--- Extraction Summary ---\n")
	fmt.Fprintf(&b, "Run:    %s (%s)\n", report.RunID, report.Result)
	fmt.Fprintf(&b, "Folder: %s\n", report.Folder)
	fmt.Fprintf(&b, "Output: %s\n", report.OutputFile)
	fmt.Fprintf(&b, "Files processed: %d of %d", report.Stats.Processed, report.Stats.Total)
	if report.Stats.Skipped > 0 {
		fmt.Fprintf(&b, " (%d skipped)", report.Stats.Skipped)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Bytes written: %s\n", humanize.Bytes(uint64(report.Stats.BytesWritten)))
	if report.Stats.Tokens > 0 {
		fmt.Fprintf(&b, "Tokens: %s\n", humanize.Comma(int64(report.Stats.Tokens)))
	}
	fmt.Fprintf(&b, "Elapsed: %.2fs (%.2f files/s)\n", report.Stats.ElapsedSeconds, report.Stats.FilesPerSecond)
	if report.Stats.DroppedMessages > 0 {
		fmt.Fprintf(&b, "Dropped status messages: %d\n", report.Stats.DroppedMessages)
	}

	if len(report.ExtensionSummary) > 0 {
		b.WriteString("\nExtensions:\n")
		exts := make([]string, 0, len(report.ExtensionSummary))
		for ext := range report.ExtensionSummary {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		for _, ext := range exts {
			stat := report.ExtensionSummary[ext]
			label := ext
			if label == "" {
				label = "(none)"
			}
			if catalog != nil {
				if lang, ok := catalog.LanguageForExtension(ext); ok {
					label = fmt.Sprintf("%s (%s)", label, lang)
				}
			}
			fmt.Fprintf(&b, "  %-24s %d files, %s\n", label, stat.Count, humanize.Bytes(uint64(stat.TotalSize)))
		}
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(report.Errors))
		for _, fe := range report.Errors {
			fmt.Fprintf(&b, "  - %s\n", fe.Message)
		}
	}

	if len(report.Files) > 0 {
		b.WriteString("\nProcessed files:\n")
		b.WriteString(printTree(buildRecordTree(report.Files, report.Folder)))
	}

	return b.String()
}

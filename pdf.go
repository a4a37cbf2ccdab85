package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 5   // Line height in mm
	pdfFontSize   = 9   // Reduced font size slightly for better code fit
	pdfTabWidth   = 4   // Number of spaces for a tab
)

// PDF report formats.
const (
	PDFFormatSummary = "summary"
	PDFFormatFiles   = "files"
	PDFFormatBoth    = "both"
)

// renderPDFReport writes the run report as a PDF. The summary section mirrors
// the console summary; the files section re-reads each processed file from
// disk and renders it with syntax highlighting.
func renderPDFReport(report RunReport, format string, catalog *LanguageCatalog, outputPath string) error {
	switch format {
	case PDFFormatSummary, PDFFormatFiles, PDFFormatBoth:
	default:
		return fmt.Errorf("unknown pdf format %q (expected summary, files, or both)", format)
	}

	pdf := gofpdf.New("P", "mm", "A4", "") // Portrait, mm, A4, default font dir
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	if format == PDFFormatSummary || format == PDFFormatBoth {
		writeSummarySection(pdf, report, catalog)
	}

	if format == PDFFormatFiles || format == PDFFormatBoth {
		files := append([]FileRecord(nil), report.Files...)
		sort.Slice(files, func(i, j int) bool {
			return files[i].Path < files[j].Path
		})

		for _, rec := range files {
			pdf.AddPage()
			writeFileSection(pdf, style, rec, catalog)
		}
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("saving PDF to %s: %w", outputPath, err)
	}
	return nil
}

// writeSummarySection renders the run statistics, extension breakdown, error
// list, and file tree.
func writeSummarySection(pdf *gofpdf.Fpdf, report RunReport, catalog *LanguageCatalog) {
	width := float64(pdfPageWidth - 2*pdfMargin)

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(width, pdfLineHeight, "--- Extraction Summary ---", "", "L", false)
	pdf.Ln(pdfLineHeight / 2)

	pdf.SetFont("Helvetica", "", pdfFontSize)
	stats := fmt.Sprintf("Run: %s (%s)\nFolder: %s\nOutput: %s\nFiles processed: %d of %d (%d skipped)\nBytes written: %s\nElapsed: %.2fs (%.2f files/s)",
		report.RunID, report.Result, report.Folder, report.OutputFile,
		report.Stats.Processed, report.Stats.Total, report.Stats.Skipped,
		humanize.Bytes(uint64(report.Stats.BytesWritten)),
		report.Stats.ElapsedSeconds, report.Stats.FilesPerSecond)
	if report.Stats.Tokens > 0 {
		stats += fmt.Sprintf("\nTokens: %s", humanize.Comma(int64(report.Stats.Tokens)))
	}
	pdf.MultiCell(width, pdfLineHeight, stats, "", "L", false)

	if len(report.ExtensionSummary) > 0 {
		pdf.Ln(pdfLineHeight / 2)
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.MultiCell(width, pdfLineHeight, "Extensions", "", "L", false)
		pdf.SetFont("Helvetica", "", pdfFontSize)

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
			if lang, ok := catalog.LanguageForExtension(ext); ok {
				label = fmt.Sprintf("%s (%s)", label, lang)
			}
			line := fmt.Sprintf("%s: %d files, %s", label, stat.Count, humanize.Bytes(uint64(stat.TotalSize)))
			pdf.MultiCell(width, pdfLineHeight, line, "", "L", false)
		}
	}

	if len(report.Errors) > 0 {
		pdf.Ln(pdfLineHeight / 2)
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.MultiCell(width, pdfLineHeight, fmt.Sprintf("Errors (%d)", len(report.Errors)), "", "L", false)
		pdf.SetFont("Helvetica", "", pdfFontSize)
		for _, fe := range report.Errors {
			pdf.MultiCell(width, pdfLineHeight, fe.Message, "", "L", false)
		}
	}

	if len(report.Files) > 0 {
		pdf.Ln(pdfLineHeight)
		pdf.SetFont("Courier", "", pdfFontSize)
		treeString := printTree(buildRecordTree(report.Files, report.Folder))
		pdf.MultiCell(width, pdfLineHeight, treeString, "", "L", false)
	}
}

// writeFileSection renders one processed file: a header with its metadata,
// then the highlighted content.
func writeFileSection(pdf *gofpdf.Fpdf, style *chroma.Style, rec FileRecord, catalog *LanguageCatalog) {
	width := float64(pdfPageWidth - 2*pdfMargin)

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(width, pdfLineHeight, fmt.Sprintf("File: %s", rec.Path), "", "L", false)
	pdf.Ln(pdfLineHeight / 2)

	pdf.SetFont("Helvetica", "", pdfFontSize-1)
	meta := fmt.Sprintf("Size: %s  SHA-256: %s", humanize.Bytes(uint64(rec.Size)), rec.Hash)
	if rec.Tokens > 0 {
		meta += fmt.Sprintf("  Tokens: %d", rec.Tokens)
	}
	pdf.MultiCell(width, pdfLineHeight, meta, "", "L", false)
	pdf.Ln(pdfLineHeight / 2)

	pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
	pdf.Ln(pdfLineHeight / 2)

	// The file may have changed or vanished since the run finished; report
	// that inline rather than failing the whole PDF.
	content, readErr := os.ReadFile(rec.Path)
	if readErr != nil {
		pdf.SetFont("Courier", "", pdfFontSize)
		pdf.SetTextColor(255, 0, 0)
		pdf.MultiCell(width, pdfLineHeight, fmt.Sprintf("Error reading file: %v", readErr), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		return
	}

	if err := writeHighlightedCode(pdf, style, string(content), rec.Path, catalog); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Syntax highlighting failed for %s: %v. Writing plain text.\n", rec.Path, err)
		pdf.SetFont("Courier", "", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(width, pdfLineHeight, string(content), "", "L", false)
	}
}

// writeHighlightedCode takes code content, analyzes it, and writes it to the PDF with styles.
func writeHighlightedCode(pdf *gofpdf.Fpdf, style *chroma.Style, codeContent, filePath string, catalog *LanguageCatalog) error {
	// 1. Determine the lexer
	lexer := lexers.Match(filePath)
	if lexer == nil {
		if lang, ok := catalog.LanguageForFile(filePath); ok {
			lexer = lexers.Get(lang)
		}
	}
	if lexer == nil {
		lexer = lexers.Analyse(codeContent)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	// 2. Tokenize
	iterator, err := lexer.Tokenise(nil, codeContent)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	// 3. Iterate and Write Tokens
	pdf.SetFont("Courier", "", pdfFontSize)

	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		styleStr := ""
		if entry.Bold == chroma.Yes {
			styleStr += "B"
		}
		if entry.Italic == chroma.Yes {
			styleStr += "I"
		}
		pdf.SetFontStyle(styleStr)

		if entry.Colour.IsSet() {
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		} else {
			fg := style.Get(chroma.Text).Colour
			if fg.IsSet() {
				pdf.SetTextColor(int(fg.Red()), int(fg.Green()), int(fg.Blue()))
			} else {
				pdf.SetTextColor(0, 0, 0)
			}
		}

		tokenValue := strings.ReplaceAll(token.Value, "\t", strings.Repeat(" ", pdfTabWidth))
		pdf.Write(pdfLineHeight, tokenValue)
	}
	pdf.Ln(-1)

	return nil
}

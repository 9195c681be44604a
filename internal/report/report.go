// Package report renders the technical log companion file spec.md §4.H
// mentions: the unified diff and accumulated warnings from a run, as
// Markdown and as HTML via goldmark. This supplements the
// distilled spec, which names the technical log but does not specify its
// format.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/yuin/goldmark"
)

// TechnicalReport collects what a run wants to surface outside the
// progress stream: the diff (if any) and every warning recorded along the
// way.
type TechnicalReport struct {
	UnifiedDiff string
	Warnings    []string
}

// SiblingPath derives the report path next to a primary output file:
// "{base}.report.md".
func SiblingPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)
	return base + ".report.md"
}

// Write renders report as Markdown at path, and always also as an HTML
// sibling ({base}.report.html).
func Write(path string, report TechnicalReport) error {
	md := renderMarkdown(report)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return rerr.IO(path, err)
	}

	htmlPath := strings.TrimSuffix(path, ".md") + ".html"
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return rerr.IO(htmlPath, err)
	}
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return rerr.IO(htmlPath, err)
	}
	return nil
}

func renderMarkdown(report TechnicalReport) string {
	var b strings.Builder
	b.WriteString("# Technical Log\n\n")

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if report.UnifiedDiff != "" {
		b.WriteString("## LLM Correction Diff\n\n```diff\n")
		b.WriteString(report.UnifiedDiff)
		b.WriteString("\n```\n")
	}

	return b.String()
}

package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

// RenderCoursePDF renders the course outline and lesson bodies as a PDF.
func RenderCoursePDF(c *domain.Course) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(c.Title, true)
	pdf.SetAuthor("CoursePilot", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, tr(c.Title), "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s  |  %s  |  %.1f hours", c.Category, c.Difficulty, c.TotalEstimatedHours)), "", "L", false)
	pdf.Ln(4)
	if c.Description != "" {
		pdf.MultiCell(0, 6, tr(c.Description), "", "L", false)
		pdf.Ln(4)
	}

	if len(c.LearningOutcomes) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 8, "Learning outcomes", "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		for _, o := range c.LearningOutcomes {
			pdf.MultiCell(0, 6, tr("- "+o), "", "L", false)
		}
		pdf.Ln(4)
	}

	for i, l := range c.Lessons {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 15)
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("%d. %s", i+1, l.Title)), "", "L", false)
		pdf.SetFont("Helvetica", "I", 10)
		status := "not started"
		if c.IsCompleted(l.ID) {
			status = "completed"
		}
		pdf.MultiCell(0, 6, fmt.Sprintf("%d min  |  %s", l.EstimatedMinutes, status), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(stripMarkdown(l.Content)), "", "L", false)
		if len(l.KeyConcepts) > 0 {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(0, 6, tr("Key concepts: "+strings.Join(l.KeyConcepts, ", ")), "", "L", false)
		}
		if l.Summary != "" {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "I", 11)
			pdf.MultiCell(0, 6, tr(l.Summary), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// stripMarkdown drops heading and emphasis markers; the PDF is plain text.
func stripMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, "#")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "`", "")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

package infra

// pdf.go renders the certificate register export: an A4 landscape table with
// title, client, submitter, status, value and submission date.

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ishpreet160/CertFlow/internal/model"
)

type registerColumn struct {
	header string
	width  float64 // fraction of the content width
	align  string
}

var registerColumns = []registerColumn{
	{"Title", 0.30, "L"},
	{"Client", 0.20, "L"},
	{"Submitted by", 0.17, "L"},
	{"Status", 0.10, "C"},
	{"Value", 0.11, "R"},
	{"Submitted", 0.12, "C"},
}

// RenderCertificateRegister writes the register of certs to w. Owner must be
// preloaded for the submitter column; a missing owner prints "-".
func RenderCertificateRegister(w io.Writer, heading string, certs []model.Certificate, generatedAt time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(heading), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5,
		fmt.Sprintf("Generated %s  -  %d certificate(s)", generatedAt.Format("02 Jan 2006 15:04"), len(certs)),
		"", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Table ────────────────────────────────────────────────────────────────
	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range registerColumns {
			pdf.CellFormat(contentW*col.width, 6, col.header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	_, pageH := pdf.GetPageSize()
	for i := range certs {
		if pdf.GetY() > pageH-20 {
			pdf.AddPage()
			header()
		}
		cells := registerCells(&certs[i])
		for j, col := range registerColumns {
			width := contentW * col.width
			pdf.CellFormat(width, 6, tr(truncate(pdf, cells[j], width-2)), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(certs) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 6, "No certificates.", "1", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}

func registerCells(c *model.Certificate) []string {
	owner := "-"
	if c.Owner != nil {
		owner = c.Owner.Name
	}
	value := "-"
	if c.Value.Valid {
		value = c.Value.Decimal.StringFixed(2)
	}
	return []string{c.Title, c.Client, owner, string(c.Status), value, c.CreatedAt.Format("2006-01-02")}
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

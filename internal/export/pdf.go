package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/timetabler/internal/model"
	"github.com/piwi3910/timetabler/internal/schedule"
	qrcode "github.com/skip2/go-qrcode"
)

// PageTag holds the data encoded into each page's QR code.
type PageTag struct {
	Group string `json:"group"`
	Term  int    `json:"term"`
	RunID string `json:"run_id,omitempty"`
}

// categoryColors shades table rows by session type.
var categoryColors = map[model.Category][3]int{
	model.CategoryLecture:  {227, 242, 253},
	model.CategoryPractice: {232, 245, 233},
	model.CategoryLab:      {255, 243, 224},
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	rowHeight    = 7.0
	qrSize       = 28.0
	tableTop     = marginTop + headerHeight + 10.0
)

// column widths: Day, Time, Code, Course, Type, Room
var pdfColumns = []struct {
	title string
	width float64
}{
	{"Day", 22},
	{"Time", 32},
	{"Code", 28},
	{"Course", 110},
	{"Type", 30},
	{"Room", 45},
}

// WritePDF renders one page per group with the group's sessions as a table
// and a QR code identifying the group, term and run.
func WritePDF(path string, s *schedule.Schedule, runID string) error {
	pdf, err := buildPDF(s, runID)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

func buildPDF(s *schedule.Schedule, runID string) (*fpdf.Fpdf, error) {
	byGroup := s.ByGroup()
	groups := s.Groups()
	if len(groups) == 0 {
		return nil, fmt.Errorf("no entries to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, g := range groups {
		tag := PageTag{Group: g, Term: s.Term, RunID: runID}
		if err := renderGroupPages(pdf, tr, tag, byGroup[g]); err != nil {
			return nil, fmt.Errorf("failed to render timetable for %q: %w", g, err)
		}
	}
	return pdf, pdf.Error()
}

// renderGroupPages draws a group's table, continuing on further pages when
// the rows do not fit on one.
func renderGroupPages(pdf *fpdf.Fpdf, tr func(string) string, tag PageTag, entries []model.Entry) error {
	qrName, err := registerQR(pdf, tag)
	if err != nil {
		return err
	}

	// one row of each page is the table header
	usable := pageHeight - tableTop - marginBottom - rowHeight
	perPage := int(usable / rowHeight)
	for start := 0; start == 0 || start < len(entries); start += perPage {
		pdf.AddPage()
		renderHeader(pdf, tr, tag, len(entries))
		pdf.ImageOptions(qrName, pageWidth-marginRight-qrSize, marginTop-5, qrSize, qrSize,
			false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

		end := start + perPage
		if end > len(entries) {
			end = len(entries)
		}
		renderTable(pdf, tr, entries[start:end])
	}
	return nil
}

func registerQR(pdf *fpdf.Fpdf, tag PageTag) (string, error) {
	qrData, err := json.Marshal(tag)
	if err != nil {
		return "", fmt.Errorf("failed to marshal page tag: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	name := fmt.Sprintf("qr_%s_%d", tag.Group, tag.Term)
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	return name, nil
}

func renderHeader(pdf *fpdf.Fpdf, tr func(string) string, tag PageTag, sessions int) {
	textW := pageWidth - marginLeft - marginRight - qrSize - 5

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(textW, headerHeight, tr(fmt.Sprintf("Group %s", tag.Group)), "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	sub := fmt.Sprintf("Term %d | %d sessions per week", tag.Term, sessions)
	if tag.RunID != "" {
		sub += " | run " + tag.RunID
	}
	pdf.CellFormat(textW, 5, sub, "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func renderTable(pdf *fpdf.Fpdf, tr func(string) string, entries []model.Entry) {
	pdf.SetXY(marginLeft, tableTop)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(60, 60, 60)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.2)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, e := range entries {
		col, ok := categoryColors[e.Category]
		if !ok {
			col = [3]int{255, 255, 255}
		}
		pdf.SetFillColor(col[0], col[1], col[2])
		pdf.SetX(marginLeft)

		values := []string{e.Day.String(), e.Time, e.CourseCode, e.Course, e.Category.Label(), e.Room}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, rowHeight, fitText(pdf, tr(values[i]), c.width-2), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fitText truncates s with an ellipsis so it fits in width.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

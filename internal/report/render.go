package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/phpdave11/gofpdf"
)

var statusOrder = []Status{StatusAdvanced, StatusOnTrack, StatusNeedsHelp, StatusStruggling, StatusNotStarted}

func title(r ClassReport) string {
	if r.Class == "" {
		return "MathBlast class report"
	}
	return "MathBlast class report: " + r.Class
}

func cells(row Row) (level, acc, progress string) {
	if row.Status == StatusNotStarted {
		return "-", "-", "-"
	}
	return fmt.Sprint(row.Level), fmt.Sprintf("%.0f%%", row.Accuracy), fmt.Sprintf("%d%%", row.Progress)
}

// WriteText renders r as an aligned table.
func WriteText(w io.Writer, r ClassReport) error {
	fmt.Fprintln(w, title(r))
	fmt.Fprintf(w, "Generated %s\n\n", r.Generated.Format("2006-01-02 15:04"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tLEVEL\tACCURACY\tPROGRESS\tGAMES\tSTATUS")
	for _, row := range r.Rows {
		level, acc, progress := cells(row)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", row.Name, level, acc, progress, row.Games, row.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAverage level %.1f, average accuracy %.0f%%\n", r.AvgLevel, r.AvgAccuracy)
	counts := r.Counts()
	for _, s := range statusOrder {
		if n := counts[s]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", s, n)
		}
	}
	return nil
}

// WritePDF renders r as an A4 PDF.
func WritePDF(w io.Writer, r ClassReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title(r), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(title(r)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, "Generated "+r.Generated.Format("2006-01-02 15:04"))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Students: %d   Average level: %.1f   Average accuracy: %.0f%%",
		len(r.Rows), r.AvgLevel, r.AvgAccuracy))
	pdf.Ln(11)

	widths := []float64{60, 20, 28, 28, 18, 36}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 240)
	for i, h := range []string{"Student", "Level", "Accuracy", "Progress", "Games", "Status"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range r.Rows {
		level, acc, progress := cells(row)
		vals := []string{tr(row.Name), level, acc, progress, fmt.Sprint(row.Games), string(row.Status)}
		for i, v := range vals {
			pdf.CellFormat(widths[i], 7, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	counts := r.Counts()
	for _, s := range statusOrder {
		if n := counts[s]; n > 0 {
			pdf.Cell(0, 6, fmt.Sprintf("%s: %d", s, n))
			pdf.Ln(6)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

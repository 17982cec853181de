package reports

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/go-pdf/fpdf"
)

// Report is everything one monthly report shows.
type Report struct {
	UserID     uint
	FullName   string
	Email      string
	Year       int
	Month      time.Month
	Attempts   []ReportAttempt
	Total      int
	Average    float64
	Ranking    *int
	TotalUsers int
}

func (r Report) Period() string {
	return fmt.Sprintf("%d-%02d", r.Year, int(r.Month))
}

func (r Report) RankingText() string {
	if r.Ranking == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d of %d", *r.Ranking, r.TotalUsers)
}

var emailTemplate = template.Must(template.New("monthly_report").Funcs(template.FuncMap{
	"score": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"when":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}).Parse(`<html>
<body>
<h2>Monthly Activity Report</h2>
<p>Hi {{.FullName}},</p>
<p>Here is your quiz activity for {{.Period}}.</p>
<ul>
<li>Quizzes taken: {{.Total}}</li>
<li>Average score: {{score .Average}}</li>
<li>Ranking: {{.RankingText}}</li>
</ul>
{{if .Attempts}}
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Quiz</th><th>Score</th><th>Submitted</th></tr>
{{range .Attempts}}<tr><td>{{.QuizTitle}}</td><td>{{.Score}}</td><td>{{when .SubmittedAt}}</td></tr>
{{end}}</table>
{{else}}
<p>You did not attempt any quizzes this month.</p>
{{end}}
<p>The full report is attached as a PDF.</p>
</body>
</html>
`))

// RenderHTML renders the email body.
func RenderHTML(r Report) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render report email: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF renders the report as a single A4 document.
func RenderPDF(r Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Monthly Activity Report "+r.Period()), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Monthly Activity Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (%s)", r.FullName, r.Email)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Period: "+r.Period(), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.CellFormat(0, 7, fmt.Sprintf("Quizzes taken: %d", r.Total), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Average score: %.2f", r.Average), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Ranking: "+r.RankingText(), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	if len(r.Attempts) == 0 {
		pdf.CellFormat(0, 7, "No quizzes attempted this month.", "", 1, "L", false, 0, "")
	} else {
		widths := []float64{100, 25, 55}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range []string{"Quiz", "Score", "Submitted (UTC)"} {
			pdf.CellFormat(widths[i], 8, header, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 11)
		for _, a := range r.Attempts {
			pdf.CellFormat(widths[0], 7, tr(a.QuizTitle), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", a.Score), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[2], 7, a.SubmittedAt.UTC().Format("2006-01-02 15:04"), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Package report renders a generation result for analyst review, as a
// markdown summary or an XLSX workbook.
package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sengol-ai/question-engine/internal/model"
)

// Markdown renders the run summary with one table per question pool.
func Markdown(result *model.GenerationResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Question Generation Run %s\n\n", result.RunID))
	sb.WriteString(fmt.Sprintf("Intensity: **%s**\n\n", result.Intensity))
	sb.WriteString(fmt.Sprintf("Risk questions: %d · Compliance questions: %d\n",
		len(result.RiskQuestions), len(result.ComplianceQuestions)))

	writePool(&sb, "Risk Questions", result.RiskQuestions)
	writePool(&sb, "Compliance Questions", result.ComplianceQuestions)

	return sb.String()
}

func writePool(sb *strings.Builder, title string, questions []model.ScoredQuestion) {
	sb.WriteString(fmt.Sprintf("\n## %s\n\n", title))
	if len(questions) == 0 {
		sb.WriteString("_No questions survived filtering._\n")
		return
	}

	sb.WriteString("| # | ID | Priority | Final | Evidence | Incidents | Label |\n")
	sb.WriteString("|---|----|----------|-------|----------|-----------|-------|\n")
	for i, q := range questions {
		label := q.Label
		if q.Degraded {
			label += " ⚠ degraded"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.3f | %.3f | %d | %s |\n",
			i+1, q.ID, q.Priority, q.FinalWeight, q.EvidenceWeight, q.IncidentCount, label))
	}
}

var xlsxHeader = []string{
	"Rank", "ID", "Type", "Priority", "Label", "Description",
	"Base Weight", "Evidence Weight", "Industry Weight", "Final Weight",
	"Incident Count", "Degraded",
}

// WriteXLSX saves the result as a workbook with one sheet per pool.
func WriteXLSX(result *model.GenerationResult, path string) error {
	f := xlsx.NewFile()

	for _, pool := range []struct {
		name      string
		questions []model.ScoredQuestion
	}{
		{"Risk", result.RiskQuestions},
		{"Compliance", result.ComplianceQuestions},
	} {
		sheet, err := f.AddSheet(pool.name)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", pool.name)
		}

		header := sheet.AddRow()
		for _, h := range xlsxHeader {
			header.AddCell().SetString(h)
		}

		for i, q := range pool.questions {
			row := sheet.AddRow()
			row.AddCell().SetInt(i + 1)
			row.AddCell().SetString(q.ID)
			row.AddCell().SetString(string(q.QuestionType))
			row.AddCell().SetString(string(q.Priority))
			row.AddCell().SetString(q.Label)
			row.AddCell().SetString(q.Description)
			row.AddCell().SetFloat(q.BaseWeight)
			row.AddCell().SetFloat(q.EvidenceWeight)
			row.AddCell().SetFloat(q.IndustryWeight)
			row.AddCell().SetFloat(q.FinalWeight)
			row.AddCell().SetInt(q.IncidentCount)
			row.AddCell().SetBool(q.Degraded)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

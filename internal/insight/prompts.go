package insight

import (
	"fmt"
	"strings"

	"github.com/and161185/rollbook/internal/model"
)

const analysisTemplate = `You are a helpful teaching assistant. Analyze the following attendance data.
Identify patterns, such as students with frequent absences or perfect attendance.
Provide a concise summary report for the teacher.

Data:
%s`

const refineTemplate = `You are a professional editor. Rewrite the following message to be more professional, polite, and concise, while preserving the original intent. Return only the refined message.

Original Message: "%s"`

// SummaryLine renders one record as "<date>: <studentName> was <status>".
func SummaryLine(r model.AttendanceRecord) string {
	return fmt.Sprintf("%s: %s was %s", r.Date, r.StudentName, r.Status)
}

// BuildAnalysisPrompt embeds one summary line per record, in the given order.
func BuildAnalysisPrompt(records []model.AttendanceRecord) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = SummaryLine(r)
	}
	return fmt.Sprintf(analysisTemplate, strings.Join(lines, "\n"))
}

// BuildRefinePrompt wraps text in the editor template. The text is embedded verbatim.
func BuildRefinePrompt(text string) string {
	return fmt.Sprintf(refineTemplate, text)
}

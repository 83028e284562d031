package corpus

import (
	"strings"

	"safetyrag/internal/domain"
)

// Case and query texts share one layout: work type first, then the
// equipment-level signal, then the narrative. Keep both builders in step,
// the embedding distances compare line against line.

// CaseText renders a case as the text that gets embedded into the index.
func CaseText(c domain.AccidentCase) string {
	var sb strings.Builder
	writeLine(&sb, ColWorkType, c.WorkType)
	writeLine(&sb, ColCausalAgent, c.CausalAgent)
	writeLine(&sb, ColEquipment, c.Equipment)
	writeLine(&sb, ColIncidentType, c.IncidentType)
	writeLine(&sb, ColTitle, c.Title)
	writeLine(&sb, ColSituation, c.Situation)
	writeLine(&sb, ColCause, c.Cause)
	writeLine(&sb, ColTakeaway, c.Takeaway)
	return strings.TrimSuffix(sb.String(), "\n")
}

// CaseTexts renders every case in order.
func CaseTexts(cases []domain.AccidentCase) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = CaseText(c)
	}
	return out
}

const (
	labelWorkName        = "작업명"
	labelWorkDescription = "작업내용"
)

// QueryText renders a permit draft as the text that gets embedded for search.
func QueryText(q domain.SimilarityQuery) string {
	var sb strings.Builder
	writeLine(&sb, ColWorkType, strings.Join(q.WorkTypes, ", "))
	writeLine(&sb, labelWorkName, q.WorkName)
	writeLine(&sb, ColEquipment, q.EquipmentName)
	writeLine(&sb, labelWorkDescription, q.WorkDescription)
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeLine(sb *strings.Builder, label, value string) {
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\n")
}

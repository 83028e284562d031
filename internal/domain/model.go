package domain

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Severity values seen in the source data. The field itself is opaque text.
const (
	SeveritySevere       = "중대재해"
	SeverityOccupational = "업무상 재해"
)

// AccidentCase is one historical incident record. JSON keys follow the
// column labels of the source workbook.
type AccidentCase struct {
	ID           int    `json:"id"`
	WorkType     string `json:"작업유형"`
	CausalAgent  string `json:"기인물"`
	Equipment    string `json:"설비명"`
	IncidentDate string `json:"재해발생일"`
	IncidentTime string `json:"시간"`
	IncidentType string `json:"재해유형"`
	Title        string `json:"사고명"`
	VictimAge    string `json:"나이"`
	Tenure       string `json:"근속"`
	Severity     string `json:"재해정도"`
	Situation    string `json:"발생상황"`
	Cause        string `json:"발생원인"`
	Takeaway     string `json:"시사점"`
}

// SimilarityQuery describes the work permit draft being compared.
type SimilarityQuery struct {
	WorkTypes       []string
	WorkName        string
	WorkDescription string
	EquipmentName   string
}

// Validate checks that at least one non-blank work type is present.
func (q SimilarityQuery) Validate() error {
	for _, wt := range q.WorkTypes {
		if strings.TrimSpace(wt) != "" {
			return nil
		}
	}
	return goerr.Wrap(ErrInvalidQuery, "work types must not be empty", goerr.V("work_types", q.WorkTypes))
}

// Neighbor is a single hit returned by a VectorIndex. Distance is the
// squared Euclidean distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// ScoredCase pairs a case with its distance to the query.
type ScoredCase struct {
	Case     AccidentCase
	Distance float64
}

// RankedResult is ordered nearest first.
type RankedResult []ScoredCase

// Cases strips distances, keeping order.
func (r RankedResult) Cases() []AccidentCase {
	out := make([]AccidentCase, len(r))
	for i, sc := range r {
		out[i] = sc.Case
	}
	return out
}

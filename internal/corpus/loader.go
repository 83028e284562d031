// Package corpus loads the accident case reference set from a workbook or
// CSV export and renders cases and queries as embedding text.
package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xuri/excelize/v2"

	"safetyrag/internal/domain"
)

// Column labels as they appear in the header row of the source.
const (
	ColWorkType     = "작업유형"
	ColCausalAgent  = "기인물"
	ColEquipment    = "설비명"
	ColIncidentDate = "재해발생일"
	ColIncidentTime = "시간"
	ColIncidentType = "재해유형"
	ColTitle        = "사고명"
	ColVictimAge    = "나이"
	ColTenure       = "근속"
	ColSeverity     = "재해정도"
	ColSituation    = "발생상황"
	ColCause        = "발생원인"
	ColTakeaway     = "시사점"
)

// Columns lists every recognised header label in source order.
var Columns = []string{
	ColWorkType, ColCausalAgent, ColEquipment, ColIncidentDate, ColIncidentTime,
	ColIncidentType, ColTitle, ColVictimAge, ColTenure, ColSeverity,
	ColSituation, ColCause, ColTakeaway,
}

// Loader reads accident cases from .xlsx workbooks (first sheet unless
// configured) or .csv files.
type Loader struct {
	sheet string
}

// Option configures a Loader.
type Option func(*Loader)

// WithSheet selects a worksheet by name instead of the first one.
func WithSheet(name string) Option {
	return func(l *Loader) {
		l.sheet = name
	}
}

// NewLoader creates a corpus loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses the source at path. Identifiers are assigned 1..N in row
// order; the call either returns every row or fails as a whole.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.AccidentCase, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rows, err = readCSV(path)
	} else {
		rows, err = l.readWorkbook(path)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "corpus load cancelled", goerr.V("path", path))
	}
	return buildCases(rows), nil
}

func (l *Loader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrLoad, "failed to open workbook",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	defer f.Close()

	sheet := l.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, goerr.Wrap(domain.ErrLoad, "workbook has no sheets", goerr.V("path", path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, goerr.Wrap(domain.ErrLoad, "failed to read sheet",
			goerr.V("path", path), goerr.V("sheet", sheet), goerr.V("cause", err.Error()))
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrLoad, "failed to open csv",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	defer fp.Close()

	r := csv.NewReader(fp)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(domain.ErrLoad, "failed to parse csv",
				goerr.V("path", path), goerr.V("cause", err.Error()))
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// buildCases maps the header row onto columns and normalises every data
// row. Blank rows above the header and rows with no content at all are
// skipped.
func buildCases(rows [][]string) []domain.AccidentCase {
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return []domain.AccidentCase{}
	}
	header := make(map[string]int, len(rows[0]))
	for i, label := range rows[0] {
		label = strings.TrimSpace(label)
		if _, dup := header[label]; !dup {
			header[label] = i
		}
	}

	cases := make([]domain.AccidentCase, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cell := func(label string) string {
			i, ok := header[label]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		cases = append(cases, domain.AccidentCase{
			ID:           len(cases) + 1,
			WorkType:     cell(ColWorkType),
			CausalAgent:  cell(ColCausalAgent),
			Equipment:    cell(ColEquipment),
			IncidentDate: SerialDateToString(cell(ColIncidentDate)),
			IncidentTime: SerialTimeToString(cell(ColIncidentTime)),
			IncidentType: cell(ColIncidentType),
			Title:        cell(ColTitle),
			VictimAge:    cell(ColVictimAge),
			Tenure:       cell(ColTenure),
			Severity:     cell(ColSeverity),
			Situation:    cell(ColSituation),
			Cause:        cell(ColCause),
			Takeaway:     cell(ColTakeaway),
		})
	}
	return cases
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

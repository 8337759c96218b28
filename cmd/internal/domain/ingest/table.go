package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"companyinfo/cmd/internal/domain/entity"

	"github.com/go-playground/validator/v10"
)

const columnCount = 4

var expectedHeader = [columnCount]string{"CIN", "NAME", "STATE", "EMAIL"}

// Row is one data row of an uploaded sheet. Line is the 1-based line
// (or spreadsheet row) number in the original file.
type Row struct {
	Line  int
	Cells []string
}

// RawTable is an uploaded sheet before any normalization. Header is the
// first row of the file, it is always consumed as the column header.
type RawTable struct {
	Header []string
	Rows   []Row
}

// Width is the number of columns of the widest row, header included.
func (t *RawTable) Width() int {
	width := len(t.Header)
	for _, row := range t.Rows {
		width = max(width, len(row.Cells))
	}
	return width
}

type rowInput struct {
	CIN string `validate:"required"`
}

// columnLimits are the column sizes of the companies table.
var columnLimits = [columnCount]struct {
	field string
	max   int
}{
	{"CIN", entity.MaxCINLength},
	{"Name", entity.MaxNameLength},
	{"State", entity.MaxStateLength},
	{"Email", entity.MaxEmailLength},
}

// Prepare runs every step of an upload that does not touch storage: header
// detection, column assignment, normalization, validation and deduplication.
//
// When a CIN appears more than once, the last row in file order wins, the
// earlier ones are reported as superseded.
func (p *Pipeline) Prepare(table *RawTable) (*Result, error) {
	if table == nil || (len(table.Header) == 0 && len(table.Rows) == 0) {
		return nil, &SchemaError{Reason: "file is empty"}
	}

	if width := table.Width(); width < columnCount {
		return nil, &SchemaError{
			Reason: fmt.Sprintf("expected at least %d columns (CIN, Name, State, Email), found %d", columnCount, width),
		}
	}

	if isPermutedHeader(table.Header) {
		return nil, ambiguousHeaderError(1, table.Header)
	}

	res := &Result{lines: make(map[string]int)}
	res.Summary.TotalRows = len(table.Rows)

	rows := table.Rows
	if len(rows) > 0 {
		first := rows[0]
		switch {
		case isExpectedHeader(first.Cells):
			rows = rows[1:]
			res.Summary.HeaderStripped = true
		case isPermutedHeader(first.Cells):
			return nil, ambiguousHeaderError(first.Line, first.Cells)
		}
	}

	index := make(map[string]int, len(rows))
	for _, row := range rows {
		if isBlank(row.Cells) {
			res.Summary.BlankRows++
			continue
		}

		company := p.normalize(row.Cells)
		if rowErr := p.validateRow(row.Line, company); rowErr != nil {
			res.Rejected = append(res.Rejected, rowErr)
			continue
		}

		if i, ok := index[company.CIN]; ok {
			res.Superseded = append(res.Superseded, res.lines[company.CIN])
			res.Accepted[i] = company
			res.lines[company.CIN] = row.Line
			continue
		}

		index[company.CIN] = len(res.Accepted)
		res.Accepted = append(res.Accepted, company)
		res.lines[company.CIN] = row.Line
	}

	res.Summary.Accepted = len(res.Accepted)
	res.Summary.Rejected = len(res.Rejected)
	res.Summary.Superseded = len(res.Superseded)
	return res, nil
}

// normalize assigns the first four cells positionally and applies the
// trim and case rules. Missing cells become empty strings.
func (p *Pipeline) normalize(cells []string) *entity.Company {
	return &entity.Company{
		CIN:   p.NormalizeKey(cell(cells, 0)),
		Name:  strings.ToLower(cell(cells, 1)),
		State: cell(cells, 2),
		Email: cell(cells, 3),
	}
}

// NormalizeKey applies the trim and CIN case rules of uploads to a lookup key.
func (p *Pipeline) NormalizeKey(cin string) string {
	return p.keyCase.apply(strings.TrimSpace(cin))
}

func (p *Pipeline) validateRow(line int, c *entity.Company) *RowValidationError {
	if err := p.validate.Struct(&rowInput{CIN: c.CIN}); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 && ve[0].Tag() == "required" {
			return &RowValidationError{Line: line, CIN: c.CIN, Reason: ReasonEmptyCIN, Detail: "CIN is empty"}
		}
		return &RowValidationError{Line: line, CIN: c.CIN, Reason: ReasonInvalidField, Detail: err.Error()}
	}

	values := [columnCount]string{c.CIN, c.Name, c.State, c.Email}
	for i, limit := range columnLimits {
		if utf8.RuneCountInString(values[i]) > limit.max {
			return &RowValidationError{
				Line:   line,
				CIN:    c.CIN,
				Reason: ReasonFieldTooLong,
				Detail: fmt.Sprintf("%s is longer than %d characters", limit.field, limit.max),
			}
		}
	}
	return nil
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func headerCells(cells []string) ([columnCount]string, bool) {
	var out [columnCount]string
	if len(cells) < columnCount {
		return out, false
	}
	for i := range out {
		out[i] = strings.ToUpper(strings.TrimSpace(cells[i]))
	}
	return out, true
}

func isExpectedHeader(cells []string) bool {
	got, ok := headerCells(cells)
	return ok && got == expectedHeader
}

// isPermutedHeader reports whether the cells name the expected columns
// in a different order.
func isPermutedHeader(cells []string) bool {
	got, ok := headerCells(cells)
	if !ok || got == expectedHeader {
		return false
	}

	seen := make(map[string]bool, columnCount)
	for _, name := range got {
		seen[name] = true
	}
	for _, name := range expectedHeader {
		if !seen[name] {
			return false
		}
	}
	return true
}

func ambiguousHeaderError(line int, cells []string) *SchemaError {
	return &SchemaError{
		Reason: fmt.Sprintf("header on line %d lists %s in a different order than CIN, Name, State, Email; columns are assigned by position",
			line, strings.Join(cells[:columnCount], ", ")),
	}
}

package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"companyinfo/cmd/internal/domain/ingest"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported reports whether fileName has an extension Read can parse.
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// Read parses the first sheet of a workbook, or a CSV file, into a table.
// The first row always becomes the header.
func Read(r io.Reader, fileName string) (*ingest.RawTable, error) {
	var (
		rows  [][]string
		lines []int
		err   error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		rows, lines, err = readWorkbook(r)
	case ".csv":
		rows, lines, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileName)
	}

	if err != nil {
		return nil, &ingest.SchemaError{Reason: fmt.Sprintf("could not read %s: %v", fileName, err)}
	}

	if len(rows) == 0 {
		return nil, &ingest.SchemaError{Reason: "file is empty"}
	}

	table := &ingest.RawTable{
		Header: rows[0],
		Rows:   make([]ingest.Row, 0, len(rows)-1),
	}
	for i, cells := range rows[1:] {
		table.Rows = append(table.Rows, ingest.Row{Line: lines[i+1], Cells: cells})
	}
	return table, nil
}

func readWorkbook(r io.Reader) ([][]string, []int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}

	// GetRows keeps blank rows in the middle, so the index is the row number.
	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return rows, lines, nil
}

func readCSV(r io.Reader) ([][]string, []int, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		rows  [][]string
		lines []int
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		line, _ := cr.FieldPos(0)
		rows = append(rows, record)
		lines = append(lines, line)
	}
	return rows, lines, nil
}

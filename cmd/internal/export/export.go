package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"companyinfo/cmd/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
	FormatXLSX Format = "xlsx"
)

const sheetName = "companies"

var ErrUnknownFormat = errors.New("unknown export format")

var header = []string{"CIN", "Name", "State", "Email"}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatSQL, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatSQL:
		return "application/sql"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

func FileName(f Format) string {
	return "companies." + string(f)
}

// Write renders every record in the given format.
func Write(w io.Writer, f Format, records []*entity.Company) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	case FormatSQL:
		return writeSQL(w, records)
	case FormatXLSX:
		return writeXLSX(w, records)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func writeCSV(w io.Writer, records []*entity.Company) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range records {
		if err := cw.Write([]string{c.CIN, c.Name, c.State, c.Email}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type jsonCompany struct {
	CIN   string `json:"cin"`
	Name  string `json:"name"`
	State string `json:"state"`
	Email string `json:"email"`
}

func writeJSON(w io.Writer, records []*entity.Company) error {
	out := make([]jsonCompany, 0, len(records))
	for _, c := range records {
		out = append(out, jsonCompany{CIN: c.CIN, Name: c.Name, State: c.State, Email: c.Email})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

const createTable = "CREATE TABLE IF NOT EXISTS companies (" +
	"cin VARCHAR(50) PRIMARY KEY, name VARCHAR(255), state VARCHAR(100), email VARCHAR(255));\n"

func writeSQL(w io.Writer, records []*entity.Company) error {
	if _, err := io.WriteString(w, createTable); err != nil {
		return err
	}

	for _, c := range records {
		_, err := fmt.Fprintf(w, "INSERT INTO companies (cin, name, state, email) VALUES (%s, %s, %s, %s);\n",
			Quote(c.CIN), Quote(c.Name), Quote(c.State), Quote(c.Email))
		if err != nil {
			return err
		}
	}
	return nil
}

// Quote returns s as a single-quoted SQL literal, embedded quotes doubled.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func writeXLSX(w io.Writer, records []*entity.Company) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, c := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		row := []string{c.CIN, c.Name, c.State, c.Email}
		if err = f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

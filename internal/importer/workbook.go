// Package importer reads HR spreadsheets into normalised employee rows.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/xuri/excelize/v2"
)

// maxXLSRows bounds legacy workbooks.
const maxXLSRows = 100000

var (
	ErrNoWorksheet    = errors.New("no worksheet found")
	ErrEmptyWorksheet = errors.New("worksheet is empty")
)

// Options tunes ParseWorkbook.
type Options struct {
	// DefaultEmailDomain fills in <employeeCode>@domain for rows without email.
	DefaultEmailDomain string
	// Aliases maps camelCased headers to importer keys.
	Aliases map[string]string
}

// ParseWorkbook reads the first worksheet of an .xls or .xlsx file. The first
// row holds the headers.
func ParseWorkbook(reader io.Reader, fileName string, opts Options) ([]Row, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var cells [][]string
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xls":
		cells, err = readXLS(data)
	default:
		cells, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, ErrEmptyWorksheet
	}
	return rowsFromCells(cells, opts), nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoWorksheet
	}

	var cells [][]string
	for i := 0; i <= int(sheet.MaxRow) && i < maxXLSRows; i++ {
		row := sheet.Row(i)
		if row == nil {
			cells = append(cells, nil)
			continue
		}
		values := make([]string, row.LastCol()+1)
		for j := row.FirstCol(); j <= row.LastCol(); j++ {
			values[j] = row.Col(j)
		}
		cells = append(cells, values)
	}
	return cells, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoWorksheet
	}
	// Raw values keep date cells as serials instead of locale-formatted text.
	rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", sheetName, err)
	}
	return rows, nil
}

func rowsFromCells(cells [][]string, opts Options) []Row {
	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		if strings.TrimSpace(h) != "" {
			headers[i] = canonicalKey(normalise(h), opts.Aliases)
		}
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, values := range cells[1:] {
		row := Row{}
		for i, v := range values {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if v = normalise(v); v != "" {
				row[headers[i]] = v
			}
		}
		if len(row) == 0 {
			continue
		}
		ApplyDefaultEmail(row, opts.DefaultEmailDomain)
		rows = append(rows, row)
	}
	return rows
}

// ApplyDefaultEmail sets <employeeCode>@domain when the row has no email.
func ApplyDefaultEmail(row Row, domain string) {
	if domain == "" || row.Get(KeyEmail) != "" {
		return
	}
	if code := row.Get(KeyEmployeeCode); code != "" {
		row[KeyEmail] = code + "@" + domain
	}
}

// Analyze counts rows and the distinct entities, departments and positions.
func Analyze(rows []Row) models.ImportAnalysis {
	entities := map[string]struct{}{}
	departments := map[string]struct{}{}
	positions := map[string]struct{}{}
	analysis := models.ImportAnalysis{Rows: len(rows)}

	collect := func(set map[string]struct{}, out *[]string, v string) {
		if v == "" {
			return
		}
		if _, seen := set[v]; seen {
			return
		}
		set[v] = struct{}{}
		*out = append(*out, v)
	}
	for _, row := range rows {
		collect(entities, &analysis.Entities, row.Get(KeyEntity))
		collect(departments, &analysis.Departments, row.Get(KeyDepartment))
		collect(positions, &analysis.Positions, row.Get(KeyPosition))
	}
	return analysis
}

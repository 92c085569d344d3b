// Package sheet reads address lists out of uploaded spreadsheets.
package sheet

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrmap/internal/model"
)

// HeaderRowOffset converts a 0-based data index into the 1-based sheet row
// the user sees: one for the header and one for 1-based counting.
const HeaderRowOffset = 2

var (
	ErrUnsupportedFormat = eris.New("sheet: unsupported file format")
	ErrNoHeader          = eris.New("sheet: no header row")
)

// addressHeaders are matched case-insensitively against the header row.
var addressHeaders = []string{"address", "주소", "addr", "도로명주소", "지번주소"}

// ReadFile reads rows from the spreadsheet at path.
func ReadFile(path string) ([]model.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: read %s", path)
	}
	return ReadUpload(filepath.Base(path), data)
}

// ReadUpload parses data according to the extension of filename. Supported
// formats are .xlsx (first sheet) and .csv.
func ReadUpload(filename string, data []byte) ([]model.Row, error) {
	var (
		table [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		table, err = readXLSX(data)
	case ".csv":
		table, err = readCSV(data)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%q", filename)
	}
	if err != nil {
		return nil, err
	}
	return toRows(table)
}

// AddressColumn returns the index of the address column in header, falling
// back to the first column.
func AddressColumn(header []string) int {
	for _, want := range addressHeaders {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return i
			}
		}
	}
	return 0
}

func toRows(table [][]string) ([]model.Row, error) {
	if len(table) == 0 {
		return nil, ErrNoHeader
	}
	col := AddressColumn(table[0])

	rows := make([]model.Row, 0, len(table)-1)
	for i, record := range table[1:] {
		if blank(record) {
			continue
		}
		var addr string
		if col < len(record) {
			addr = strings.TrimSpace(record[col])
		}
		rows = append(rows, model.Row{Address: addr, Number: i + HeaderRowOffset})
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

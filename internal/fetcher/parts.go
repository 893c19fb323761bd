package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
)

// partColumns maps accepted header spellings to PartRequest fields.
var partColumns = map[string]string{
	"part_number": "part_number",
	"part number": "part_number",
	"partnumber":  "part_number",
	"mpn":         "part_number",
	"brand":       "brand",
	"make":        "make",
	"make_code":   "make",
}

// ReadPartList loads part requests from a .csv or .xlsx file. The first row
// must be a header with at least a part_number column. Rows with an empty
// part number are skipped.
func ReadPartList(ctx context.Context, path string) ([]model.PartRequest, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrap(openErr, "parts: open csv")
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(ctx, f, CSVOptions{TrimSpace: true, Comment: '#'})
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("parts: unsupported input %q (want .csv or .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrap(err, "parts: read input")
	}

	return PartsFromRows(rows)
}

// PartsFromRows converts a header row plus data rows into part requests.
func PartsFromRows(rows [][]string) ([]model.PartRequest, error) {
	if len(rows) == 0 {
		return nil, eris.New("parts: input is empty")
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		if col, ok := partColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := idx[col]; !dup {
				idx[col] = i
			}
		}
	}
	if _, ok := idx["part_number"]; !ok {
		return nil, eris.Errorf("parts: header %v has no part_number column", rows[0])
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parts []model.PartRequest
	for n, row := range rows[1:] {
		pn := cell(row, "part_number")
		if pn == "" {
			zap.L().Debug("parts: skipping row without part number", zap.Int("row", n+2))
			continue
		}
		parts = append(parts, model.PartRequest{
			PartNumber: pn,
			Brand:      cell(row, "brand"),
			Make:       strings.ToUpper(cell(row, "make")),
		})
	}
	return parts, nil
}

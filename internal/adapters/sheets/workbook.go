package sheets

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Workbook reads ranges from an exported workbook on disk (.xlsx or .xls).
// The sheet part of the range name selects the worksheet; when no sheet has
// that name the first one is read.
type Workbook struct {
	path string
}

// NewWorkbook returns a Workbook reading path.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Values reads every row of the selected worksheet.
func (w *Workbook) Values(ctx context.Context, rangeName string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(w.path)) {
	case ".xlsx", ".xlsm":
		return w.readXLSX(sheetName(rangeName))
	case ".xls":
		return w.readXLS(sheetName(rangeName))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(w.path))
	}
}

func (w *Workbook) readXLSX(sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("excelize.OpenFile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if idx, err := f.GetSheetIndex(sheet); sheet == "" || err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrRangeNotFound)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("excelize.GetRows: %w", err)
	}
	return rows, nil
}

func (w *Workbook) readXLS(sheet string) ([][]string, error) {
	wb, err := xls.Open(w.path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("xls.Open: %w", err)
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s == nil {
			continue
		}
		if ws == nil {
			ws = s
		}
		if s.Name == sheet {
			ws = s
			break
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrRangeNotFound)
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// Package sheets provides the spreadsheet collaborators the ingestion core
// pulls raw grids from.
package sheets

import (
	"context"
	"fmt"
	"strings"
)

// Grid returns the string cells of one named range, header row included.
type Grid interface {
	Values(ctx context.Context, rangeName string) ([][]string, error)
}

// cellString renders an API cell the way the sheet displays it.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

// sheetName extracts the sheet part of an A1 range ("Data!A1:F" -> "Data").
func sheetName(rangeName string) string {
	name, _, _ := strings.Cut(rangeName, "!")
	return strings.Trim(strings.TrimSpace(name), "'")
}

// Static serves a fixed grid. It backs tests and the offline demo mode.
type Static struct {
	Rows [][]string
	Err  error
}

// Values returns a copy of the configured grid or the configured error.
func (s *Static) Values(ctx context.Context, _ string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

package sheets

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Google reads ranges from one spreadsheet through the Sheets API v4 with a
// read-only service account.
type Google struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// Credentials describes where the service-account key comes from. JSON wins
// over File when both are set.
type Credentials struct {
	File string
	JSON string
}

// ClientOptions turns credentials into API client options. It fails with
// ErrNoCredentials when neither source is configured.
func (c Credentials) ClientOptions() ([]option.ClientOption, error) {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope)}
	switch {
	case c.JSON != "":
		return append(opts, option.WithCredentialsJSON([]byte(c.JSON))), nil
	case c.File != "":
		if _, err := os.Stat(c.File); err != nil {
			return nil, fmt.Errorf("credentials file: %w", err)
		}
		return append(opts, option.WithCredentialsFile(c.File)), nil
	default:
		return nil, ErrNoCredentials
	}
}

// NewGoogle builds a Sheets client for spreadsheetID.
func NewGoogle(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Google, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: empty spreadsheet id")
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets.NewService: %w", err)
	}
	return &Google{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Values returns the formatted cells of rangeName. Trailing empty cells are
// trimmed by the API, so rows may be ragged.
func (g *Google) Values(ctx context.Context, rangeName string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rangeName).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets values.get %q: %w", rangeName, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		out[i] = cells
	}
	return out, nil
}

package sheets_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/profitboard/internal/adapters/sheets"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
)

func TestStatic(t *testing.T) {
	Convey("Given a static grid", t, func() {
		src := &sheets.Static{Rows: [][]string{{"Date", "Тренер"}, {"01.03.2024", "A"}}}

		Convey("When values are read", func() {
			got, err := src.Values(context.Background(), "pivot_result")

			Convey("Then a copy of the grid is returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, src.Rows)
				got[1][1] = "changed"
				So(src.Rows[1][1], ShouldEqual, "A")
			})
		})

		Convey("When it is configured to fail", func() {
			src.Err = errors.New("quota exceeded")
			_, err := src.Values(context.Background(), "pivot_result")

			Convey("Then the error is returned", func() {
				So(err, ShouldEqual, src.Err)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := src.Values(ctx, "pivot_result")

			Convey("Then the context error is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestGoogle(t *testing.T) {
	Convey("Given a Sheets API endpoint", t, func() {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if strings.Contains(r.URL.Path, "missing") {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Unable to parse range"}}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"range":"pivot_result!A1:E3","majorDimension":"ROWS","values":[["Date","Тренер","nickname"],["01.03.2024","CoachA","Bob"],["02.03.2024","CoachB"]]}`))
		}))
		defer srv.Close()

		ctx := context.Background()
		g, err := sheets.NewGoogle(ctx, "sheet-id", option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
		So(err, ShouldBeNil)

		Convey("When a range is read", func() {
			rows, err := g.Values(ctx, "pivot_result")

			Convey("Then cells come back as strings, ragged rows kept", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldContainSubstring, "sheet-id/values/pivot_result")
				So(rows, ShouldHaveLength, 3)
				So(rows[1], ShouldResemble, []string{"01.03.2024", "CoachA", "Bob"})
				So(rows[2], ShouldResemble, []string{"02.03.2024", "CoachB"})
			})
		})

		Convey("When the API rejects the range", func() {
			_, err := g.Values(ctx, "missing")

			Convey("Then the error is wrapped", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "values.get")
			})
		})
	})

	Convey("Given no spreadsheet id", t, func() {
		_, err := sheets.NewGoogle(context.Background(), "", option.WithoutAuthentication())

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCredentials(t *testing.T) {
	Convey("Given credential sources", t, func() {
		Convey("When none is configured", func() {
			_, err := sheets.Credentials{}.ClientOptions()

			Convey("Then ErrNoCredentials is returned", func() {
				So(errors.Is(err, sheets.ErrNoCredentials), ShouldBeTrue)
			})
		})

		Convey("When the key file does not exist", func() {
			_, err := sheets.Credentials{File: filepath.Join(t.TempDir(), "nope.json")}.ClientOptions()

			Convey("Then the stat error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When inline JSON is given", func() {
			opts, err := sheets.Credentials{JSON: `{"type":"service_account"}`, File: "/ignored"}.ClientOptions()

			Convey("Then scope and credentials options are produced", func() {
				So(err, ShouldBeNil)
				So(opts, ShouldHaveLength, 2)
			})
		})
	})
}

func TestWorkbook(t *testing.T) {
	Convey("Given an xlsx export", t, func() {
		path := filepath.Join(t.TempDir(), "export.xlsx")
		f := excelize.NewFile()
		_, err := f.NewSheet("pivot_result")
		So(err, ShouldBeNil)
		So(f.SetSheetRow("pivot_result", "A1", &[]any{"Date", "Тренер", "nickname", "club_name", "руки"}), ShouldBeNil)
		So(f.SetSheetRow("pivot_result", "A2", &[]any{"01.03.2024", "CoachA", "Bob", "ClubX", "100"}), ShouldBeNil)
		So(f.SaveAs(path), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		wb := sheets.NewWorkbook(path)
		ctx := context.Background()

		Convey("When the named sheet is read", func() {
			rows, err := wb.Values(ctx, "pivot_result!A1:E")

			Convey("Then its rows are returned", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[1], ShouldResemble, []string{"01.03.2024", "CoachA", "Bob", "ClubX", "100"})
			})
		})

		Convey("When the sheet does not exist", func() {
			rows, err := wb.Values(ctx, "other")

			Convey("Then the first sheet is read", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an xlsx export whose only sheet has another name", t, func() {
		path := filepath.Join(t.TempDir(), "export.xlsx")
		f := excelize.NewFile()
		So(f.SetSheetName("Sheet1", "Export"), ShouldBeNil)
		So(f.SetSheetRow("Export", "A1", &[]any{"Date", "Тренер", "nickname", "club_name", "руки"}), ShouldBeNil)
		So(f.SetSheetRow("Export", "A2", &[]any{"01.03.2024", "CoachA", "Bob", "ClubX", "100"}), ShouldBeNil)
		So(f.SaveAs(path), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		Convey("When the default range is read", func() {
			rows, err := sheets.NewWorkbook(path).Values(context.Background(), "pivot_result")

			Convey("Then that sheet's rows are returned", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[1][2], ShouldEqual, "Bob")
			})
		})
	})

	Convey("Given a file with an unknown extension", t, func() {
		wb := sheets.NewWorkbook(filepath.Join(t.TempDir(), "data.ods"))
		_, err := wb.Values(context.Background(), "")

		Convey("Then ErrUnsupportedFormat is returned", func() {
			So(errors.Is(err, sheets.ErrUnsupportedFormat), ShouldBeTrue)
		})
	})
}

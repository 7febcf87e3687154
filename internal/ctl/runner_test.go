package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/profitboard/internal/config"
	"github.com/okian/profitboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

func init() {
	if err := logger.Init(logger.WithWriter(&bytes.Buffer{})); err != nil {
		panic(err)
	}
}

func writeWorkbook(dir string) string {
	path := filepath.Join(dir, "export.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet("pivot_result")
	So(err, ShouldBeNil)
	rows := [][]any{
		{"Date", "Тренер", "nickname", "club_name", "руки", "Profit_PLAYER", "Win_USD_PLAYER"},
		{"01.03.2024", "CoachA", "Bob", "ClubX", "100", "10,4", "20"},
		{"02.03.2024", "CoachB", "Ann", "ClubY", "200", "30", "35"},
		{"bad", "CoachB", "Ann", "ClubY", "1", "1", "1"},
		{"03.03.2024", "0", "Zoe", "ClubZ", "10", "1", "1"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		So(err, ShouldBeNil)
		So(f.SetSheetRow("pivot_result", cell, &row), ShouldBeNil)
	}
	So(f.SaveAs(path), ShouldBeNil)
	So(f.Close(), ShouldBeNil)
	return path
}

func TestRun(t *testing.T) {
	Convey("Given a workbook source and a cache path", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		app := config.New()
		app.WorkbookPath = writeWorkbook(dir)
		app.CachePath = filepath.Join(dir, "cache", "data.json")
		out := &bytes.Buffer{}

		Convey("When fetch runs", func() {
			err := Run(ctx, &Config{Command: CmdFetch, JSON: true, Out: out}, app)

			Convey("Then the kept rows are summarized and cached", func() {
				So(err, ShouldBeNil)
				var res FetchResult
				So(json.Unmarshal(out.Bytes(), &res), ShouldBeNil)
				So(res.Rows, ShouldEqual, 2)
				So(res.Origin, ShouldEqual, "live")
				So(res.From, ShouldEqual, "2024-03-01")
				So(res.To, ShouldEqual, "2024-03-02")
				So(res.LoadID, ShouldNotBeEmpty)

				_, statErr := os.Stat(app.CachePath)
				So(statErr, ShouldBeNil)
			})

			Convey("Then a second fetch is served from the cache", func() {
				out.Reset()
				So(Run(ctx, &Config{Command: CmdFetch, Out: out}, app), ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "cache")
			})

			Convey("Then info describes a fresh file", func() {
				out.Reset()
				So(Run(ctx, &Config{Command: CmdInfo, Out: out}, app), ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "fresh")
				So(out.String(), ShouldContainSubstring, "true")
			})

			Convey("Then invalidate removes the file", func() {
				out.Reset()
				So(Run(ctx, &Config{Command: CmdInvalidate, Out: out}, app), ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "invalidated")
				_, statErr := os.Stat(app.CachePath)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When export runs", func() {
			db := filepath.Join(dir, "out.db")
			err := Run(ctx, &Config{Command: CmdExport, SQLitePath: db, JSON: true, Out: out}, app)

			Convey("Then the rows are written", func() {
				So(err, ShouldBeNil)
				var res ExportResult
				So(json.Unmarshal(out.Bytes(), &res), ShouldBeNil)
				So(res.Rows, ShouldEqual, 2)
				So(res.Path, ShouldEqual, db)
			})
		})

		Convey("When info runs before any load", func() {
			err := Run(ctx, &Config{Command: CmdInfo, JSON: true, Out: out}, app)

			Convey("Then the file is reported missing", func() {
				So(err, ShouldBeNil)
				var in map[string]any
				So(json.Unmarshal(out.Bytes(), &in), ShouldBeNil)
				So(in["exists"], ShouldEqual, false)
			})
		})
	})

	Convey("Given no configured source", t, func() {
		app := config.New()
		app.CachePath = filepath.Join(t.TempDir(), "data.json")

		Convey("Then fetch fails", func() {
			err := Run(context.Background(), &Config{Command: CmdFetch, Out: &bytes.Buffer{}}, app)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an unknown command", t, func() {
		Convey("Then Run rejects it", func() {
			err := Run(context.Background(), &Config{Command: "nope", Out: &bytes.Buffer{}}, config.New())
			So(err, ShouldNotBeNil)
		})
	})
}

package export_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/profitboard/internal/adapters/export"
	"github.com/okian/profitboard/internal/domain/model"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func table() *model.Table {
	measures := []string{model.MeasureHands, model.MeasureProfit}
	return &model.Table{
		Columns:  append(model.IdentityColumns(), measures...),
		Measures: measures,
		Records: []model.Record{
			{
				Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Coach: "CoachA", Player: "Bob", Club: "ClubX",
				Measures: map[string]decimal.NullDecimal{
					model.MeasureHands:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
					model.MeasureProfit: decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
				},
				Extra: map[string]string{"note": "vip"},
			},
			{
				Date: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), Coach: "CoachB", Player: "Ann", Club: "ClubY",
				Measures: map[string]decimal.NullDecimal{
					model.MeasureHands:  decimal.NewNullDecimal(decimal.NewFromInt(50)),
					model.MeasureProfit: {},
				},
			},
		},
	}
}

func TestSQLite(t *testing.T) {
	Convey("Given a loaded table", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "out.db")

		Convey("When it is exported twice", func() {
			n, err := export.SQLite(ctx, path, table())
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			_, err = export.SQLite(ctx, path, table())
			So(err, ShouldBeNil)

			db, err := sql.Open("sqlite", path)
			So(err, ShouldBeNil)
			defer db.Close()

			Convey("Then the records table holds one copy of each row", func() {
				var count int
				So(db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count), ShouldBeNil)
				So(count, ShouldEqual, 2)
			})

			Convey("Then values and missing measures round trip", func() {
				var (
					date, player string
					profit       sql.NullFloat64
					extra        sql.NullString
				)
				row := db.QueryRowContext(ctx, `SELECT date, player, profit, extra FROM records WHERE coach = ?`, "CoachA")
				So(row.Scan(&date, &player, &profit, &extra), ShouldBeNil)
				So(date, ShouldEqual, "2024-03-01")
				So(player, ShouldEqual, "Bob")
				So(profit.Float64, ShouldEqual, 12.5)
				So(extra.String, ShouldEqual, `{"note":"vip"}`)

				row = db.QueryRowContext(ctx, `SELECT profit, extra FROM records WHERE coach = ?`, "CoachB")
				So(row.Scan(&profit, &extra), ShouldBeNil)
				So(profit.Valid, ShouldBeFalse)
				So(extra.Valid, ShouldBeFalse)
			})
		})

		Convey("When a measure name is not an identifier", func() {
			bad := table()
			bad.Measures = []string{"profit; DROP TABLE x"}
			_, err := export.SQLite(ctx, path, bad)

			Convey("Then nothing is written", func() {
				So(errors.Is(err, export.ErrBadColumn), ShouldBeTrue)
			})
		})
	})
}

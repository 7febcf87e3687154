package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/profitboard/internal/domain/model"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleTable() *model.Table {
	return &model.Table{
		Columns:  []string{model.ColDate, model.ColCoach, model.ColPlayer, model.ColClub, model.MeasureHands, model.MeasureProfit, "note"},
		Measures: []string{model.MeasureHands, model.MeasureProfit},
		Records: []model.Record{
			{
				Date: day(2024, 3, 1), Coach: "CoachA", Player: "Bob", Club: "ClubX",
				Measures: map[string]decimal.NullDecimal{model.MeasureHands: num("100"), model.MeasureProfit: num("1234.50")},
				Extra:    map[string]string{"note": "first"},
			},
			{
				Date: day(2024, 3, 2), Coach: "CoachB", Player: "Ann", Club: "ClubY",
				Measures: map[string]decimal.NullDecimal{model.MeasureHands: num("50"), model.MeasureProfit: {}},
				Extra:    map[string]string{"note": ""},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	Convey("Given table validation", t, func() {
		measures := []string{model.MeasureHands, model.MeasureProfit}

		Convey("When the table carries every required column and dated rows", func() {
			err := model.Validate(sampleTable(), measures)

			Convey("Then it is valid", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When a required column is missing", func() {
			tbl := sampleTable()
			tbl.Columns = []string{model.ColDate, model.ColCoach, model.ColPlayer, model.MeasureHands}
			err := model.Validate(tbl, measures)

			Convey("Then it reports the missing columns", func() {
				So(errors.Is(err, model.ErrInvalidTable), ShouldBeTrue)
				So(errors.Is(err, model.ErrMissingColumns), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "club")
				So(err.Error(), ShouldContainSubstring, "profit")
			})
		})

		Convey("When no row carries a date", func() {
			tbl := sampleTable()
			for i := range tbl.Records {
				tbl.Records[i].Date = time.Time{}
			}
			err := model.Validate(tbl, measures)

			Convey("Then it is entirely dateless", func() {
				So(errors.Is(err, model.ErrNoDatedRows), ShouldBeTrue)
			})
		})

		Convey("When the table is empty or nil", func() {
			empty := sampleTable()
			empty.Records = nil

			Convey("Then both are invalid", func() {
				So(errors.Is(model.Validate(empty, measures), model.ErrNoDatedRows), ShouldBeTrue)
				So(errors.Is(model.Validate(nil, measures), model.ErrInvalidTable), ShouldBeTrue)
			})
		})
	})
}

func TestTableCloneAndEqual(t *testing.T) {
	Convey("Given a table", t, func() {
		tbl := sampleTable()

		Convey("When it is cloned", func() {
			cp := tbl.Clone()

			Convey("Then the copy is equal but independent", func() {
				So(cp.Equal(tbl), ShouldBeTrue)
				cp.Records[0].Measures[model.MeasureHands] = num("1")
				cp.Records[0].Extra["note"] = "changed"
				So(cp.Equal(tbl), ShouldBeFalse)
				So(tbl.Records[0].MeasureOrZero(model.MeasureHands).Equal(decimal.NewFromInt(100)), ShouldBeTrue)
				So(tbl.Records[0].Extra["note"], ShouldEqual, "first")
			})
		})

		Convey("When decimals differ only in trailing zeros", func() {
			cp := tbl.Clone()
			cp.Records[0].Measures[model.MeasureProfit] = num("1234.5")

			Convey("Then the tables are still equal", func() {
				So(cp.Equal(tbl), ShouldBeTrue)
			})
		})

		Convey("Then nil tables compare sensibly", func() {
			var nilTable *model.Table
			So(nilTable.Equal(nil), ShouldBeTrue)
			So(nilTable.Equal(tbl), ShouldBeFalse)
			So(nilTable.Len(), ShouldEqual, 0)
		})
	})
}

func TestDateRange(t *testing.T) {
	Convey("Given records with and without dates", t, func() {
		tbl := sampleTable()
		tbl.Records = append(tbl.Records, model.Record{Coach: "x"})

		Convey("Then the range spans the dated records", func() {
			from, to, ok := tbl.DateRange()
			So(ok, ShouldBeTrue)
			So(from, ShouldEqual, day(2024, 3, 1))
			So(to, ShouldEqual, day(2024, 3, 2))
		})
	})
}

func TestRowsRoundTrip(t *testing.T) {
	Convey("Given a table in wire form", t, func() {
		tbl := sampleTable()
		data, err := json.Marshal(tbl.Rows())
		So(err, ShouldBeNil)

		Convey("Then dates are ISO strings and missing measures are null", func() {
			So(string(data), ShouldContainSubstring, `"date":"2024-03-01"`)
			So(string(data), ShouldContainSubstring, `"profit":1234.5`)
			So(string(data), ShouldContainSubstring, `"profit":null`)
		})

		Convey("When decoded again", func() {
			var raw []json.RawMessage
			So(json.Unmarshal(data, &raw), ShouldBeNil)
			back, err := model.FromRows(tbl.Columns, tbl.Measures, raw)

			Convey("Then it equals the original", func() {
				So(err, ShouldBeNil)
				So(back.Equal(tbl), ShouldBeTrue)
			})
		})

		Convey("When a measure holds garbage", func() {
			raw := []json.RawMessage{json.RawMessage(`{"date":"2024-03-01","hands":"lots"}`)}
			_, err := model.FromRows(tbl.Columns, tbl.Measures, raw)

			Convey("Then decoding fails", func() {
				So(errors.Is(err, model.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When a measure carries an absurd exponent", func() {
			raw := []json.RawMessage{json.RawMessage(`{"date":"2024-03-01","hands":1e900000000}`)}
			_, err := model.FromRows(tbl.Columns, tbl.Measures, raw)

			Convey("Then decoding fails", func() {
				So(errors.Is(err, model.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When a date is malformed", func() {
			raw := []json.RawMessage{json.RawMessage(`{"date":"01.03.2024"}`)}
			_, err := model.FromRows(tbl.Columns, tbl.Measures, raw)

			Convey("Then decoding fails", func() {
				So(errors.Is(err, model.ErrDecode), ShouldBeTrue)
			})
		})
	})
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("ingest").Info(ctx, "table loaded",
				String("origin", "live"),
				Int("rows", 12),
				Bool("forced", true),
				Duration("took", 150*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries the component and fields", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "table loaded")
				So(rec["component"], ShouldEqual, "ingest")
				So(rec["rows"], ShouldEqual, float64(12))
				So(rec["forced"], ShouldEqual, true)
			})
		})

		Convey("When the level filters a message", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then only the warning is written", func() {
				out := buf.String()
				So(out, ShouldNotContainSubstring, "hidden")
				So(out, ShouldContainSubstring, "shown")
				So(strings.Count(out, "\n"), ShouldEqual, 1)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels are accepted case-insensitively", func() {
			for _, lvl := range []string{"debug", "INFO", "", "warn", "Warning", "error"} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("And unknown levels are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging does not panic", func() {
			So(func() {
				l.Info(context.Background(), "discarded", String("k", "v"))
				l.Named("x").Debug(context.Background(), "discarded")
			}, ShouldNotPanic)
		})
	})
}

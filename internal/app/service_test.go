package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/profitboard/internal/adapters/cache"
	"github.com/okian/profitboard/internal/adapters/sheets"
	service "github.com/okian/profitboard/internal/app"
	"github.com/okian/profitboard/internal/domain/report"
	"github.com/okian/profitboard/internal/ingest"
	"github.com/okian/profitboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func playerGrid() [][]string {
	return [][]string{
		{"Date", "Тренер", "nickname", "club_name", "руки", "Profit_PLAYER", "Win_USD_PLAYER"},
		{"01.03.2024", "CoachA", "Bob", "ClubX", "100", "10,4", "20"},
		{"02.03.2024", "CoachA", "Bob", "ClubY", "50", "5", "8"},
		{"02.03.2024", "CoachB", "Ann", "ClubX", "200", "30", "35"},
		{"03.03.2024", "0", "Zoe", "ClubZ", "10", "1", "1"},
	}
}

func newService(t *testing.T, grid *sheets.Static, opts ...service.Option) *service.Service {
	store := cache.New(filepath.Join(t.TempDir(), "data.json"))
	fetcher := ingest.NewFetcher(grid, ingest.DefaultSource())
	svc, err := service.New(service.NewLoader(fetcher, store), opts...)
	So(err, ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a nil loader", t, func() {
		_, err := service.New(nil)

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a loader and custom options", t, func() {
		svc := newService(t, &sheets.Static{Rows: playerGrid()},
			service.WithReportCacheSize(8),
			service.WithRefreshInterval(0),
		)

		Convey("Then stats reflect the options", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["reportCacheSize"], ShouldEqual, 8)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with a refresher", t, func() {
		grid := &sheets.Static{Rows: playerGrid()}
		svc := newService(t, grid, service.WithRefreshInterval(10*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			Convey("Then the refresher loads the table in the background", func() {
				deadline := time.Now().Add(5 * time.Second)
				for svc.Status().Loads == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(svc.Status().Loads, ShouldBeGreaterThan, 0)
				So(svc.Status().Origin, ShouldEqual, service.OriginLive)
				svc.Stop()
			})

			Convey("Then stopping marks it stopped and is idempotent", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Report(t *testing.T) {
	Convey("Given a service over the player sheet", t, func() {
		ctx := context.Background()
		today := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
		grid := &sheets.Static{Rows: playerGrid()}
		svc := newService(t, grid, service.WithClock(func() time.Time { return today }))

		Convey("When a report is requested", func() {
			r, err := svc.Report(ctx, report.Query{Preset: report.PresetCurrentMonth})

			Convey("Then it summarizes the loaded rows", func() {
				So(err, ShouldBeNil)
				So(r.Rows, ShouldEqual, 3)
				So(r.Players, ShouldHaveLength, 2)
				So(r.Totals.Profit.String(), ShouldEqual, "45")
			})

			Convey("Then the same query is served from memory", func() {
				again, err := svc.Report(ctx, report.Query{Preset: report.PresetCurrentMonth})
				So(err, ShouldBeNil)
				So(again, ShouldPointTo, r)
				So(svc.GetStats()["cachedReports"], ShouldEqual, 1)
			})

			Convey("Then a forced reload drops memoized reports", func() {
				grid.Rows = playerGrid()[:2]
				_, err := svc.Table(ctx, true)
				So(err, ShouldBeNil)
				So(svc.GetStats()["cachedReports"], ShouldEqual, 0)

				fresh, err := svc.Report(ctx, report.Query{Preset: report.PresetCurrentMonth})
				So(err, ShouldBeNil)
				So(fresh.Rows, ShouldEqual, 1)
			})
		})

		Convey("When filters are requested for a coach", func() {
			f, err := svc.Filters(ctx, report.Query{Preset: report.PresetAllTime, Coach: "CoachA"})

			Convey("Then coaches exclude the sentinel and players follow the coach", func() {
				So(err, ShouldBeNil)
				So(f.Coaches, ShouldResemble, []string{"CoachA", "CoachB"})
				So(f.Players, ShouldResemble, []string{"Bob"})
			})
		})

		Convey("When the cache is invalidated", func() {
			_, err := svc.Report(ctx, report.Query{})
			So(err, ShouldBeNil)
			So(svc.CacheInfo(ctx).Exists, ShouldBeTrue)
			So(svc.InvalidateCache(ctx), ShouldBeNil)

			Convey("Then the file and memoized reports are gone", func() {
				So(svc.CacheInfo(ctx).Exists, ShouldBeFalse)
				So(svc.GetStats()["cachedReports"], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a service whose sheet is unreachable", t, func() {
		svc := newService(t, &sheets.Static{Err: context.DeadlineExceeded})

		Convey("Then a report fails with an explicit kind", func() {
			_, err := svc.Report(context.Background(), report.Query{})
			So(err, ShouldNotBeNil)
			So(service.Kind(err), ShouldEqual, "source_unavailable")
			So(svc.Status().LastError, ShouldEqual, "source_unavailable")
		})
	})
}

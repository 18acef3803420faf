package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/testutil"

	service "github.com/okian/dutylog/internal/app"
	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/types"
	"github.com/okian/dutylog/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// eventually polls cond until it holds or the timeout passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func intPtr(v int) *int { return &v }

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with two records and an idle person", t, func() {
		svc := newTestService(t, service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		a, dup, err := svc.AddLog(ctx, model.Record{Timestamp: "2025-03-03T18:00:00", Participants: []string{" A ", "A"}, Note: "evening"})
		So(err, ShouldBeNil)
		So(dup, ShouldBeFalse)
		So(a.ID, ShouldNotBeEmpty)

		// The UTC marker keeps its clock digits: 23:00 local.
		b, _, err := svc.AddLog(ctx, model.Record{ID: "rec-b", Timestamp: "2025-03-03T23:00:00Z", Participants: []string{"B"}})
		So(err, ShouldBeNil)
		So(b.ID, ShouldEqual, "rec-b")

		people, err := svc.AddPeople(ctx, []string{"C"})
		So(err, ShouldBeNil)
		So(people, ShouldResemble, []string{"A", "B", "C"})

		Convey("When computing fatigue at the fixed clock", func() {
			board, err := svc.Fatigue(ctx, types.FatigueQuery{})

			Convey("Then scores should be ranked highest first", func() {
				So(err, ShouldBeNil)
				So(board.Reference, ShouldEqual, "2025-03-04T12:00:00")
				So(board.Entries, ShouldResemble, []types.FatigueEntry{
					{Rank: 1, Person: "B", Score: 2},
					{Rank: 2, Person: "A", Score: 1},
					{Rank: 3, Person: "C", Score: 0},
				})
			})
		})

		Convey("When computing fatigue with a zero horizon", func() {
			board, err := svc.Fatigue(ctx, types.FatigueQuery{Days: intPtr(0)})

			Convey("Then everyone should score zero", func() {
				So(err, ShouldBeNil)
				for _, e := range board.Entries {
					So(e.Score, ShouldEqual, 0)
					So(e.Rank, ShouldEqual, 1)
				}
			})
		})

		Convey("When computing fatigue at an explicit reference time", func() {
			board, err := svc.Fatigue(ctx, types.FatigueQuery{Now: "2025-03-03T21:00:00"})

			Convey("Then records after the reference should not count", func() {
				So(err, ShouldBeNil)
				So(board.Entries[0].Score, ShouldEqual, 0)
			})
		})

		Convey("When the requested horizon exceeds the lookback limit", func() {
			_, tooLong := svc.Fatigue(ctx, types.FatigueQuery{Days: intPtr(367)})
			atLimit, err := svc.Fatigue(ctx, types.FatigueQuery{Days: intPtr(366)})

			Convey("Then only the limit itself should be accepted", func() {
				So(errors.Is(tooLong, service.ErrInvalidInput), ShouldBeTrue)
				So(err, ShouldBeNil)
				So(atLimit.LookbackDays, ShouldEqual, 366)
			})
		})

		Convey("When the reference time is unreadable", func() {
			_, err := svc.Fatigue(ctx, types.FatigueQuery{Now: "tomorrow"})

			Convey("Then ErrInvalidInput should be returned", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the board refreshes in the background", func() {
			ok := eventually(func() bool {
				snap, ok := svc.Board()
				return ok && len(snap.Entries) == 3 && snap.Entries[0].Person == "B"
			})

			Convey("Then the cached snapshot and gauges should follow", func() {
				So(ok, ShouldBeTrue)
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "dutylog_fatigue_score")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When listing logs", func() {
			all, err := svc.Logs(ctx, "", "")
			So(err, ShouldBeNil)

			Convey("Then they should be newest first", func() {
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, "rec-b")
				So(all[1].Participants, ShouldResemble, []string{"A"})
			})

			Convey("Then date bounds should filter by local day", func() {
				day, err := svc.Logs(ctx, "2025-03-03", "2025-03-03")
				So(err, ShouldBeNil)
				So(day, ShouldHaveLength, 2)

				later, err := svc.Logs(ctx, "2025-03-04", "")
				So(err, ShouldBeNil)
				So(later, ShouldBeEmpty)
			})

			Convey("Then an unreadable bound should be rejected", func() {
				_, err := svc.Logs(ctx, "last week", "")
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When resubmitting a record with a known ID", func() {
			_, dup, err := svc.AddLog(ctx, model.Record{ID: "rec-b", Timestamp: "2025-03-03T23:00:00Z", Participants: []string{"B"}})

			Convey("Then it should be reported as a duplicate and not stored", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				all, _ := svc.Logs(ctx, "", "")
				So(all, ShouldHaveLength, 2)
			})
		})

		Convey("When submitting invalid records", func() {
			cases := []model.Record{
				{Timestamp: " ", Participants: []string{"A"}},
				{Timestamp: "yesterday", Participants: []string{"A"}},
				{Timestamp: "2025-03-03T10:00:00", Participants: []string{" ", ""}},
			}

			Convey("Then each should fail with ErrInvalidInput", func() {
				for _, r := range cases {
					_, _, err := svc.AddLog(ctx, r)
					So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				}
			})
		})

		Convey("When deleting records", func() {
			n, err := svc.DeleteLog(ctx, "rec-b")
			So(err, ShouldBeNil)
			missing, err := svc.DeleteLog(ctx, "nope")
			So(err, ShouldBeNil)

			Convey("Then only the existing record should be removed", func() {
				So(n, ShouldEqual, 1)
				So(missing, ShouldEqual, 0)
			})

			Convey("Then clearing should remove the rest", func() {
				cleared, err := svc.ClearLogs(ctx)
				So(err, ShouldBeNil)
				So(cleared, ShouldEqual, 1)
			})
		})

		Convey("When removing a person", func() {
			people, err := svc.RemovePerson(ctx, "A")

			Convey("Then the roster shrinks and their records stay", func() {
				So(err, ShouldBeNil)
				So(people, ShouldResemble, []string{"B", "C"})
				all, _ := svc.Logs(ctx, "", "")
				So(all, ShouldHaveLength, 2)
			})

			Convey("Then resetting empties the roster", func() {
				So(svc.ResetPeople(ctx), ShouldBeNil)
				people, err := svc.People(ctx)
				So(err, ShouldBeNil)
				So(people, ShouldBeEmpty)
			})
		})

		Convey("When saving bands", func() {
			saved, err := svc.SaveBands(ctx, []model.Band{{Start: "17:00", End: "21:00", Weight: -5}})
			So(err, ShouldBeNil)

			Convey("Then negative weights should be clamped and scores follow", func() {
				So(saved, ShouldResemble, []model.Band{{Start: "17:00", End: "21:00", Weight: 0}})
				board, err := svc.Fatigue(ctx, types.FatigueQuery{})
				So(err, ShouldBeNil)
				So(board.Entries[0].Score, ShouldEqual, 0)
			})

			Convey("Then resetting should restore the defaults", func() {
				bands, err := svc.ResetBands(ctx)
				So(err, ShouldBeNil)
				So(bands, ShouldHaveLength, 2)
				board, err := svc.Fatigue(ctx, types.FatigueQuery{})
				So(err, ShouldBeNil)
				So(board.Entries[0].Score, ShouldEqual, 2)
			})
		})

		Convey("When saving an empty band list", func() {
			_, err := svc.SaveBands(ctx, []model.Band{})
			So(err, ShouldBeNil)

			Convey("Then the empty list should be kept rather than defaulted", func() {
				bands, err := svc.Bands(ctx)
				So(err, ShouldBeNil)
				So(bands, ShouldBeEmpty)
			})
		})

		Convey("When saving no band list at all", func() {
			_, err := svc.SaveBands(ctx, nil)

			Convey("Then ErrInvalidInput should be returned", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When computing the running series", func() {
			series, err := svc.Series(ctx, "2025-03-03", "2025-03-04")

			Convey("Then each day should be stamped at 09:01", func() {
				So(err, ShouldBeNil)
				So(series.Dates, ShouldResemble, []string{"2025-03-03T09:01:00", "2025-03-04T09:01:00"})
				So(series.Lines, ShouldResemble, []types.SeriesLine{
					{Person: "A", Values: []float64{0, 1}},
					{Person: "B", Values: []float64{0, 2}},
					{Person: "C", Values: []float64{0, 0}},
				})
			})

			Convey("Then open or oversized ranges should be rejected", func() {
				_, err := svc.Series(ctx, "", "2025-03-04")
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				_, err = svc.Series(ctx, "2020-01-01", "2025-03-04")
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When summarizing participation", func() {
			sum, err := svc.Summary(ctx, types.SummaryQuery{})
			So(err, ShouldBeNil)

			Convey("Then ties should keep first-seen order", func() {
				So(sum.Records, ShouldEqual, 2)
				So(sum.People, ShouldEqual, 2)
				So(sum.Sort, ShouldEqual, "count")
				So(sum.Dir, ShouldEqual, "desc")
				So(sum.Counts, ShouldResemble, []types.CountEntry{{Person: "A", Count: 1}, {Person: "B", Count: 1}})
			})

			Convey("Then sorting by person descending should reverse names", func() {
				byName, err := svc.Summary(ctx, types.SummaryQuery{Sort: "doctor", Dir: "desc"})
				So(err, ShouldBeNil)
				So(byName.Counts[0].Person, ShouldEqual, "B")
			})

			Convey("Then the quick week range should include both records", func() {
				week, err := svc.QuickSummary(ctx, 7, "", "")
				So(err, ShouldBeNil)
				So(week.From, ShouldEqual, "2025-02-26T00:00:00")
				So(week.To, ShouldEqual, "2025-03-04T23:59:59.999")
				So(week.Records, ShouldEqual, 2)

				_, err = svc.QuickSummary(ctx, 0, "", "")
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When exporting and importing CSV", func() {
			var buf bytes.Buffer
			So(svc.ExportCSV(ctx, &buf, "", ""), ShouldBeNil)

			Convey("Then the export should start with the header", func() {
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines, ShouldHaveLength, 3)
				So(lines[0], ShouldEqual, "datetime,doctor,note")
				So(lines[1], ShouldStartWith, "2025-03-03T23:00:00Z,B,")
			})

			Convey("Then an import should replace every record", func() {
				body := "datetime,doctor,note\n2025-03-02T18:00:00,A;D,n1\n,B,skip\n"
				res, err := svc.ImportCSV(ctx, strings.NewReader(body))
				So(err, ShouldBeNil)
				So(res, ShouldResemble, types.ImportResult{Imported: 1, Skipped: 1})

				all, _ := svc.Logs(ctx, "", "")
				So(all, ShouldHaveLength, 1)
				So(all[0].Participants, ShouldResemble, []string{"A", "D"})
				people, _ := svc.People(ctx)
				So(people, ShouldContain, "D")
			})

			Convey("Then an empty import should be rejected", func() {
				_, err := svc.ImportCSV(ctx, strings.NewReader(""))
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When importing legacy data", func() {
			legacy := `{"doctors":["X"],"logs":[{"id":"l1","datetime":"2025-03-01T18:00:00","doctor":"Y"},{"id":"rec-b","datetime":"2025-03-01T18:00:00","doctors":["B"]}],"audit":[]}`
			res, err := svc.ImportLegacy(ctx, strings.NewReader(legacy))

			Convey("Then new records should be added and known IDs skipped", func() {
				So(err, ShouldBeNil)
				So(res.Imported, ShouldEqual, 1)
				So(res.Skipped, ShouldEqual, 1)
				people, _ := svc.People(ctx)
				So(people, ShouldContain, "X")
				So(people, ShouldContain, "Y")
			})
		})
	})
}

func TestServiceSeriesLimitAcrossClockChanges(t *testing.T) {
	Convey("Given a service in a zone with daylight saving time", t, func() {
		ny, err := time.LoadLocation("America/New_York")
		So(err, ShouldBeNil)
		svc := newTestService(t, service.WithLocation(ny))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a 367-day range loses an hour to clock changes", func() {
			_, err := svc.Series(ctx, "2025-03-08", "2026-03-09")

			Convey("Then it should still exceed the 366-day limit", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the range is exactly 366 days", func() {
			series, err := svc.Series(ctx, "2025-03-09", "2026-03-09")

			Convey("Then it should be accepted", func() {
				So(err, ShouldBeNil)
				So(series.Dates, ShouldHaveLength, 366)
			})
		})
	})
}

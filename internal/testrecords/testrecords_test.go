package testrecords

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/dutylog/internal/adapters/http/api"
	service "github.com/okian/dutylog/internal/app"
	"github.com/okian/dutylog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerateRecords(t *testing.T) {
	Convey("Given a generator configuration", t, func() {
		ctx := context.Background()
		now := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.Local)
		cfg := &Config{NumRecords: 50, NumPeople: 4, Days: 3, DuplicateRatio: 0.2}
		stats := &Stats{}

		records, submissions, err := generateRecords(ctx, cfg, now, stats)
		So(err, ShouldBeNil)

		Convey("Then the requested records and resubmissions should exist", func() {
			So(records, ShouldHaveLength, 50)
			So(submissions, ShouldHaveLength, 60)
			So(stats.RecordsGenerated, ShouldEqual, 50)
		})

		Convey("Then every record should be well formed", func() {
			people := roster(4)
			ids := map[string]struct{}{}
			for _, r := range records {
				ids[r.ID] = struct{}{}

				at, err := time.ParseInLocation(timestampLayout, r.Datetime, time.Local)
				So(err, ShouldBeNil)
				So(at.After(now), ShouldBeFalse)
				So(at.Before(now.Add(-72*time.Hour)), ShouldBeFalse)

				So(len(r.Doctors), ShouldBeBetweenOrEqual, 1, maxParticipants)
				seen := map[string]struct{}{}
				for _, d := range r.Doctors {
					So(people, ShouldContain, d)
					So(seen, ShouldNotContainKey, d)
					seen[d] = struct{}{}
				}
			}
			So(ids, ShouldHaveLength, 50)
		})

		Convey("Then resubmissions should reuse generated IDs", func() {
			for _, s := range submissions[50:] {
				found := false
				for _, r := range records {
					if r.ID == s.ID {
						found = true
						break
					}
				}
				So(found, ShouldBeTrue)
			}
		})
	})

	Convey("Given an empty configuration", t, func() {
		_, _, err := generateRecords(context.Background(), &Config{}, time.Now(), &Stats{})

		Convey("Then generation should be refused", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExpectedCounts(t *testing.T) {
	Convey("Given submissions with mixed outcomes", t, func() {
		a := Record{ID: "a", Doctors: []string{"X", "Y"}}
		b := Record{ID: "b", Doctors: []string{"Y"}}
		c := Record{ID: "c", Doctors: []string{"Z"}}
		records := []Record{a, b, c}
		submissions := []Record{a, b, c, a}
		results := []string{resultSuccess, resultDuplicate, resultFailed, resultDuplicate}

		Convey("Then acknowledged records should count once each", func() {
			So(expectedCounts(records, submissions, results), ShouldResemble, map[string]int{"X": 1, "Y": 2})
		})
	})
}

func TestVerifyCounts(t *testing.T) {
	Convey("Given expected counts", t, func() {
		expected := map[string]int{"X": 1, "Y": 2}

		Convey("Then an equal summary should pass", func() {
			summary := SummaryResponse{Counts: []CountEntry{{"X", 1}, {"Y", 2}}}
			So(verifyCounts(expected, summary, true), ShouldBeNil)
		})

		Convey("Then a larger count should only pass when not exact", func() {
			summary := SummaryResponse{Counts: []CountEntry{{"X", 3}, {"Y", 2}}}
			So(verifyCounts(expected, summary, false), ShouldBeNil)
			So(errors.Is(verifyCounts(expected, summary, true), errMismatch), ShouldBeTrue)
		})

		Convey("Then a missing person should fail", func() {
			summary := SummaryResponse{Counts: []CountEntry{{"Y", 2}}}
			So(errors.Is(verifyCounts(expected, summary, false), errMismatch), ShouldBeTrue)
		})
	})
}

func TestVerifyRanking(t *testing.T) {
	Convey("Given a fatigue ranking", t, func() {
		people := []string{"A", "B", "C", "D"}

		Convey("Then a consistent ranking should pass", func() {
			scores := []Entry{{1, "B", 2}, {2, "A", 1}, {2, "C", 1}, {4, "D", 0}}
			So(verifyRanking(scores, people), ShouldBeNil)
		})

		Convey("Then rising scores should fail", func() {
			scores := []Entry{{1, "B", 1}, {2, "A", 2}, {3, "C", 0}, {4, "D", 0}}
			So(errors.Is(verifyRanking(scores, people), errMismatch), ShouldBeTrue)
		})

		Convey("Then split ranks on a tie should fail", func() {
			scores := []Entry{{1, "B", 2}, {2, "A", 1}, {3, "C", 1}, {4, "D", 0}}
			So(errors.Is(verifyRanking(scores, people), errMismatch), ShouldBeTrue)
		})

		Convey("Then a missing person should fail", func() {
			scores := []Entry{{1, "B", 2}, {2, "A", 1}, {3, "C", 0}}
			So(errors.Is(verifyRanking(scores, people), errMismatch), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running duty log service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDBPath(filepath.Join(t.TempDir(), "dutylog.db")))
		So(svc.Start(ctx), ShouldBeNil)
		t.Cleanup(svc.Stop)

		srv := httptest.NewServer(api.NewServer(svc, svc).Handler(ctx))
		t.Cleanup(srv.Close)

		out := filepath.Join(t.TempDir(), "out", "records.csv")
		cfg := &Config{
			BaseURL:        srv.URL,
			NumRecords:     40,
			NumPeople:      5,
			Days:           3,
			DuplicateRatio: 0.25,
			Workers:        4,
			Timeout:        5 * time.Second,
			Reset:          true,
			OutputFile:     out,
		}

		Convey("When the test runs", func() {
			err := Run(ctx, cfg)

			Convey("Then it should verify cleanly", func() {
				So(err, ShouldBeNil)
			})

			Convey("Then every distinct record should be stored once", func() {
				logs, err := svc.Logs(ctx, "", "")
				So(err, ShouldBeNil)
				So(logs, ShouldHaveLength, 40)
			})

			Convey("Then the records should be saved as CSV", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				So(lines[0], ShouldEqual, "datetime,doctor,note")
				So(lines, ShouldHaveLength, 41)
			})
		})

		Convey("When the service is unreachable", func() {
			cfg.BaseURL = "http://127.0.0.1:1"
			cfg.Timeout = 200 * time.Millisecond

			Convey("Then the run should fail the health check", func() {
				So(Run(ctx, cfg), ShouldNotBeNil)
			})
		})
	})
}

package types_test

import (
	"testing"

	"github.com/okian/dutylog/internal/domain/model"
	types "github.com/okian/dutylog/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRank(t *testing.T) {
	Convey("Given sorted scores with a tie", t, func() {
		scores := []model.Score{
			{Person: "A", Value: 3},
			{Person: "B", Value: 1.5},
			{Person: "C", Value: 1.5},
			{Person: "D", Value: 0},
		}

		Convey("When ranking them", func() {
			entries := types.Rank(scores)

			Convey("Then tied scores should share a rank", func() {
				So(entries, ShouldResemble, []types.FatigueEntry{
					{Rank: 1, Person: "A", Score: 3},
					{Rank: 2, Person: "B", Score: 1.5},
					{Rank: 2, Person: "C", Score: 1.5},
					{Rank: 4, Person: "D", Score: 0},
				})
			})
		})

		Convey("When ranking nothing", func() {
			So(types.Rank(nil), ShouldBeEmpty)
		})
	})
}

func TestCounts(t *testing.T) {
	Convey("Given domain counts", t, func() {
		out := types.Counts([]model.Count{{Person: "A", Count: 2}})

		Convey("Then they should map one to one", func() {
			So(out, ShouldResemble, []types.CountEntry{{Person: "A", Count: 2}})
		})
	})
}

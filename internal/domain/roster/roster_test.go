package roster_test

import (
	"testing"

	"github.com/okian/dutylog/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given raw roster input", t, func() {
		in := []string{"  Tanaka ", "", "Sato", "Tanaka", "   ", "Abe"}

		Convey("When normalizing", func() {
			out := roster.Normalize(in)

			Convey("Then names should be trimmed, unique and ordered", func() {
				So(out, ShouldResemble, []string{"Abe", "Sato", "Tanaka"})
			})
		})

		Convey("When normalizing nothing", func() {
			So(roster.Normalize(nil), ShouldBeEmpty)
		})

		Convey("When names use kana", func() {
			out := roster.Normalize([]string{"すずき", "あべ", "かとう"})

			Convey("Then they should follow gojūon order", func() {
				So(out, ShouldResemble, []string{"あべ", "かとう", "すずき"})
			})
		})
	})
}

func TestMergeWithout(t *testing.T) {
	Convey("Given an existing roster", t, func() {
		current := []string{"Abe", "Sato"}

		Convey("When merging new names", func() {
			So(roster.Merge(current, []string{"Ito", "Sato"}), ShouldResemble, []string{"Abe", "Ito", "Sato"})
		})

		Convey("When removing a name", func() {
			So(roster.Without(current, " Sato "), ShouldResemble, []string{"Abe"})
			So(roster.Without(current, "Nobody"), ShouldResemble, current)
		})
	})
}

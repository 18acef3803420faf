package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/dutylog/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRecord(t *testing.T) {
	convey.Convey("Given a Record", t, func() {
		r := model.Record{
			ID:           "r-1",
			Timestamp:    "2025-03-01T18:30:00",
			Participants: []string{"佐藤", "Suzuki"},
			Note:         "night call",
		}

		convey.Convey("When checking participants", func() {
			convey.Convey("Then only listed people should match", func() {
				convey.So(r.HasParticipant("佐藤"), convey.ShouldBeTrue)
				convey.So(r.HasParticipant("Suzuki"), convey.ShouldBeTrue)
				convey.So(r.HasParticipant("suzuki"), convey.ShouldBeFalse)
				convey.So(model.Record{}.HasParticipant(""), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When encoding to JSON", func() {
			raw, err := json.Marshal(r)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the wire names of the log API should be used", func() {
				var m map[string]any
				convey.So(json.Unmarshal(raw, &m), convey.ShouldBeNil)
				convey.So(m["datetime"], convey.ShouldEqual, "2025-03-01T18:30:00")
				convey.So(m["doctors"], convey.ShouldHaveLength, 2)
				convey.So(m["note"], convey.ShouldEqual, "night call")
			})
		})
	})
}

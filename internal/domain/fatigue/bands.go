package fatigue

import (
	"math"

	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
)

// Band is an accepted band: clocks parsed and weight clamped.
type Band struct {
	Start  localtime.Clock
	End    localtime.Clock
	Weight float64
}

// Overnight reports whether the band spans midnight into the next day.
func (b Band) Overnight() bool {
	return b.End.Minutes() <= b.Start.Minutes()
}

// Model renders the band back into its configured form.
func (b Band) Model() model.Band {
	return model.Band{Start: b.Start.String(), End: b.End.String(), Weight: b.Weight}
}

// AcceptBand parses clocks tolerantly and clamps the weight to a finite,
// non-negative value. Zero-weight bands are kept.
func AcceptBand(in model.Band) Band {
	return Band{
		Start:  localtime.ParseClock(in.Start),
		End:    localtime.ParseClock(in.End),
		Weight: clampWeight(in.Weight),
	}
}

// AcceptBands accepts every band of in, preserving order.
func AcceptBands(in []model.Band) []Band {
	out := make([]Band, 0, len(in))
	for _, b := range in {
		out = append(out, AcceptBand(b))
	}
	return out
}

// Models renders accepted bands back into their configured form.
func Models(bands []Band) []model.Band {
	out := make([]model.Band, 0, len(bands))
	for _, b := range bands {
		out = append(out, b.Model())
	}
	return out
}

// DefaultBands returns the early-evening and overnight bands used when
// nothing has been configured.
func DefaultBands() []model.Band {
	return []model.Band{
		{Start: "17:00", End: "21:00", Weight: 1},
		{Start: "21:01", End: "09:00", Weight: 2},
	}
}

func clampWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

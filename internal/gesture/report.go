package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Case is a hand pose with the label the user meant.
type Case struct {
	Label     Label
	Landmarks detector.HandLandmarks
}

// LabelStats is the accuracy for one expected label.
type LabelStats struct {
	Label    Label   `json:"label"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Report summarizes how a classifier does on labelled cases.
type Report struct {
	Total    int          `json:"total"`
	Correct  int          `json:"correct"`
	Accuracy float64      `json:"accuracy"`
	PerLabel []LabelStats `json:"per_label"`
	// Confusion counts predictions per expected label.
	Confusion map[Label]map[Label]int `json:"confusion"`
	// SuggestedPinch is a pinch threshold that separates the click cases
	// from the rest, when SeparablePinch is true.
	SuggestedPinch float64 `json:"suggested_pinch,omitempty"`
	SeparablePinch bool    `json:"separable_pinch"`
}

// Evaluate classifies every case and tallies the results.
func Evaluate(c *Classifier, cases []Case) Report {
	r := Report{Confusion: make(map[Label]map[Label]int)}
	stats := make(map[Label]*LabelStats)

	for i := range cases {
		want := cases[i].Label
		got := c.Classify(&cases[i].Landmarks)

		s, ok := stats[want]
		if !ok {
			s = &LabelStats{Label: want}
			stats[want] = s
		}
		if r.Confusion[want] == nil {
			r.Confusion[want] = make(map[Label]int)
		}
		r.Confusion[want][got]++

		r.Total++
		s.Total++
		if got == want {
			r.Correct++
			s.Correct++
		}
	}

	r.Accuracy = ratio(r.Correct, r.Total)
	for _, l := range Labels {
		if s, ok := stats[l]; ok {
			s.Accuracy = ratio(s.Correct, s.Total)
			r.PerLabel = append(r.PerLabel, *s)
		}
	}

	r.SuggestedPinch, r.SeparablePinch = SuggestPinch(c, cases)
	return r
}

// SuggestPinch returns the midpoint between the widest click pinch and the
// narrowest non-click pinch. It reports false when there are no cases of
// either kind or the two ranges overlap.
func SuggestPinch(c *Classifier, cases []Case) (float64, bool) {
	widestClick := math.Inf(-1)
	narrowestOther := math.Inf(1)

	for i := range cases {
		d := c.PinchDistance(&cases[i].Landmarks)
		if cases[i].Label == Click {
			widestClick = math.Max(widestClick, d)
		} else {
			narrowestOther = math.Min(narrowestOther, d)
		}
	}

	if math.IsInf(widestClick, -1) || math.IsInf(narrowestOther, 1) || widestClick >= narrowestOther {
		return 0, false
	}
	return (widestClick + narrowestOther) / 2, true
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

package transcript

import (
	"fmt"
	"math"
	"strings"
)

// Title is the heading line of every rendered transcript document.
const Title = "# Meeting Transcript"

// run accumulates a maximal stretch of consecutive words attributed to the
// same speaker. Punctuation glues onto the last word without breaking the
// run. open distinguishes an empty accumulator from a run whose speaker
// resolved to "".
type run struct {
	speaker string
	words   []string
	start   float64
	end     float64
	open    bool
}

// Render converts a parsed transcription result into the speaker-attributed
// markdown document. Pure and deterministic: one pass over the items, with
// an independent first-match speaker lookup per word.
func Render(res *Result) string {
	var lines []string
	var cur run

	for _, it := range res.Items {
		switch it.Kind {
		case Word:
			speaker := speakerAt(res.Segments, it.Start)
			if !cur.open || speaker != cur.speaker {
				if line, ok := cur.flush(); ok {
					lines = append(lines, line)
				}
				cur = run{
					speaker: speaker,
					words:   []string{it.Text},
					start:   it.Start,
					end:     it.End,
					open:    true,
				}
			} else {
				cur.words = append(cur.words, it.Text)
				cur.end = it.End
			}
		case Punctuation:
			// Glue onto the preceding word; drop if nothing precedes.
			if len(cur.words) > 0 {
				cur.words[len(cur.words)-1] += it.Text
			}
		}
	}

	if line, ok := cur.flush(); ok {
		lines = append(lines, line)
	}

	return Title + "\n\n" + strings.Join(lines, "\n\n")
}

// speakerAt resolves the speaker label for a word starting at t. First
// segment in input order whose closed interval contains t wins; overlap
// tightness is irrelevant. Returns "" when no segment matches.
func speakerAt(segments []Segment, t float64) string {
	for _, s := range segments {
		if s.Start <= t && t <= s.End {
			return s.Label
		}
	}
	return ""
}

// flush finalizes the run into an output line. A run with no accumulated
// words produces nothing, regardless of its speaker.
func (r *run) flush() (string, bool) {
	if len(r.words) == 0 {
		return "", false
	}
	return fmt.Sprintf("[speaker: %s][%s-%s]: %s",
		r.speaker, clock(r.start), clock(r.end), strings.Join(r.words, " ")), true
}

// clock formats seconds as zero-padded MM:SS, truncating fractions.
func clock(seconds float64) string {
	min := int(math.Floor(seconds / 60))
	sec := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d", min, sec)
}

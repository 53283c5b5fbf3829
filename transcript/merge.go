package transcript

// Window is everything the models returned for one window of audio.
type Window struct {
	// Offset is the start of the window in the recording, in seconds.
	Offset      float64
	Turns       []Turn
	Translated  []TextSegment
	Transcribed []TextSegment
	// Lang is the language detected for the window.
	Lang string
}

// Overlap is the length of the intersection of [aStart, aEnd] and
// [bStart, bEnd], or 0 when they do not intersect.
func Overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	return max(0, min(aEnd, bEnd)-max(aStart, bStart))
}

// MatchSpeaker returns the speaker of the turn overlapping [start, end] the
// most. On equal overlap the earlier turn wins. Unknown when no turn
// overlaps by a positive amount.
func MatchSpeaker(turns []Turn, start, end float64) string {
	speaker := Unknown
	best := 0.0
	for _, t := range turns {
		if o := Overlap(start, end, t.Start, t.End); o > best {
			best = o
			speaker = t.Speaker
		}
	}
	return speaker
}

// pairTexts returns, for each translated segment, the original-language text
// that goes with it. Equal-length lists are paired by position; otherwise by
// largest time overlap, with "" when nothing overlaps.
func pairTexts(translated, transcribed []TextSegment) []string {
	texts := make([]string, len(translated))
	if len(translated) == len(transcribed) {
		for i := range translated {
			texts[i] = transcribed[i].Text
		}
		return texts
	}
	for i, tr := range translated {
		best := 0.0
		for _, src := range transcribed {
			if o := Overlap(tr.Start, tr.End, src.Start, src.End); o > best {
				best = o
				texts[i] = src.Text
			}
		}
	}
	return texts
}

// MergeWindow builds the transcript segments of one window, shifted by the
// window offset.
func MergeWindow(w Window) []Segment {
	texts := pairTexts(w.Translated, w.Transcribed)
	out := make([]Segment, 0, len(w.Translated))
	for i, tr := range w.Translated {
		out = append(out, Segment{
			Start:   w.Offset + tr.Start,
			End:     w.Offset + tr.End,
			Trans:   tr.Text,
			Text:    texts[i],
			Lang:    w.Lang,
			Speaker: MatchSpeaker(w.Turns, tr.Start, tr.End),
		})
	}
	return out
}

// Merge concatenates the merged windows in order.
func Merge(windows []Window) []Segment {
	var out []Segment
	for _, w := range windows {
		out = append(out, MergeWindow(w)...)
	}
	return out
}

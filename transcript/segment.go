// Package transcript turns a finished recording into speaker-attributed,
// time-aligned segments: the recording is split into fixed windows, each
// window is diarized and transcribed, and the results are merged.
package transcript

// Unknown is the speaker of a segment no diarization turn overlaps.
const Unknown = "UNKNOWN"

// Segment is one line of the final transcript. Times are seconds from the
// start of the recording.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Trans is the English translation.
	Trans   string `json:"trans"`
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	Speaker string `json:"speaker"`
}

// Turn is a diarization interval, relative to its window.
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// TextSegment is a model output segment, relative to its window.
type TextSegment struct {
	Start float64
	End   float64
	Text  string
}

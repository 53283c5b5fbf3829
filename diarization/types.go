package diarization

// Request is one window of decoded audio.
type Request struct {
	Audio      []float32
	SampleRate int
	// NumSpeakers pins the speaker count; 0 lets the model decide.
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Response lists speaker turns relative to the start of the window.
type Response struct {
	Turns       []Turn
	NumSpeakers int
}

type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

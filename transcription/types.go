package transcription

// Task selects what the model produces.
type Task string

const (
	// TaskTranscribe returns text in the spoken language.
	TaskTranscribe Task = "transcribe"
	// TaskTranslate returns English text.
	TaskTranslate Task = "translate"
)

// Request is one window of decoded audio.
type Request struct {
	// Audio is mono float samples in [-1, 1).
	Audio      []float32
	SampleRate int
	Task       Task
	// Language is a hint; empty means detect.
	Language string
}

// Response is the model output for one window. Segment times are relative
// to the start of the window.
type Response struct {
	Segments []Segment
	// Language is the detected language code.
	Language string
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

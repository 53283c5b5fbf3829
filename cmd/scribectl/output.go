package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kbukum/scribe/meeting"
	"github.com/kbukum/scribe/recording"
)

const timeLayout = "2006-01-02 15:04:05"

// output renders command results as text or, with --json, as JSON.
type output struct {
	w    io.Writer
	json bool
}

func newOutput(w io.Writer, asJSON bool) *output {
	return &output{w: w, json: asJSON}
}

func (o *output) writeJSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *output) Line(format string, args ...any) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

func (o *output) Meeting(m *meeting.Meeting) error {
	if o.json {
		return o.writeJSON(m)
	}
	o.Line("ID:            %s", m.ID)
	o.Line("Title:         %s", m.Title)
	o.Line("Started:       %s", m.StartedAt.Local().Format(timeLayout))
	if m.StoppedAt != nil {
		o.Line("Stopped:       %s (%s)", m.StoppedAt.Local().Format(timeLayout), m.StoppedAt.Sub(m.StartedAt).Round(time.Second))
	} else {
		o.Line("Stopped:       - (recording)")
	}
	o.Line("Recording:     %s", readiness(m.RecordingReady, m.RecordingFile))
	o.Line("Transcription: %s", readiness(m.TranscriptionReady, fmt.Sprintf("%d segments", len(m.TranscriptionSegments))))

	if len(m.TranscriptionSegments) > 0 {
		o.Line("")
		for _, s := range m.TranscriptionSegments {
			o.Line("[%s - %s] %s: %s", clock(s.Start), clock(s.End), s.Speaker, s.Text)
			if s.Trans != "" && s.Trans != s.Text {
				o.Line("    (%s) %s", s.Lang, s.Trans)
			}
		}
	}
	return nil
}

func (o *output) Meetings(ms []meeting.Meeting) error {
	if o.json {
		return o.writeJSON(ms)
	}
	if len(ms) == 0 {
		o.Line("No meetings")
		return nil
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTARTED\tSTATE\tRECORDING\tTRANSCRIPT")
	for i := range ms {
		m := &ms[i]
		state := "stopped"
		if m.Active() {
			state = "active"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Title, m.StartedAt.Local().Format(timeLayout), state,
			yesNo(m.RecordingReady), yesNo(m.TranscriptionReady))
	}
	return tw.Flush()
}

func (o *output) Status(agentID string, s *recording.Status) error {
	if o.json {
		return o.writeJSON(struct {
			Agent string `json:"agent"`
			*recording.Status
		}{agentID, s})
	}
	if s == nil {
		o.Line("Agent %s has not published a status", agentID)
		return nil
	}
	o.Line("Agent:   %s", agentID)
	o.Line("State:   %s", s.State)
	if s.MeetingID != "" {
		o.Line("Meeting: %s", s.MeetingID)
	}
	if s.SinkKey != "" {
		o.Line("Sink:    %s", s.SinkKey)
	}
	if s.StartedAt != nil {
		o.Line("Since:   %s", s.StartedAt.Local().Format(timeLayout))
	}
	o.Line("Updated: %s", s.UpdatedAt.Local().Format(timeLayout))
	return nil
}

// clock formats seconds as m:ss, or h:mm:ss past the hour.
func clock(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func readiness(ready bool, detail string) string {
	if !ready {
		return "pending"
	}
	return "ready, " + detail
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

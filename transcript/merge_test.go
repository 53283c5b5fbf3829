package transcript

import (
	"encoding/json"
	"testing"
)

func TestMatchSpeaker(t *testing.T) {
	tests := []struct {
		name       string
		turns      []Turn
		start, end float64
		want       string
	}{
		{
			name:  "largest overlap wins",
			turns: []Turn{{8, 12, "A"}, {12, 20, "B"}},
			start: 10, end: 15,
			want: "B",
		},
		{
			name:  "no overlap",
			turns: []Turn{{5, 8, "A"}, {9, 12, "B"}},
			start: 0, end: 1,
			want: Unknown,
		},
		{
			name:  "touching is not overlap",
			turns: []Turn{{1, 3, "A"}},
			start: 0, end: 1,
			want: Unknown,
		},
		{
			name:  "tie keeps first turn",
			turns: []Turn{{0, 2, "A"}, {2, 4, "B"}},
			start: 1, end: 3,
			want: "A",
		},
		{
			name:  "no turns",
			start: 0, end: 5,
			want: Unknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchSpeaker(tt.turns, tt.start, tt.end); got != tt.want {
				t.Errorf("MatchSpeaker() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeWindow_AppliesOffset(t *testing.T) {
	w := Window{
		Offset:      60,
		Lang:        "de",
		Turns:       []Turn{{0, 3, "SPEAKER_00"}, {3, 10, "SPEAKER_01"}},
		Translated:  []TextSegment{{2, 4, "good morning"}},
		Transcribed: []TextSegment{{2, 4, "guten Morgen"}},
	}
	got := MergeWindow(w)
	if len(got) != 1 {
		t.Fatalf("segments = %d, want 1", len(got))
	}
	want := Segment{Start: 62, End: 64, Trans: "good morning", Text: "guten Morgen", Lang: "de", Speaker: "SPEAKER_00"}
	if got[0] != want {
		t.Errorf("segment = %+v, want %+v", got[0], want)
	}
}

func TestMergeWindow_PairsByOverlapWhenCountsDiffer(t *testing.T) {
	w := Window{
		Translated: []TextSegment{{0, 3, "one"}, {3, 6, "two"}, {20, 21, "three"}},
		Transcribed: []TextSegment{
			{0, 4, "eins und"},
			{4, 7, "zwei"},
		},
	}
	got := MergeWindow(w)
	wantText := []string{"eins und", "zwei", ""}
	if len(got) != len(wantText) {
		t.Fatalf("segments = %d, want %d", len(got), len(wantText))
	}
	for i, want := range wantText {
		if got[i].Text != want {
			t.Errorf("segment %d text = %q, want %q", i, got[i].Text, want)
		}
		if got[i].Speaker != Unknown {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, Unknown)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	windows := []Window{
		{
			Offset:      0,
			Lang:        "en",
			Turns:       []Turn{{0, 10, "A"}},
			Translated:  []TextSegment{{1, 2, "hi"}, {5, 7, "there"}},
			Transcribed: []TextSegment{{1, 2, "hi"}, {5, 7, "there"}},
		},
		{
			Offset:      30,
			Lang:        "en",
			Turns:       []Turn{{0, 5, "B"}},
			Translated:  []TextSegment{{0.5, 1.5, "bye"}},
			Transcribed: []TextSegment{{0.5, 1.5, "bye"}},
		},
	}
	first, err := json.Marshal(Merge(windows))
	if err != nil {
		t.Fatal(err)
	}
	second, _ := json.Marshal(Merge(windows))
	if string(first) != string(second) {
		t.Errorf("merge not deterministic:\n%s\n%s", first, second)
	}

	got := Merge(windows)
	if len(got) != 3 || got[2].Start != 30.5 || got[2].Speaker != "B" {
		t.Errorf("merged = %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Errorf("segments out of order at %d", i)
		}
	}
}

func TestSegment_JSONFields(t *testing.T) {
	b, err := json.Marshal(Segment{Start: 1, End: 2, Trans: "a", Text: "b", Lang: "c", Speaker: "d"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"start":1,"end":2,"trans":"a","text":"b","lang":"c","speaker":"d"}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

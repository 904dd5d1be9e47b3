package track

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseNote(t *testing.T) {
	cases := []struct {
		in   string
		key  int
		ok   bool
		cell Note
	}{
		{"C4", 60, true, "C4"},
		{"A4", 69, true, "A4"},
		{"F#3", 54, true, "F#3"},
		{"B8", 119, true, "B8"},
		{"C0", 12, true, "C0"},
		{"REST", 0, false, Rest},
		{"", 0, false, Empty},
	}
	for _, tc := range cases {
		n, err := ParseNote(tc.in)
		if err != nil {
			t.Fatalf("ParseNote(%q) failed: %v", tc.in, err)
		}
		if n != tc.cell {
			t.Fatalf("ParseNote(%q) = %q, want %q", tc.in, n, tc.cell)
		}
		key, ok := n.MIDI()
		if ok != tc.ok || key != tc.key {
			t.Fatalf("%q.MIDI() = %d,%v want %d,%v", tc.in, key, ok, tc.key, tc.ok)
		}
	}
	for _, bad := range []string{"H4", "C", "C#", "E#4", "Db4", "C9", "C-1", "C44", "rest"} {
		if _, err := ParseNote(bad); err == nil {
			t.Fatalf("ParseNote(%q) should fail", bad)
		}
	}
}

func TestNoteFreqAndTranspose(t *testing.T) {
	if got := Note("A4").Freq(); got != 440 {
		t.Fatalf("A4 freq = %v, want 440", got)
	}
	if got := Rest.Freq(); got != 0 {
		t.Fatalf("rest freq = %v, want 0", got)
	}
	if got := Note("B3").Transpose(1); got != "C4" {
		t.Fatalf("B3+1 = %q, want C4", got)
	}
	if got := Note("B8").Transpose(1); got != "B8" {
		t.Fatalf("out of range transpose = %q, want B8", got)
	}
	if got := Rest.Transpose(3); got != Rest {
		t.Fatalf("rest transpose = %q", got)
	}
}

func TestTrackEditing(t *testing.T) {
	tr := New("Lead", Square, 1.5)
	if tr.Volume() != 1 {
		t.Fatalf("volume = %v, want clamp to 1", tr.Volume())
	}
	if tr.HasNotes() {
		t.Fatal("new track should be empty")
	}
	if !tr.SetNote(3, "C4") || tr.SetNote(32, "C4") || tr.SetNote(-1, "C4") {
		t.Fatal("SetNote range check wrong")
	}
	tr.SetNote(4, Rest)
	if tr.Note(3) != "C4" || tr.Note(4) != Rest || tr.Note(40) != Empty {
		t.Fatalf("cells = %q %q %q", tr.Note(3), tr.Note(4), tr.Note(40))
	}
	clone := tr.Clone()
	tr.RemoveNote(3)
	if clone.Note(3) != "C4" {
		t.Fatal("clone shares sequence storage")
	}
	tr.Clear()
	if tr.HasNotes() || !clone.HasNotes() {
		t.Fatal("clear affected the wrong track")
	}
	for _, bad := range []Note{"H9", "C9", "E#4", "rest"} {
		if tr.SetNote(5, bad) {
			t.Fatalf("SetNote accepted %q", bad)
		}
	}
	if tr.Note(5) != Empty {
		t.Fatalf("rejected note stored: %q", tr.Note(5))
	}
	only := New("Perc", WhiteSnare, 0.5)
	only.SetNote(0, Rest)
	if !only.HasNotes() {
		t.Fatal("a rest counts as content")
	}
}

func TestTrackDataRoundTrip(t *testing.T) {
	tr := New("Bass", FMBass, 0.8)
	tr.Muted = true
	tr.SetNote(0, "C2")
	tr.SetNote(2, Rest)
	tr.SetNote(31, "G#2")
	d := tr.Export()

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Data
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, d) {
		t.Fatalf("json round trip = %+v, want %+v", back, d)
	}
	got, err := FromData(back)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if !reflect.DeepEqual(got.Export(), d) {
		t.Fatal("FromData(Export()) differs")
	}
}

func TestEmptyCellsSerializeAsNull(t *testing.T) {
	d := New("x", Sine, 0.5).Export()
	d.Sequence[1] = "E4"
	raw, err := json.Marshal(d.Sequence[:3])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `[null,"E4",null]` {
		t.Fatalf("json = %s", raw)
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		t.Fatalf("yaml marshal: %v", err)
	}
	var back Data
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, d) {
		t.Fatalf("yaml round trip = %+v, want %+v", back, d)
	}
}

func TestFromDataRejectsMalformed(t *testing.T) {
	good := New("ok", Square, 0.5).Export()
	short := good.Clone()
	short.Sequence = short.Sequence[:16]
	loud := good.Clone()
	loud.Volume = 2
	bad := good.Clone()
	bad.Sequence[5] = "Q9"
	for name, d := range map[string]Data{"short": short, "loud": loud, "badnote": bad} {
		if _, err := FromData(d); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: err = %v, want ErrInvalid", name, err)
		}
	}
	var n Note
	if err := json.Unmarshal([]byte(`"X1"`), &n); err == nil {
		t.Fatal("unmarshal of bad note should fail")
	}
}

func TestInstrumentEnum(t *testing.T) {
	if len(Instruments) != 24 {
		t.Fatalf("instrument count = %d, want 24", len(Instruments))
	}
	if !HiHat.Valid() || Instrument("theremin").Valid() {
		t.Fatal("Valid mismatch")
	}
	if DigitalRain.Next() != Square || Instrument("x").Next() != Square {
		t.Fatal("Next should wrap to square")
	}
}

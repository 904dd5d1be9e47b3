package midiexport

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/groove"
	"github.com/cbegin/groovebox-go/internal/sequencer"
	"github.com/cbegin/groovebox-go/internal/timing"
	"github.com/cbegin/groovebox-go/internal/track"
)

func snapshot() sequencer.Snapshot {
	lead := track.New("Lead", track.Square, 0.7)
	lead.SetNote(0, "C4")
	lead.SetNote(4, "C4")
	perc := track.New("Perc", track.WhiteSnare, 1)
	perc.SetNote(2, track.Rest)
	muted := track.New("Muted", track.Sine, 1)
	muted.SetNote(0, "A4")
	muted.Muted = true
	return sequencer.Snapshot{
		Tracks:         []track.Data{lead.Export(), perc.Export(), muted.Export()},
		Tempo:          120,
		StepResolution: timing.Res16n,
		Swing:          groove.New().Export(),
	}
}

func data(patterns ...chain.Pattern) chain.Data {
	return chain.Data{Patterns: patterns, Loop: true}
}

type hit struct {
	at           uint32
	ch, key, vel uint8
}

func noteOns(t *testing.T, sm *smf.SMF, trackIdx int) []hit {
	t.Helper()
	var out []hit
	var abs uint32
	for _, ev := range sm.Tracks[trackIdx] {
		abs += ev.Delta
		var ch, key, vel uint8
		if midi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) {
			out = append(out, hit{abs, ch, key, vel})
		}
	}
	return out
}

func roundTrip(t *testing.T, d chain.Data, passes int) *smf.SMF {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, d, passes); err != nil {
		t.Fatalf("write: %v", err)
	}
	sm, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return sm
}

func TestWritesTracksAndNotes(t *testing.T) {
	p := chain.Pattern{ID: "a", Name: "A", Data: snapshot(), Length: 8, Enabled: true}
	sm := roundTrip(t, data(p), 2)
	if len(sm.Tracks) != 4 {
		t.Fatalf("tracks = %d, want conductor + 3", len(sm.Tracks))
	}
	var bpm float64
	found := false
	for _, ev := range sm.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			found = true
		}
	}
	if !found || bpm != 120 {
		t.Fatalf("tempo meta = %v (found %v)", bpm, found)
	}

	lead := noteOns(t, sm, 1)
	want := []hit{{0, 0, 60, 89}, {960, 0, 60, 89}, {1920, 0, 60, 89}, {2880, 0, 60, 89}}
	if !reflect.DeepEqual(lead, want) {
		t.Fatalf("lead notes = %v, want %v", lead, want)
	}
	perc := noteOns(t, sm, 2)
	if len(perc) != 2 || perc[0] != (hit{480, DrumChannel, 38, 127}) {
		t.Fatalf("rest on a drum track = %v", perc)
	}
	if muted := noteOns(t, sm, 3); len(muted) != 0 {
		t.Fatalf("muted track wrote %d notes", len(muted))
	}
}

func TestSwingAndAccentsApplied(t *testing.T) {
	snap := snapshot()
	snap.Tracks[0].Sequence[1] = "D4"
	snap.Swing.SwingAmount = 50
	snap.Swing.GrooveType = groove.Custom
	snap.Swing.AccentPattern = []float64{1, 0.5}
	snap.Swing.HumanizeAmount = 100
	p := chain.Pattern{ID: "a", Name: "A", Data: snap, Length: 4, Enabled: true}
	lead := noteOns(t, roundTrip(t, data(p), 1), 1)
	// 0.02s of swing at 120 bpm is 38.4 ticks
	if len(lead) != 2 || lead[1].at != 240+38 || lead[1].key != 62 {
		t.Fatalf("swung note = %v", lead)
	}
	if lead[1].vel != velocity(0.7*0.5) {
		t.Fatalf("accented velocity = %d, want %d", lead[1].vel, velocity(0.35))
	}
}

func TestOverlappingNotesCut(t *testing.T) {
	evs := events([]note{
		{start: 0, end: 480, ch: 0, key: 60, vel: 100},
		{start: 240, end: 720, ch: 0, key: 60, vel: 100},
	})
	var offs []uint32
	for _, ev := range evs {
		var ch, key, vel uint8
		if ev.msg.GetNoteOff(&ch, &key, &vel) {
			offs = append(offs, ev.at)
		}
	}
	if !reflect.DeepEqual(offs, []uint32{240, 720}) {
		t.Fatalf("note offs at %v, want [240 720]", offs)
	}
	if !evs[1].off || evs[1].at != 240 {
		t.Fatal("note off must come before the retrigger at the same tick")
	}
}

func TestSkipsDisabledAndRejectsEmpty(t *testing.T) {
	a := chain.Pattern{ID: "a", Name: "A", Data: snapshot(), Length: 4, Enabled: false}
	if err := Write(&bytes.Buffer{}, data(a), 1); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
	b := a
	b.ID, b.Enabled = "b", true
	b.Data.Tempo = 90
	sm := roundTrip(t, data(a, b), 1)
	var bpm float64
	for _, ev := range sm.Tracks[0] {
		ev.Message.GetMetaTempo(&bpm)
	}
	if math.Abs(bpm-90) > 0.01 {
		t.Fatalf("tempo = %v, want 90 from the only enabled pattern", bpm)
	}
}

func TestChannelsSkipDrums(t *testing.T) {
	for i, want := range map[int]uint8{0: 0, 8: 8, 9: 10, 14: 15, 15: 0} {
		if got := channelFor(i); got != want {
			t.Fatalf("channelFor(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestInvalidGrooveFails(t *testing.T) {
	snap := snapshot()
	snap.Swing.SwingAmount = 150
	p := chain.Pattern{ID: "a", Name: "A", Data: snap, Length: 4, Enabled: true}
	if _, err := Build(data(p), 1); !errors.Is(err, groove.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

package sequencer

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/groovebox-go/internal/timing"
	"github.com/cbegin/groovebox-go/internal/track"
)

func TestStartRequiresInitializedLayer(t *testing.T) {
	layer := newLayer()
	layer.uninitialized = true
	tr := NewTransport(New(layer))
	if err := tr.Start(0); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start err = %v, want ErrNotInitialized", err)
	}
	if tr.Running() {
		t.Fatal("transport running after failed start")
	}
	layer.uninitialized = false
	if err := tr.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Start(0); !errors.Is(err, ErrRunning) {
		t.Fatalf("second Start err = %v, want ErrRunning", err)
	}
}

func TestAdvanceFiresTicksOnSchedule(t *testing.T) {
	layer := newLayer()
	seq := New(layer, WithTracks(track.New("Hat", track.HiHat, 1)))
	for i := 0; i < track.Length; i++ {
		seq.SetNote(0, i, "C4")
	}
	tr := NewTransport(seq)
	if err := tr.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// 16n at 120 bpm = 0.125s: ticks at 1.0, 1.125, 1.25, 1.375
	if n := tr.Advance(1.4); n != 4 {
		t.Fatalf("fired %d ticks, want 4", n)
	}
	for i, trig := range layer.triggers {
		if want := 1 + 0.125*float64(i); math.Abs(trig.at-want) > 1e-12 {
			t.Fatalf("tick %d at %v, want %v", i, trig.at, want)
		}
	}
	if n := tr.Advance(1.4); n != 0 {
		t.Fatalf("re-advancing to the same time fired %d", n)
	}

	seq.SetTempo(60)
	tr.Advance(1.5 + 0.25 + 1e-9)
	got := layer.triggers[len(layer.triggers)-1].at
	if math.Abs(got-1.75) > 1e-12 {
		t.Fatalf("tick after tempo change at %v, want 1.75", got)
	}
	if tr.Ticks() != 6 || seq.CurrentStep() != 6 {
		t.Fatalf("ticks=%d step=%d, want 6/6", tr.Ticks(), seq.CurrentStep())
	}
}

func TestStopCancelsAndRewinds(t *testing.T) {
	layer := newLayer()
	seq := New(layer)
	tr := NewTransport(seq)
	var states []State
	tr.OnState(func(s State) { states = append(states, s) })
	var steps []int
	seq.OnStep(func(s int) { steps = append(steps, s) })

	tr.Start(0)
	tr.Advance(0.3)
	tr.Stop()
	if layer.cancels != 1 {
		t.Fatalf("cancels = %d, want 1", layer.cancels)
	}
	if seq.CurrentStep() != 0 || steps[len(steps)-1] != 0 {
		t.Fatalf("step after stop = %d, last notified %d", seq.CurrentStep(), steps[len(steps)-1])
	}
	if n := tr.Advance(10); n != 0 {
		t.Fatalf("%d ticks fired after stop", n)
	}
	if len(states) != 2 || states[0] != Running || states[1] != Stopped {
		t.Fatalf("states = %v", states)
	}
}

func TestResolutionLatchedAtStart(t *testing.T) {
	seq := New(newLayer(), WithTracks())
	tr := NewTransport(seq)
	tr.Start(0)
	seq.SetStepResolution(timing.Res8n)
	tr.Advance(0.3)
	if tr.Ticks() != 3 {
		t.Fatalf("ticks = %d, want 3 at the 16n cadence", tr.Ticks())
	}
	tr.Stop()
	tr.Start(0)
	tr.Advance(0.3)
	if tr.Resolution() != timing.Res8n || tr.Ticks() != 2 {
		t.Fatalf("res=%s ticks=%d, want 8n cadence with 2 ticks", tr.Resolution(), tr.Ticks())
	}
}

func TestStartBoundedStopsAfterExactTicks(t *testing.T) {
	layer := newLayer()
	seq := New(layer)
	tr := NewTransport(seq)
	if err := tr.StartBounded(0, 0); err == nil {
		t.Fatal("zero tick bounded run should fail")
	}
	if err := tr.StartBounded(0, track.Length); err != nil {
		t.Fatalf("StartBounded: %v", err)
	}
	if n := tr.Advance(100); n != track.Length {
		t.Fatalf("fired %d ticks, want %d", n, track.Length)
	}
	if tr.Running() {
		t.Fatal("bounded run still running")
	}
	if layer.cancels != 0 {
		t.Fatal("bounded run should not cancel scheduled audio")
	}
}

type glue struct {
	seq   *Sequencer
	tr    *Transport
	after int
}

func (g *glue) PlayStep(at float64) {
	g.seq.PlayStep(at)
	g.after++
	if g.after == 3 {
		g.tr.Finish()
	}
}

func TestStepperGlueCanFinish(t *testing.T) {
	seq := New(newLayer())
	g := &glue{seq: seq}
	tr := NewTransport(seq, WithStepper(g))
	g.tr = tr
	tr.Start(0)
	if n := tr.Advance(10); n != 3 {
		t.Fatalf("fired %d ticks, want 3", n)
	}
	if tr.Running() || seq.CurrentStep() != 0 {
		t.Fatalf("running=%v step=%d after finish", tr.Running(), seq.CurrentStep())
	}
}

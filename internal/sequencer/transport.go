package sequencer

import (
	"fmt"

	"github.com/cbegin/groovebox-go/internal/notify"
	"github.com/cbegin/groovebox-go/internal/timing"
)

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Stepper is called once per tick with the tick's scheduled time.
type Stepper interface {
	PlayStep(at float64)
}

type TransportOption func(*Transport)

// WithStepper routes ticks through st instead of straight to the
// sequencer, so callers can run glue after each step.
func WithStepper(st Stepper) TransportOption {
	return func(t *Transport) {
		if st != nil {
			t.stepper = st
		}
	}
}

// Transport schedules sequencer ticks on an external clock. The owner of
// the clock calls Advance with the time up to which ticks should fire.
type Transport struct {
	seq     *Sequencer
	stepper Stepper
	state   State
	res     timing.Resolution
	next    float64
	ticks   int
	limit   int
	states  notify.Subject[State]
}

func NewTransport(seq *Sequencer, opts ...TransportOption) *Transport {
	t := &Transport{seq: seq, stepper: seq}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) State() State  { return t.state }
func (t *Transport) Running() bool { return t.state == Running }

// Ticks is the number of ticks fired since the last start.
func (t *Transport) Ticks() int { return t.ticks }

// NextTick is the scheduled time of the next tick.
func (t *Transport) NextTick() float64 { return t.next }

// Resolution is the subdivision latched at the last start.
func (t *Transport) Resolution() timing.Resolution { return t.res }

// OnState subscribes to Running/Stopped transitions.
func (t *Transport) OnState(fn func(State)) (unsubscribe func()) {
	return t.states.Subscribe(fn)
}

// Start begins ticking at time at. The step resolution is latched here.
func (t *Transport) Start(at float64) error {
	return t.start(at, 0)
}

// StartBounded fires exactly ticks ticks, then finishes by itself without
// cutting off audio already scheduled.
func (t *Transport) StartBounded(at float64, ticks int) error {
	if ticks <= 0 {
		return fmt.Errorf("sequencer: bounded run needs a positive tick count, got %d", ticks)
	}
	return t.start(at, ticks)
}

func (t *Transport) start(at float64, limit int) error {
	if t.state == Running {
		return ErrRunning
	}
	if !t.seq.layer.Initialized() {
		return ErrNotInitialized
	}
	t.res = t.seq.resolution
	t.seq.active = t.res
	t.next = at
	t.ticks = 0
	t.limit = limit
	t.setState(Running)
	return nil
}

// Advance fires every tick scheduled before until and returns how many
// fired. The interval is recomputed from the live tempo after each tick.
func (t *Transport) Advance(until float64) int {
	fired := 0
	for t.state == Running && t.next < until {
		at := t.next
		t.next += t.res.Seconds(t.seq.tempo)
		t.ticks++
		fired++
		t.stepper.PlayStep(at)
		if t.limit > 0 && t.ticks >= t.limit && t.state == Running {
			t.Finish()
		}
	}
	return fired
}

// Stop halts ticking, cancels every pending trigger and volume revert in
// the instrument layer and rewinds the sequencer to step 0.
func (t *Transport) Stop() {
	t.seq.layer.Cancel()
	t.halt()
}

// Finish halts ticking like Stop but lets already scheduled notes play out.
func (t *Transport) Finish() {
	t.halt()
}

func (t *Transport) halt() {
	wasRunning := t.state == Running
	t.state = Stopped
	t.seq.ResetStep()
	if wasRunning {
		t.states.Publish(Stopped)
	}
}

func (t *Transport) setState(s State) {
	t.state = s
	t.states.Publish(s)
}

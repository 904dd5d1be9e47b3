package instrument

import (
	"fmt"

	"github.com/cbegin/groovebox-go/internal/effects"
	"github.com/cbegin/groovebox-go/internal/track"
)

type Osc int

const (
	OscSine Osc = iota
	OscSquare
	OscSawtooth
	OscTriangle
	OscPulse
	OscFatSaw
	OscWhite
	OscPink
	OscBrown
)

// Noise reports whether o ignores pitch.
func (o Osc) Noise() bool { return o >= OscWhite }

// Envelope times are in seconds; Sustain is a level in [0,1].
type Envelope struct {
	Attack, Decay, Sustain, Release float64
}

// Sweep is an LFO moving a parameter between Lo and Hi at RateHz.
type Sweep struct {
	RateHz, Lo, Hi float64
}

type FM struct {
	Harmonicity float64
	Index       float64
	ModOsc      Osc
	ModEnv      Envelope
	IndexSweep  *Sweep
}

type Filter struct {
	Mode   effects.FilterMode
	Cutoff float64
	Q      float64
	Poles  int
	Sweep  *Sweep
}

// Preset is the construction recipe for one instrument kind.
type Preset struct {
	Osc       Osc
	Width     float64 // pulse duty
	PWM       *Sweep
	Env       Envelope
	FM        *FM
	Filter    *Filter
	Chorus    bool
	CrushBits int
	ReverbSec float64
}

// Percussive presets trigger on any non-empty cell, rests included.
func (p Preset) Percussive() bool { return p.Osc.Noise() }

func (p Preset) validate() error {
	env := func(name string, e Envelope) error {
		if e.Attack < 0 || e.Decay < 0 || e.Release < 0 || e.Sustain < 0 || e.Sustain > 1 {
			return fmt.Errorf("%s envelope %+v out of range", name, e)
		}
		return nil
	}
	if err := env("amp", p.Env); err != nil {
		return err
	}
	if p.Osc < OscSine || p.Osc > OscBrown {
		return fmt.Errorf("unknown oscillator %d", p.Osc)
	}
	if p.Osc == OscPulse && (p.Width <= 0 || p.Width >= 1) && p.PWM == nil {
		return fmt.Errorf("pulse width %v out of (0,1)", p.Width)
	}
	if p.FM != nil {
		if p.Osc.Noise() || p.FM.ModOsc.Noise() {
			return fmt.Errorf("fm needs pitched oscillators")
		}
		if p.FM.Harmonicity <= 0 {
			return fmt.Errorf("fm harmonicity %v must be positive", p.FM.Harmonicity)
		}
		if err := env("modulation", p.FM.ModEnv); err != nil {
			return err
		}
	}
	if p.Filter != nil && p.Filter.Cutoff <= 0 {
		return fmt.Errorf("filter cutoff %v must be positive", p.Filter.Cutoff)
	}
	if p.CrushBits < 0 || p.CrushBits > 16 {
		return fmt.Errorf("crush bits %d out of [0,16]", p.CrushBits)
	}
	return nil
}

var presets = map[track.Instrument]Preset{}

// register panics on unknown kinds or bad presets so mistakes surface at
// startup rather than on the first trigger.
func register(kind track.Instrument, p Preset) {
	if !kind.Valid() {
		panic(fmt.Sprintf("instrument: register unknown kind %q", kind))
	}
	if err := p.validate(); err != nil {
		panic(fmt.Sprintf("instrument: preset %q: %v", kind, err))
	}
	presets[kind] = p
}

var fallback = Preset{Osc: OscWhite, Env: Envelope{0.01, 0.1, 0, 0.1}}

// Lookup returns the preset for kind. Unknown kinds get the white-noise
// fallback and ok=false.
func Lookup(kind track.Instrument) (p Preset, ok bool) {
	p, ok = presets[kind]
	if !ok {
		return fallback, false
	}
	return p, true
}

var (
	chipEnv   = Envelope{0.005, 0.05, 0.1, 0.1}
	reverbSec = 8.0
)

func init() {
	register(track.Square, Preset{Osc: OscSquare, Env: chipEnv})
	register(track.Sawtooth, Preset{Osc: OscSawtooth, Env: chipEnv})
	register(track.Triangle, Preset{Osc: OscTriangle, Env: chipEnv})
	register(track.Sine, Preset{Osc: OscSine, Env: Envelope{0.01, 0.1, 0.8, 1.0}})

	register(track.Pulse25, Preset{Osc: OscPulse, Width: 0.25, Env: chipEnv})
	register(track.Pulse12, Preset{Osc: OscPulse, Width: 0.125, Env: chipEnv})
	register(track.FatSaw, Preset{Osc: OscFatSaw, Env: chipEnv, Chorus: true})
	register(track.PWMPulse, Preset{Osc: OscPulse, Width: 0.5, Env: chipEnv, PWM: &Sweep{2, 0.1, 0.9}})

	register(track.WhiteSnare, Preset{Osc: OscWhite, Env: Envelope{0.005, 0.1, 0, 0.1}})
	register(track.PinkTom, Preset{Osc: OscPink, Env: Envelope{0.01, 0.3, 0, 0.1}})
	register(track.BrownKick, Preset{Osc: OscBrown, Env: Envelope{0.01, 0.2, 0, 0.1}})
	register(track.HiHat, Preset{
		Osc:    OscWhite,
		Env:    Envelope{0.01, 0.05, 0, 0.1},
		Filter: &Filter{Mode: effects.Highpass, Cutoff: 8000},
	})

	register(track.FMBell, Preset{
		Osc: OscSine,
		Env: Envelope{0.01, 0.2, 0.1, 1},
		FM:  &FM{Harmonicity: 3, Index: 10, ModOsc: OscSine, ModEnv: Envelope{0.01, 0.2, 0, 0.2}},
	})
	register(track.FMBass, Preset{Osc: OscSquare, Env: chipEnv})
	register(track.FMBrass, Preset{
		Osc: OscSawtooth,
		Env: Envelope{0.1, 0.1, 0.8, 0.3},
		FM:  &FM{Harmonicity: 2, Index: 8, ModOsc: OscSquare, ModEnv: Envelope{0.1, 0.1, 0.5, 0.1}},
	})
	register(track.FMWobble, Preset{
		Osc: OscSine,
		Env: Envelope{0.01, 0.1, 0.8, 0.5},
		FM: &FM{
			Harmonicity: 1, Index: 15, ModOsc: OscSine,
			ModEnv:     Envelope{0.01, 0.1, 1, 0.1},
			IndexSweep: &Sweep{8, 1, 20},
		},
	})

	register(track.LPSweep, Preset{
		Osc:    OscSawtooth,
		Env:    Envelope{0.01, 0.1, 0.8, 1},
		Filter: &Filter{Mode: effects.Lowpass, Cutoff: 200, Sweep: &Sweep{0.5, 100, 2000}},
	})
	register(track.HPStab, Preset{
		Osc:    OscSquare,
		Env:    Envelope{0.01, 0.1, 0, 0.1},
		Filter: &Filter{Mode: effects.Highpass, Cutoff: 1000},
	})
	register(track.ResonantSweep, Preset{
		Osc:    OscSawtooth,
		Env:    Envelope{0.01, 0.1, 0.5, 0.5},
		Filter: &Filter{Mode: effects.Lowpass, Cutoff: 500, Q: 15, Poles: 4, Sweep: &Sweep{1, 200, 2000}},
	})
	register(track.Bitcrush, Preset{Osc: OscSquare, Env: Envelope{0.01, 0.1, 0.3, 0.3}, CrushBits: 4})

	register(track.PadWash, Preset{Osc: OscSawtooth, Env: Envelope{2, 1, 0.8, 3}, ReverbSec: reverbSec})
	register(track.CrystalBell, Preset{Osc: OscSine, Env: Envelope{0.01, 2, 0.1, 3}, ReverbSec: reverbSec})
	register(track.WindSweep, Preset{Osc: OscPink, Env: Envelope{1, 2, 0.5, 4}, ReverbSec: reverbSec})
	register(track.DigitalRain, Preset{
		Osc:       OscWhite,
		Env:       Envelope{0.1, 0.5, 0.2, 1},
		Filter:    &Filter{Mode: effects.Bandpass, Cutoff: 2000},
		ReverbSec: reverbSec,
	})
}

package lfo

import "math"

type Waveform int

const (
	Sine Waveform = iota
	Saw
	Square
	Triangle
)

// LFO is a low-frequency oscillator producing per-sample modulation. The
// zero value is silent.
type LFO struct {
	depth    float64
	rateHz   float64
	waveform Waveform
	phase    float64 // [0, 1)
	center   float64
}

// Set configures a bipolar LFO swinging in [-depth, +depth].
func (l *LFO) Set(depth, rateHz float64, waveform Waveform) {
	l.depth = depth
	l.rateHz = rateHz
	if waveform < Sine || waveform > Triangle {
		waveform = Sine
	}
	l.waveform = waveform
	l.center = 0
}

// SetRange configures an LFO that sweeps between lo and hi.
func (l *LFO) SetRange(rateHz, lo, hi float64, waveform Waveform) {
	l.Set((hi-lo)/2, rateHz, waveform)
	l.center = (hi + lo) / 2
}

// Sample advances the LFO by one sample. Inactive LFOs return their center.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate == 0 {
		return l.center
	}
	var v float64
	switch l.waveform {
	case Saw:
		v = 1.0 - 2.0*l.phase
	case Square:
		if l.phase < 0.5 {
			v = 1.0
		} else {
			v = -1.0
		}
	case Triangle:
		if l.phase < 0.5 {
			v = 4.0*l.phase - 1.0
		} else {
			v = 3.0 - 4.0*l.phase
		}
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return l.center + v*l.depth
}

func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Reset zeros the phase.
func (l *LFO) Reset() {
	l.phase = 0
}

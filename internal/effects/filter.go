package effects

import "math"

type FilterMode int

const (
	Lowpass FilterMode = iota
	Highpass
	Bandpass
)

// Filter is a trapezoidal state-variable filter, optionally cascaded for a
// 24 dB/octave slope. Cutoff can be moved per sample.
type Filter struct {
	mode       FilterMode
	sampleRate float64
	cutoff     float64
	k          float64
	a1, a2, a3 float64
	stages     []svfState
}

type svfState struct {
	ic1, ic2 float64
}

// NewFilter builds a filter. q <= 0 uses a Butterworth-like 0.707; poles is
// 2 or 4.
func NewFilter(sampleRate int, mode FilterMode, cutoffHz, q float64, poles int) *Filter {
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	n := 1
	if poles >= 4 {
		n = 2
	}
	f := &Filter{
		mode:       mode,
		sampleRate: float64(sampleRate),
		k:          1 / q,
		stages:     make([]svfState, n),
	}
	f.SetCutoff(cutoffHz)
	return f
}

func (f *Filter) Cutoff() float64 { return f.cutoff }

func (f *Filter) SetCutoff(hz float64) {
	nyq := f.sampleRate * 0.49
	if hz < 10 {
		hz = 10
	}
	if hz > nyq {
		hz = nyq
	}
	f.cutoff = hz
	g := math.Tan(math.Pi * hz / f.sampleRate)
	f.a1 = 1 / (1 + g*(g+f.k))
	f.a2 = g * f.a1
	f.a3 = g * f.a2
}

func (f *Filter) Process(x float32) float32 {
	v := float64(x)
	for i := range f.stages {
		s := &f.stages[i]
		v3 := v - s.ic2
		v1 := f.a1*s.ic1 + f.a2*v3
		v2 := s.ic2 + f.a2*s.ic1 + f.a3*v3
		s.ic1 = 2*v1 - s.ic1
		s.ic2 = 2*v2 - s.ic2
		switch f.mode {
		case Highpass:
			v = v - f.k*v1 - v2
		case Bandpass:
			v = v1
		default:
			v = v2
		}
	}
	return float32(v)
}

func (f *Filter) Reset() {
	for i := range f.stages {
		f.stages[i] = svfState{}
	}
}

package effects

import "math"

// Reverb is a Schroeder reverb: four parallel combs into two allpasses.
type Reverb struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
	wet     float32
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// comb lengths in seconds, mutually prime-ish
var (
	combSeconds    = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}
	allpassSeconds = [2]float64{0.005, 0.0017}
)

// NewReverb builds a reverb whose tail falls 60 dB in decaySec seconds.
// wet is the wet/dry mix 0..1.
func NewReverb(sampleRate int, decaySec, wet float32) *Reverb {
	if decaySec <= 0 {
		decaySec = 0.1
	}
	r := &Reverb{wet: clamp(wet, 0, 1)}
	sr := float64(sampleRate)
	for i, sec := range combSeconds {
		n := maxInt(int(sec*sr), 1)
		// per-pass gain that reaches -60 dB after decaySec
		fb := math.Pow(10, -3*sec/float64(decaySec))
		r.combs[i] = combFilter{buf: make([]float32, n), fb: clamp(float32(fb), 0, 0.98)}
	}
	for i, sec := range allpassSeconds {
		r.allpass[i] = allpassFilter{buf: make([]float32, maxInt(int(sec*sr), 1)), fb: 0.5}
	}
	return r
}

func (r *Reverb) Process(x float32) float32 {
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(x)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return x*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

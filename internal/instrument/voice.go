package instrument

import "math"

const twoPi = math.Pi * 2

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type envelope struct {
	state       envState
	level       float64
	releaseStep float64
}

func (e *envelope) start() {
	e.state = envAttack
	e.level = 0
}

func (e *envelope) release(p Envelope, sr float64) {
	if e.state == envOff || e.state == envRelease {
		return
	}
	e.state = envRelease
	e.releaseStep = e.level / math.Max(p.Release*sr, 1)
}

// advance steps the ADSR by one sample and returns the new level.
func (e *envelope) advance(p Envelope, sr float64) float64 {
	switch e.state {
	case envAttack:
		e.level += 1 / math.Max(p.Attack*sr, 1)
		if e.level >= 1 {
			e.level = 1
			e.state = envDecay
		}
	case envDecay:
		e.level -= (1 - p.Sustain) / math.Max(p.Decay*sr, 1)
		if e.level <= p.Sustain {
			e.level = p.Sustain
			e.state = envSustain
		}
	case envSustain:
		if p.Sustain <= 0 {
			e.level = 0
			e.state = envOff
		}
	case envRelease:
		e.level -= e.releaseStep
		if e.level <= 0.0001 {
			e.level = 0
			e.state = envOff
		}
	case envOff:
		e.level = 0
	}
	return e.level
}

type voice struct {
	active    bool
	age       int
	freq      float64
	phases    [3]float64
	modPhase  float64
	env       envelope
	modEnv    envelope
	releaseAt int64
}

// fat saw detune in cents, a 20 cent spread
var fatDetune = [3]float64{-10, 0, 10}

// noise generates white, pink and brown noise from one 16-bit LFSR.
type noise struct {
	lfsr  uint16
	pink  [3]float64
	brown float64
}

func (n *noise) white() float64 {
	bit := (n.lfsr ^ (n.lfsr >> 2) ^ (n.lfsr >> 3) ^ (n.lfsr >> 5)) & 1
	n.lfsr = (n.lfsr >> 1) | (bit << 15)
	return float64(n.lfsr)/32767.5 - 1
}

func (n *noise) sample(o Osc) float64 {
	w := n.white()
	switch o {
	case OscPink:
		// Paul Kellet's economy pink filter
		n.pink[0] = 0.99765*n.pink[0] + w*0.0990460
		n.pink[1] = 0.96300*n.pink[1] + w*0.2965164
		n.pink[2] = 0.57000*n.pink[2] + w*1.0526913
		return (n.pink[0] + n.pink[1] + n.pink[2] + w*0.1848) * 0.25
	case OscBrown:
		n.brown = (n.brown + 0.02*w) / 1.02
		return n.brown * 3.5
	default:
		return w
	}
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// wave evaluates a pitched oscillator at phase in [0,1).
func wave(o Osc, phase, dt, width float64) float64 {
	switch o {
	case OscSquare:
		width = 0.5
		fallthrough
	case OscPulse:
		out := -1.0
		if phase < width {
			out = 1
		}
		out += polyBLEP(phase, dt)
		out -= polyBLEP(math.Mod(phase-width+1, 1), dt)
		return out
	case OscSawtooth, OscFatSaw:
		return 2*phase - 1 - polyBLEP(phase, dt)
	case OscTriangle:
		return 2*math.Abs(2*phase-1) - 1
	default:
		return math.Sin(twoPi * phase)
	}
}

func wrap(phase float64) float64 {
	return phase - math.Floor(phase)
}

// render produces one sample for v. width and index are the current
// LFO-modulated pulse width and FM index.
func (v *voice) render(p *Preset, n *noise, sr, width, index float64) float64 {
	v.age++
	amp := v.env.advance(p.Env, sr)
	if v.env.state == envOff {
		v.active = false
		return 0
	}
	if p.Osc.Noise() {
		return n.sample(p.Osc) * amp
	}
	dt := v.freq / sr
	var out float64
	switch {
	case p.FM != nil:
		modAmp := v.modEnv.advance(p.FM.ModEnv, sr)
		mod := wave(p.FM.ModOsc, v.modPhase, dt*p.FM.Harmonicity, 0.5)
		v.modPhase = wrap(v.modPhase + dt*p.FM.Harmonicity)
		out = wave(p.Osc, wrap(v.phases[0]+index*modAmp*mod/twoPi), dt, width)
		v.phases[0] = wrap(v.phases[0] + dt)
	case p.Osc == OscFatSaw:
		for i, cents := range fatDetune {
			d := dt * math.Pow(2, cents/1200)
			out += wave(p.Osc, v.phases[i], d, width) / 3
			v.phases[i] = wrap(v.phases[i] + d)
		}
	default:
		out = wave(p.Osc, v.phases[0], dt, width)
		v.phases[0] = wrap(v.phases[0] + dt)
	}
	return out * amp
}

func (v *voice) noteOn(freq float64, releaseAt int64) {
	v.active = true
	v.age = 0
	v.freq = freq
	v.phases = [3]float64{0, 1.0 / 3, 2.0 / 3}
	v.modPhase = 0
	v.env.start()
	v.modEnv.start()
	v.releaseAt = releaseAt
}

func (v *voice) noteOff(p *Preset, sr float64) {
	v.env.release(p.Env, sr)
	if p.FM != nil {
		v.modEnv.release(p.FM.ModEnv, sr)
	}
}

// stealVoice prefers an idle slot, then the oldest releasing voice, then
// the oldest voice.
func stealVoice(voices []voice) int {
	for i := range voices {
		if !voices[i].active {
			return i
		}
	}
	oldestRelease, oldestReleaseAge := -1, -1
	oldestActive, oldestActiveAge := 0, -1
	for i := range voices {
		v := &voices[i]
		if v.env.state == envRelease && v.age > oldestReleaseAge {
			oldestRelease, oldestReleaseAge = i, v.age
		}
		if v.age > oldestActiveAge {
			oldestActive, oldestActiveAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

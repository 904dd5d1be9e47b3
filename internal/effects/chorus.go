package effects

import "github.com/cbegin/groovebox-go/internal/lfo"

// ChorusParams describes a modulated delay voice thickener.
type ChorusParams struct {
	DelayMs  float64 // centre delay
	DepthMs  float64 // sweep either side of the centre
	RateHz   float64
	Feedback float32 // 0..0.9
	Mix      float32 // 0 dry .. 1 wet
}

// DefaultChorus is the ensemble used on fat saw patches.
var DefaultChorus = ChorusParams{DelayMs: 7, DepthMs: 2, RateHz: 0.8, Feedback: 0.1, Mix: 0.35}

type Chorus struct {
	line     []float32
	head     int
	rate     float64
	sweep    lfo.LFO // delay in samples
	feedback float32
	mix      float32
}

func NewChorus(sampleRate int, p ChorusParams) *Chorus {
	sr := float64(sampleRate)
	centre := p.DelayMs * sr / 1000
	depth := min(p.DepthMs*sr/1000, centre-1)
	c := &Chorus{
		line:     make([]float32, int(centre+depth)+2),
		rate:     sr,
		feedback: clamp(p.Feedback, 0, 0.9),
		mix:      clamp(p.Mix, 0, 1),
	}
	c.sweep.SetRange(p.RateHz, centre-max(depth, 0), centre+max(depth, 0), lfo.Sine)
	return c
}

// tap reads the line d samples behind the write head with linear
// interpolation.
func (c *Chorus) tap(d float64) float32 {
	n := len(c.line)
	whole := int(d)
	frac := float32(d - float64(whole))
	i := (c.head - whole + n) % n
	j := (i - 1 + n) % n
	return c.line[i]*(1-frac) + c.line[j]*frac
}

func (c *Chorus) Process(x float32) float32 {
	d := c.sweep.Sample(c.rate)
	wet := c.tap(d)
	c.head = (c.head + 1) % len(c.line)
	c.line[c.head] = x + wet*c.feedback
	return x*(1-c.mix) + wet*c.mix
}

func (c *Chorus) Reset() {
	clear(c.line)
	c.head = 0
	c.sweep.Reset()
}
